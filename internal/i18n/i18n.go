// Package i18n holds the message catalog for report output. The API
// serves Thai and English; callers pick the locale per request.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	Thai    = language.Thai
	English = language.English
)

func init() {
	for _, entry := range []struct{ key, th string }{
		{"Low Stock Report", "รายงานสินค้าใกล้หมด"},
		{"SKU", "รหัสสินค้า"},
		{"Product", "สินค้า"},
		{"Warehouse", "คลังสินค้า"},
		{"Quantity", "จำนวนคงเหลือ"},
		{"Minimum Stock", "จำนวนขั้นต่ำ"},
		{"Generated At", "สร้างเมื่อ"},
	} {
		message.SetString(Thai, entry.key, entry.th)
		message.SetString(English, entry.key, entry.key)
	}
}

// Printer returns a message printer for the locale tag. Unknown locales
// fall back to Thai, the default business language.
func Printer(locale string) *message.Printer {
	switch locale {
	case "en":
		return message.NewPrinter(English)
	default:
		return message.NewPrinter(Thai)
	}
}
