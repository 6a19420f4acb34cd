package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/tradewind-erp/tradewind-erp/internal/i18n"
)

const exportSheet = "Sheet1"

// ExportLowStock renders the low stock report as an xlsx workbook.
// Column headers follow the requested locale. The returned filename is
// unique per export.
func (s *Service) ExportLowStock(ctx context.Context, locale string) ([]byte, string, error) {
	items, err := s.LowStock(ctx, 0)
	if err != nil {
		return nil, "", err
	}
	p := i18n.Printer(locale)

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{
		p.Sprintf("SKU"),
		p.Sprintf("Product"),
		p.Sprintf("Warehouse"),
		p.Sprintf("Quantity"),
		p.Sprintf("Minimum Stock"),
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, "", fmt.Errorf("dashboard: export header: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("dashboard: export header: %w", err)
		}
	}

	for row, item := range items {
		values := []any{item.SKU, item.Name, item.Warehouse, item.Quantity, item.MinStock}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, "", fmt.Errorf("dashboard: export cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, "", fmt.Errorf("dashboard: export cell: %w", err)
			}
		}
	}

	footer, err := excelize.CoordinatesToCellName(1, len(items)+3)
	if err != nil {
		return nil, "", fmt.Errorf("dashboard: export footer: %w", err)
	}
	stamp := fmt.Sprintf("%s: %s", p.Sprintf("Generated At"), time.Now().Format(time.RFC3339))
	if err := f.SetCellValue(exportSheet, footer, stamp); err != nil {
		return nil, "", fmt.Errorf("dashboard: export footer: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("dashboard: write workbook: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("low-stock-%s.xlsx", uuid.NewString()), nil
}
