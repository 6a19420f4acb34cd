package units

// Unit represents a unit of measure, e.g. ชิ้น or กล่อง.
type Unit struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
