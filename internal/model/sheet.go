package model

// SheetType kind of worksheet, used to pick the sheet to import
type SheetType string

const (
	SheetTypeUnknown    SheetType = "unknown"
	SheetTypeAttendance SheetType = "attendance" // two rows per employee, day columns
	SheetTypeTable      SheetType = "table"      // one header row, one record per row
)

// SheetRecognition recognition result for one sheet
type SheetRecognition struct {
	SheetName     string    `json:"sheetName"`
	Type          SheetType `json:"type"`
	Score         float64   `json:"score"`
	HeaderRow     int       `json:"headerRow"`
	MissingFields []string  `json:"missingFields"`
}

// RawCell a single sheet coordinate and its literal value. Row and Col are 0-based.
type RawCell struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// MergedRegion rectangular span declared by the sheet, 0-based and inclusive.
// Every cell inside resolves to the top-left cell's value.
type MergedRegion struct {
	StartRow int `json:"startRow"`
	StartCol int `json:"startCol"`
	EndRow   int `json:"endRow"`
	EndCol   int `json:"endCol"`
}

// Contains reports whether (row, col) lies inside the region
func (r MergedRegion) Contains(row, col int) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

// Overlaps reports whether two regions share at least one coordinate
func (r MergedRegion) Overlaps(o MergedRegion) bool {
	return r.StartRow <= o.EndRow && o.StartRow <= r.EndRow &&
		r.StartCol <= o.EndCol && o.StartCol <= r.EndCol
}
