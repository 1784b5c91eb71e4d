package parser

import (
	"errors"
	"sort"

	"github.com/xuri/excelize/v2"

	"luongimport/internal/model"
)

// attendanceNameHints sheet names that suggest a timekeeping sheet
var attendanceNameHints = []string{"chấm công", "cham cong", "bảng công", "bang cong", "attendance", "timesheet"}

// SheetRecognizer classifies worksheets so an import can pick its sheet
type SheetRecognizer struct {
	maxScanRows int
	// tableLabels excel labels of a mapping configuration, used to score table sheets
	tableLabels []string
}

// NewSheetRecognizer creates a recognizer. tableLabels may be empty.
func NewSheetRecognizer(maxScanRows int, tableLabels []string) *SheetRecognizer {
	if maxScanRows <= 0 {
		maxScanRows = DefaultHeaderScanRows
	}
	return &SheetRecognizer{maxScanRows: maxScanRows, tableLabels: tableLabels}
}

// Recognize scores one sheet. A sheet with a detectable attendance layout is an
// attendance sheet; otherwise the share of table labels found decides.
func (r *SheetRecognizer) Recognize(sheet *Sheet) model.SheetRecognition {
	res := model.SheetRecognition{SheetName: sheet.Name, Type: model.SheetTypeUnknown}
	nameBoost := 0.0
	if newLabel(sheet.Name).firstMatch(attendanceNameHints) >= 0 {
		nameBoost = 0.1
	}

	layout, err := DetectLayout(sheet, r.maxScanRows)
	if err == nil {
		res.Type = model.SheetTypeAttendance
		res.HeaderRow = layout.HeaderRow
		res.Score = 0.8 + nameBoost
		if layout.DayCount >= 28 {
			res.Score += 0.1
		}
		return res
	}

	var le *LayoutError
	if errors.As(err, &le) {
		res.MissingFields = fewestMissing(sheet, r.maxScanRows)
	}

	if len(r.tableLabels) > 0 {
		mappings := make([]model.ColumnMapping, 0, len(r.tableLabels))
		for i, l := range r.tableLabels {
			mappings = append(mappings, model.ColumnMapping{ExcelColumnName: l, DatabaseField: l, DisplayOrder: i})
		}
		row, resolution := NewColumnResolver(mappings).FindHeaderRow(sheet, r.maxScanRows)
		score := float64(resolution.Resolved()) / float64(len(mappings))
		if score >= 0.5 {
			res.Type = model.SheetTypeTable
			res.HeaderRow = row
			res.Score = score
			res.MissingFields = resolution.UnresolvedNames()
			return res
		}
	}
	return res
}

// fewestMissing missing attendance columns of the closest header candidate
func fewestMissing(sheet *Sheet, maxScanRows int) []string {
	var best []string
	for row := 0; row < maxScanRows && row < sheet.RowCount(); row++ {
		_, err := DetectLayoutFromHeader(sheet.HeaderRow(row))
		var le *LayoutError
		if errors.As(err, &le) && (best == nil || len(le.Missing) < len(best)) {
			best = le.Missing
		}
	}
	return best
}

// RecognizeWorkbook scores every sheet of f, best first
func (r *SheetRecognizer) RecognizeWorkbook(f *excelize.File) ([]model.SheetRecognition, error) {
	var out []model.SheetRecognition
	for _, name := range f.GetSheetList() {
		sheet, err := LoadSheet(f, name)
		if err != nil {
			return nil, err
		}
		out = append(out, r.Recognize(sheet))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// PickSheet first sheet of the wanted type in a best-first list
func PickSheet(results []model.SheetRecognition, want model.SheetType) (string, bool) {
	for _, r := range results {
		if r.Type == want {
			return r.SheetName, true
		}
	}
	return "", false
}
