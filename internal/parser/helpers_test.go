package parser

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// testSheet rows plus merged ranges ("B2:B3") of one worksheet
type testSheet struct {
	rows   [][]string
	merges [][2]string
}

// buildWorkbook writes the sheets into an in-memory workbook and reopens it from bytes,
// so tests go through the same OpenReader path as uploads.
func buildWorkbook(t *testing.T, sheets map[string]testSheet) *excelize.File {
	t.Helper()

	wb := excelize.NewFile()
	for name, s := range sheets {
		if idx, _ := wb.GetSheetIndex(name); idx < 0 {
			if _, err := wb.NewSheet(name); err != nil {
				t.Fatalf("NewSheet %s failed: %v", name, err)
			}
		}
		for i, r := range s.rows {
			row := make([]interface{}, 0, len(r))
			for _, v := range r {
				row = append(row, v)
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := wb.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow %s failed: %v", name, err)
			}
		}
		for _, m := range s.merges {
			if err := wb.MergeCell(name, m[0], m[1]); err != nil {
				t.Fatalf("MergeCell %s %s:%s failed: %v", name, m[0], m[1], err)
			}
		}
	}
	if _, ok := sheets["Sheet1"]; !ok {
		_ = wb.DeleteSheet("Sheet1")
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	f, err := OpenWorkbook(buf)
	if err != nil {
		t.Fatalf("OpenWorkbook failed: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func loadTestSheet(t *testing.T, f *excelize.File, name string) *Sheet {
	t.Helper()

	s, err := LoadSheet(f, name)
	if err != nil {
		t.Fatalf("LoadSheet %s failed: %v", name, err)
	}
	return s
}
