package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"luongimport/internal/model"
)

// Sheet fully materialized worksheet: cell values plus declared merged regions.
// Read-only after load.
type Sheet struct {
	Name    string
	rows    [][]string
	regions []model.MergedRegion
	// overlapping merge declarations dropped at load
	Overlaps []string
}

// OpenWorkbook opens an xlsx workbook from a reader
func OpenWorkbook(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	return f, nil
}

// LoadSheet reads all rows and merged regions of a sheet. Cells are read as stored,
// not as displayed: a native number formatted "#,##0" arrives as "500000" and a native
// time as its fractional-day serial, so only real text cells go through the locale rules.
func LoadSheet(f *excelize.File, name string) (*Sheet, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	for _, row := range rows {
		for i, v := range row {
			row[i] = trimFloatNoise(v)
		}
	}

	merges, err := f.GetMergeCells(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged cells of %q: %w", name, err)
	}

	regions := make([]model.MergedRegion, 0, len(merges))
	for _, mc := range merges {
		sc, sr, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		ec, er, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		regions = append(regions, model.MergedRegion{
			StartRow: sr - 1,
			StartCol: sc - 1,
			EndRow:   er - 1,
			EndCol:   ec - 1,
		})
	}

	return NewSheet(name, rows, regions), nil
}

var storedNumberRe = regexp.MustCompile(`^-?\d+\.\d+$|^-?\d+(\.\d+)?[eE][-+]?\d+$`)

// trimFloatNoise rewrites a stored binary float ("0.30000000000000004", "1.2E-2") with the
// 15 significant digits Excel itself shows. Integers and other text are returned unchanged.
func trimFloatNoise(v string) string {
	if !storedNumberRe.MatchString(v) {
		return v
	}
	exp := strings.ContainsAny(v, "eE")
	if !exp && len(strings.TrimLeft(strings.Map(keepDigit, v), "0")) <= 15 {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	f, _ = strconv.ParseFloat(strconv.FormatFloat(f, 'g', 15, 64), 64)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// NewSheet builds a sheet from plain rows and regions. A region overlapping an earlier
// one is dropped and noted in Overlaps so each coordinate has at most one region.
func NewSheet(name string, rows [][]string, regions []model.MergedRegion) *Sheet {
	s := &Sheet{Name: name, rows: rows}
	for _, r := range regions {
		if r.EndRow < r.StartRow || r.EndCol < r.StartCol {
			continue
		}
		overlap := false
		for _, kept := range s.regions {
			if kept.Overlaps(r) {
				overlap = true
				break
			}
		}
		if overlap {
			s.Overlaps = append(s.Overlaps, regionName(r))
			continue
		}
		s.regions = append(s.regions, r)
	}
	return s
}

func regionName(r model.MergedRegion) string {
	start, _ := excelize.CoordinatesToCellName(r.StartCol+1, r.StartRow+1)
	end, _ := excelize.CoordinatesToCellName(r.EndCol+1, r.EndRow+1)
	return start + ":" + end
}

// RowCount number of rows holding data
func (s *Sheet) RowCount() int {
	return len(s.rows)
}

// Regions declared merged regions
func (s *Sheet) Regions() []model.MergedRegion {
	return s.regions
}

// Value literal value at (row, col), 0-based
func (s *Sheet) Value(row, col int) string {
	if row < 0 || row >= len(s.rows) || col < 0 {
		return ""
	}
	r := s.rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Effective value at (row, col) after merged-cell resolution: a coordinate inside a
// region takes the region's top-left value.
func (s *Sheet) Effective(row, col int) string {
	for _, r := range s.regions {
		if r.Contains(row, col) {
			return s.Value(r.StartRow, r.StartCol)
		}
	}
	return s.Value(row, col)
}

// EffectiveTrimmed Effective with surrounding whitespace removed
func (s *Sheet) EffectiveTrimmed(row, col int) string {
	return strings.TrimSpace(s.Effective(row, col))
}

// width widest row, widened by regions reaching further right
func (s *Sheet) width() int {
	w := 0
	for _, r := range s.rows {
		if len(r) > w {
			w = len(r)
		}
	}
	for _, r := range s.regions {
		if r.EndCol+1 > w {
			w = r.EndCol + 1
		}
	}
	return w
}

// EffectiveRow merge-resolved values of a whole row
func (s *Sheet) EffectiveRow(row int) []string {
	w := s.width()
	out := make([]string, w)
	for c := 0; c < w; c++ {
		out[c] = s.Effective(row, c)
	}
	return out
}

// IsMergedContinuation reports whether (row, col) is inside a region but not its anchor
func (s *Sheet) IsMergedContinuation(row, col int) bool {
	for _, r := range s.regions {
		if r.Contains(row, col) {
			return r.StartRow != row || r.StartCol != col
		}
	}
	return false
}

// RawRow literal values of a row as a model.RawRow (1-based row number)
func (s *Sheet) RawRow(row int) model.RawRow {
	var cells []string
	if row >= 0 && row < len(s.rows) {
		cells = s.rows[row]
	}
	return model.RawRow{RowNumber: row + 1, Cells: cells}
}

// HeaderRow merge-resolved header cells. Vertically merged labels propagate down, but
// horizontal continuations are blank so a label spanning several columns (a day number
// over its check-in/check-out pair) claims only its anchor column.
func (s *Sheet) HeaderRow(row int) []string {
	w := s.width()
	out := make([]string, w)
	for c := 0; c < w; c++ {
		if r, ok := s.regionAt(row, c); ok {
			if r.StartCol != c {
				continue
			}
			out[c] = s.Value(r.StartRow, r.StartCol)
			continue
		}
		out[c] = s.Value(row, c)
	}
	return out
}

func (s *Sheet) regionAt(row, col int) (model.MergedRegion, bool) {
	for _, r := range s.regions {
		if r.Contains(row, col) {
			return r, true
		}
	}
	return model.MergedRegion{}, false
}
