package parser

import (
	"errors"
	"sort"
	"strings"

	"github.com/schollz/closestmatch"

	"luongimport/internal/model"
)

// ColumnResolver applies a column-mapping configuration to tabular sheets
type ColumnResolver struct {
	mappings []model.ColumnMapping
}

// NewColumnResolver sorts the mappings by display order; equal orders keep input order
func NewColumnResolver(mappings []model.ColumnMapping) *ColumnResolver {
	sorted := make([]model.ColumnMapping, len(mappings))
	copy(sorted, mappings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return &ColumnResolver{mappings: sorted}
}

// Mappings sorted mappings
func (r *ColumnResolver) Mappings() []model.ColumnMapping {
	return r.mappings
}

// Resolve matches every mapping to a header column. A header matches when its
// normalized text and the mapping's label contain one another; an exact match anywhere
// in the row beats a containment match, and each column serves at most one mapping.
func (r *ColumnResolver) Resolve(headers []string) Resolution {
	labels := make([]label, len(headers))
	for i, h := range headers {
		labels[i] = newLabel(h)
	}
	claimed := make(map[int]bool)

	res := Resolution{
		Columns:     make(map[string]int),
		Suggestions: make(map[string]string),
	}

	for _, m := range r.mappings {
		target := newLabel(m.ExcelColumnName)
		match := ColumnMatch{Mapping: m, ColumnIndex: -1}

		if !target.empty() {
			if idx := findExact(labels, target, claimed); idx >= 0 {
				match.ColumnIndex, match.Exact = idx, true
			} else if idx := findContains(labels, target, claimed); idx >= 0 {
				match.ColumnIndex = idx
			}
		}

		if match.ColumnIndex >= 0 {
			claimed[match.ColumnIndex] = true
			match.ColumnName = strings.TrimSpace(headers[match.ColumnIndex])
			res.Columns[m.DatabaseField] = match.ColumnIndex
		} else {
			res.Unresolved = append(res.Unresolved, m)
		}
		res.Matches = append(res.Matches, match)
	}

	if len(res.Unresolved) > 0 {
		suggestClosest(&res, labels, claimed)
	}
	return res
}

func findExact(labels []label, target label, claimed map[int]bool) int {
	for i, l := range labels {
		if claimed[i] || l.empty() {
			continue
		}
		if l.lower == target.lower || l.folded == target.folded {
			return i
		}
	}
	return -1
}

func findContains(labels []label, target label, claimed map[int]bool) int {
	for i, l := range labels {
		if claimed[i] || l.empty() {
			continue
		}
		if strings.Contains(l.lower, target.lower) || strings.Contains(target.lower, l.lower) ||
			strings.Contains(l.folded, target.folded) || strings.Contains(target.folded, l.folded) {
			return i
		}
	}
	return -1
}

// suggestClosest proposes the nearest unclaimed header for each unresolved mapping
func suggestClosest(res *Resolution, labels []label, claimed map[int]bool) {
	byFolded := make(map[string]string)
	var candidates []string
	for i, l := range labels {
		if claimed[i] || l.empty() {
			continue
		}
		if _, dup := byFolded[l.folded]; !dup {
			candidates = append(candidates, l.folded)
		}
		byFolded[l.folded] = l.raw
	}
	if len(candidates) == 0 {
		return
	}

	cm := closestmatch.New(candidates, []int{2, 3})
	for _, m := range res.Unresolved {
		if match := cm.Closest(newLabel(m.ExcelColumnName).folded); match != "" {
			res.Suggestions[m.DatabaseField] = byFolded[match]
		}
	}
}

// FindHeaderRow picks, among the first maxScanRows rows, the row resolving the most
// mappings. Ties keep the earliest row.
func (r *ColumnResolver) FindHeaderRow(sheet *Sheet, maxScanRows int) (int, Resolution) {
	if maxScanRows <= 0 {
		maxScanRows = DefaultHeaderScanRows
	}
	best, bestRes := 0, r.Resolve(sheet.HeaderRow(0))
	for row := 1; row < maxScanRows && row < sheet.RowCount(); row++ {
		res := r.Resolve(sheet.HeaderRow(row))
		if res.Resolved() > bestRes.Resolved() {
			best, bestRes = row, res
		}
	}
	return best, bestRes
}

// MapRow converts one data row into a typed record. Row-level problems go to agg; the
// boolean is false when the row is blank or was rejected.
func (r *ColumnResolver) MapRow(row model.RawRow, res Resolution, opts MapOptions, agg *model.Aggregator) (*model.MappedRecord, bool) {
	if isBlankRow(row.Cells) {
		return nil, false
	}

	rec := &model.MappedRecord{
		RowNumber:  row.RowNumber,
		Source:     opts.Source,
		SourceFile: opts.SourceFile,
		Fields:     make(map[string]model.FieldValue),
	}
	empID := ""
	if opts.keyed() {
		if col, ok := res.Columns[opts.KeyFields[0]]; ok {
			empID = strings.TrimSpace(row.Cell(col))
		}
	}

	rejected := false
	for _, match := range res.Matches {
		m := match.Mapping
		raw := ""
		if match.ColumnIndex >= 0 {
			raw = strings.TrimSpace(row.Cell(match.ColumnIndex))
		}
		if raw == "" {
			raw = strings.TrimSpace(m.DefaultValue)
		}
		if raw == "" {
			if m.IsRequired {
				rec.Missing = append(rec.Missing, m.DatabaseField)
			}
			continue
		}

		v, ok := convertField(m, raw, row.RowNumber, empID, agg)
		if !ok {
			rejected = true
			continue
		}
		rec.Fields[m.DatabaseField] = v
	}

	if len(rec.Missing) > 0 && !opts.DeferRequired {
		for _, f := range rec.Missing {
			agg.Error(row.RowNumber, empID, model.CategoryRequired, f, "required field %s is empty", f)
		}
		rejected = true
	}

	if opts.keyed() && !rejected {
		key, ok := buildKey(rec, opts.KeyFields, agg)
		if !ok {
			return nil, false
		}
		rec.Key = key
	}

	if rejected {
		return nil, false
	}
	return rec, true
}

// convertField parses raw by the mapping's kind
func convertField(m model.ColumnMapping, raw string, rowNumber int, empID string, agg *model.Aggregator) (model.FieldValue, bool) {
	field := m.DatabaseField
	switch m.DataType {
	case model.KindNumber:
		cell, err := ReadNumeric(field, raw)
		for _, n := range cell.Notes {
			agg.Warn(rowNumber, empID, model.CategoryFormat, field, "%s", n)
		}
		if cell.Malformed {
			agg.Error(rowNumber, empID, model.CategoryFormat, field, "%s: cannot parse number %q", field, raw)
			return model.FieldValue{}, false
		}
		if err != nil {
			agg.Error(rowNumber, empID, model.CategoryRange, field, "%v", err)
			return model.FieldValue{}, false
		}
		for _, w := range cell.Warnings {
			agg.Warn(rowNumber, empID, model.CategoryRange, field, "%s", w)
		}
		return model.NumberValue(cell.Value), true

	case model.KindDate:
		t, ok := ParseDate(raw)
		if !ok {
			agg.Error(rowNumber, empID, model.CategoryFormat, field, "%s: cannot parse date %q", field, raw)
			return model.FieldValue{}, false
		}
		return model.DateValue(t), true
	}
	return model.TextValue(raw), true
}

// buildKey derives the merge key; the period is canonicalized to "YYYY-MM"
func buildKey(rec *model.MappedRecord, keyFields []string, agg *model.Aggregator) (model.MergeKey, bool) {
	idField, periodField := keyFields[0], keyFields[1]
	id := strings.TrimSpace(rec.Fields[idField].String())
	if id == "" {
		agg.Error(rec.RowNumber, "", model.CategoryRequired, idField, "key field %s is empty", idField)
		return model.MergeKey{}, false
	}

	pv, ok := rec.Fields[periodField]
	if !ok || pv.IsZero() {
		agg.Error(rec.RowNumber, id, model.CategoryRequired, periodField, "key field %s is empty", periodField)
		return model.MergeKey{}, false
	}

	var period string
	if pv.Kind == model.KindDate {
		period = FormatPeriod(pv.Date.Year(), int(pv.Date.Month()))
	} else {
		p, err := CanonicalPeriod(pv.String())
		if err != nil {
			category := model.CategoryFormat
			if errors.Is(err, ErrMonthOutOfRange) {
				category = model.CategoryRange
			}
			agg.Error(rec.RowNumber, id, category, periodField, "%s: %v", periodField, err)
			return model.MergeKey{}, false
		}
		period = p
	}
	return model.MergeKey{EmployeeID: id, Period: period}, true
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// MapSheet maps every data row below headerRow. With key fields, a key seen twice keeps
// the later row (last write wins) and a duplicate warning names both rows.
func (r *ColumnResolver) MapSheet(sheet *Sheet, headerRow int, opts MapOptions, agg *model.Aggregator) *MappedSheet {
	res := r.Resolve(sheet.HeaderRow(headerRow))
	out := &MappedSheet{
		SheetName:  sheet.Name,
		HeaderRow:  headerRow,
		Resolution: res,
	}

	for _, m := range res.Unresolved {
		msg := "column %q not found in header"
		args := []any{m.ExcelColumnName}
		if s, ok := res.Suggestions[m.DatabaseField]; ok {
			msg += ", closest header is %q"
			args = append(args, s)
		}
		agg.Warn(headerRow+1, "", model.CategoryStructural, m.DatabaseField, msg, args...)
	}

	if opts.keyed() {
		out.Keyed = make(map[model.MergeKey]*model.MappedRecord)
	}
	var order []model.MergeKey

	for row := headerRow + 1; row < sheet.RowCount(); row++ {
		raw := sheet.RawRow(row)
		if isBlankRow(raw.Cells) {
			continue
		}
		out.Rows++

		rec, ok := r.MapRow(raw, res, opts, agg)
		if !ok {
			continue
		}
		if !opts.keyed() {
			out.Records = append(out.Records, rec)
			continue
		}

		if prev, dup := out.Keyed[rec.Key]; dup {
			if !opts.SilentDuplicates {
				agg.Warn(rec.RowNumber, rec.Key.EmployeeID, model.CategoryDuplicate, "",
					"duplicate key %s: row %d overwrites row %d", rec.Key.String(), rec.RowNumber, prev.RowNumber)
			}
		} else {
			order = append(order, rec.Key)
		}
		out.Keyed[rec.Key] = rec
	}

	for _, k := range order {
		out.Records = append(out.Records, out.Keyed[k])
	}
	return out
}
