// Package reconcile merges two independently mapped payroll record sets on
// (employee, period) and reports what each side was missing.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"luongimport/internal/model"
)

// Source one side of a dual-file import. Records may be nil when the file was omitted.
type Source struct {
	ID       model.SourceID
	FileName string
	Records  map[model.MergeKey]*model.MappedRecord
	// Mappings this source's own configuration; its required flags are checked against
	// this source's records only
	Mappings []model.ColumnMapping
}

// Result reconciled records plus report
type Result struct {
	Records   []model.ReconciledRecord
	Summary   model.DualImportSummary
	Matched   int
	Unmatched int
	Errors    []model.ImportIssue
	Warnings  []model.ImportIssue
	// Success no required-field violation in either source
	Success bool
}

// Reconcile merges first and second. Fields of first seed each record and fields of
// second overwrite them; swapping the arguments swaps the *_only classes and the winner
// of conflicting fields but never the set of matched keys.
func Reconcile(first, second Source) Result {
	agg := model.NewAggregator()
	var res Result

	for _, key := range unionKeys(first.Records, second.Records) {
		r1, r2 := first.Records[key], second.Records[key]
		rec := merge(key, first, second, r1, r2, agg)

		switch rec.Classification {
		case model.ClassBothFiles:
			res.Summary.BothFiles++
			res.Matched++
		case model.ClassFile1Only:
			res.Summary.File1Only++
			res.Unmatched++
			warnMissing(agg, key, first, r1, second)
		case model.ClassFile2Only:
			res.Summary.File2Only++
			res.Unmatched++
			warnMissing(agg, key, second, r2, first)
		}

		res.Summary.ValidationErrors += checkRequired(agg, key, first, r1)
		res.Summary.ValidationErrors += checkRequired(agg, key, second, r2)
		res.Records = append(res.Records, rec)
	}

	res.Errors = agg.Errors()
	res.Warnings = agg.Warnings()
	res.Success = res.Summary.ValidationErrors == 0
	return res
}

// unionKeys keys of both maps sorted by employee then period
func unionKeys(a, b map[model.MergeKey]*model.MappedRecord) []model.MergeKey {
	seen := make(map[model.MergeKey]struct{}, len(a)+len(b))
	keys := make([]model.MergeKey, 0, len(a)+len(b))
	for _, m := range []map[model.MergeKey]*model.MappedRecord{a, b} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].EmployeeID != keys[j].EmployeeID {
			return keys[i].EmployeeID < keys[j].EmployeeID
		}
		return keys[i].Period < keys[j].Period
	})
	return keys
}

func isBookkeeping(field string) bool {
	return field == model.FieldEmployeeID || field == model.FieldSalaryMonth || field == model.FieldSourceFile
}

func fileName(src Source, rec *model.MappedRecord) string {
	if rec.SourceFile != "" {
		return rec.SourceFile
	}
	return src.FileName
}

func merge(key model.MergeKey, first, second Source, r1, r2 *model.MappedRecord, agg *model.Aggregator) model.ReconciledRecord {
	rec := model.ReconciledRecord{
		Key:        key,
		File1:      r1,
		File2:      r2,
		Fields:     make(map[string]model.FieldValue),
		Provenance: make(map[string]model.SourceID),
	}

	var files []string
	keeper := first.ID
	switch {
	case r1 != nil && r2 != nil:
		rec.Classification = model.ClassBothFiles
		files = []string{fileName(first, r1), fileName(second, r2)}
	case r1 != nil:
		rec.Classification = model.ClassFile1Only
		files = []string{fileName(first, r1)}
	default:
		rec.Classification = model.ClassFile2Only
		files = []string{fileName(second, r2)}
		keeper = second.ID
	}

	if r1 != nil {
		for field, v := range r1.Fields {
			if isBookkeeping(field) {
				continue
			}
			rec.Fields[field] = v
			rec.Provenance[field] = first.ID
		}
	}
	if r2 != nil {
		for _, field := range sortedFields(r2.Fields) {
			v := r2.Fields[field]
			if isBookkeeping(field) {
				continue
			}
			if prev, ok := rec.Fields[field]; ok && !prev.Equal(v) {
				rec.Conflicts = append(rec.Conflicts, model.FieldConflict{
					Field:  field,
					File1:  prev,
					File2:  v,
					Winner: second.ID,
				})
				agg.AddWarning(model.ImportIssue{
					Row:        r2.RowNumber,
					EmployeeID: key.EmployeeID,
					Category:   model.CategoryReconciliation,
					Field:      field,
					Message: fmt.Sprintf("field %s differs between files (%s=%s, %s=%s), using %s",
						field, first.ID, prev.String(), second.ID, v.String(), second.ID),
					Source: second.ID,
				})
			}
			rec.Fields[field] = v
			rec.Provenance[field] = second.ID
		}
	}

	rec.SourceFiles = strings.Join(nonEmpty(files), ", ")
	rec.Fields[model.FieldEmployeeID] = model.TextValue(key.EmployeeID)
	rec.Fields[model.FieldSalaryMonth] = model.TextValue(key.Period)
	rec.Fields[model.FieldSourceFile] = model.TextValue(rec.SourceFiles)
	rec.Provenance[model.FieldEmployeeID] = keeper
	rec.Provenance[model.FieldSalaryMonth] = keeper
	rec.Provenance[model.FieldSourceFile] = keeper
	return rec
}

func sortedFields(fields map[string]model.FieldValue) []string {
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// warnMissing key present only in present; absent supplied nothing for it
func warnMissing(agg *model.Aggregator, key model.MergeKey, present Source, rec *model.MappedRecord, absent Source) {
	name := string(absent.ID)
	if absent.FileName != "" {
		name += " (" + absent.FileName + ")"
	}
	agg.AddWarning(model.ImportIssue{
		Row:        rec.RowNumber,
		EmployeeID: key.EmployeeID,
		Category:   model.CategoryReconciliation,
		Message:    fmt.Sprintf("no data in %s for %s period %s", name, key.EmployeeID, key.Period),
		Source:     present.ID,
	})
}

// checkRequired validates rec against its own source's required mappings; the other
// source never backfills a missing field
func checkRequired(agg *model.Aggregator, key model.MergeKey, src Source, rec *model.MappedRecord) int {
	if rec == nil {
		return 0
	}
	n := 0
	for _, m := range src.Mappings {
		if !m.IsRequired || rec.Has(m.DatabaseField) {
			continue
		}
		agg.AddError(model.ImportIssue{
			Row:        rec.RowNumber,
			EmployeeID: key.EmployeeID,
			Category:   model.CategoryRequired,
			Field:      m.DatabaseField,
			Message:    fmt.Sprintf("required field %s (%s) is missing in %s", m.DatabaseField, m.ExcelColumnName, src.ID),
			Source:     src.ID,
		})
		n++
	}
	return n
}
