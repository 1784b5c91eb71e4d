package importer

import (
	"context"
	"io"
	"strings"

	"luongimport/internal/model"
	"luongimport/internal/parser"
	"luongimport/internal/reconcile"
)

// ImportTable maps a generic table (such as the employee list) through mappings
func (c *Coordinator) ImportTable(ctx context.Context, r io.Reader, filename string, mappings []model.ColumnMapping, opts TableOptions) (*model.TableImportResult, error) {
	return run(ctx, c, model.ImportTable, filename, opts.Request, opts.OnProgress,
		func(sessionID string, emit func(ProgressEvent)) (*model.TableImportResult, outcome, error) {
			sheet, err := c.openWorkbookSheet(r, opts.SheetName, model.SheetTypeTable, mappingLabels(mappings))
			if err != nil {
				return nil, outcome{}, err
			}
			emit(ProgressEvent{Type: EventSheet, Message: "mapping table sheet", Data: map[string]string{"sheet": sheet.Name}})

			agg := model.NewAggregator()
			mapped := c.mapSheet(sheet, mappings, parser.MapOptions{
				SourceFile:       filename,
				KeyFields:        opts.KeyFields,
				SilentDuplicates: !c.cfg.WarnDuplicateKeys,
			}, agg)

			res := &model.TableImportResult{
				SessionID: sessionID,
				SheetName: sheet.Name,
				Records:   []*model.MappedRecord{},
			}
			if mapped != nil {
				res.Records = append(res.Records, mapped.Records...)
				res.UnresolvedMappings = mapped.Resolution.UnresolvedNames()
			}
			res.TotalRecords = len(res.Records)
			res.Errors = agg.Errors()
			res.Warnings = agg.Warnings()
			res.Success = !agg.HasErrors()
			return res, outcome{
				total:    res.TotalRecords,
				errors:   len(res.Errors),
				warnings: len(res.Warnings),
			}, nil
		})
}

// mapSheet locates the header row and maps the sheet. A header resolving no mapping at
// all is a structural error and returns nil.
func (c *Coordinator) mapSheet(sheet *parser.Sheet, mappings []model.ColumnMapping, opts parser.MapOptions, agg *model.Aggregator) *parser.MappedSheet {
	warnOverlaps(sheet, agg)
	resolver := parser.NewColumnResolver(mappings)
	headerRow, res := resolver.FindHeaderRow(sheet, c.cfg.HeaderScanRows)
	if res.Resolved() == 0 {
		agg.Error(0, "", model.CategoryStructural, "", "%s: no mapped column found in sheet %q",
			parser.ErrHeaderNotDetected.Error(), sheet.Name)
		return nil
	}
	if opts.KeyFields != nil {
		for _, field := range opts.KeyFields {
			if _, ok := res.Columns[field]; !ok {
				agg.Error(headerRow+1, "", model.CategoryStructural, field, "%s: key column %s not found in sheet %q",
					parser.ErrHeaderNotDetected.Error(), field, sheet.Name)
				return nil
			}
		}
	}
	return resolver.MapSheet(sheet, headerRow, opts, agg)
}

// ImportPayroll maps up to two payroll files independently and reconciles them on
// (employee_id, salary_month). Either upload may be nil, not both.
func (c *Coordinator) ImportPayroll(ctx context.Context, file1, file2 *Upload, m1, m2 []model.ColumnMapping, opts PayrollOptions) (*model.DualImportResult, error) {
	if file1 == nil && file2 == nil {
		return nil, ErrNoSource
	}

	var names []string
	for _, u := range []*Upload{file1, file2} {
		if u != nil {
			names = append(names, u.Name)
		}
	}

	return run(ctx, c, model.ImportPayroll, strings.Join(names, ", "), opts.Request, opts.OnProgress,
		func(sessionID string, emit func(ProgressEvent)) (*model.DualImportResult, outcome, error) {
			agg := model.NewAggregator()

			src1, n1, err := c.payrollSource(model.SourceFile1, file1, m1, opts.Sheet1, agg, emit)
			if err != nil {
				return nil, outcome{}, err
			}
			src2, n2, err := c.payrollSource(model.SourceFile2, file2, m2, opts.Sheet2, agg, emit)
			if err != nil {
				return nil, outcome{}, err
			}

			rec := reconcile.Reconcile(src1, src2)
			for _, e := range rec.Errors {
				agg.AddError(e)
			}
			for _, w := range rec.Warnings {
				agg.AddWarning(w)
			}

			res := &model.DualImportResult{
				SessionID:        sessionID,
				TotalEmployees:   countEmployees(rec.Records),
				File1Processed:   n1,
				File2Processed:   n2,
				MatchedRecords:   rec.Matched,
				UnmatchedRecords: rec.Unmatched,
				Errors:           agg.Errors(),
				Warnings:         agg.Warnings(),
				Summary:          rec.Summary,
				Records:          rec.Records,
			}
			if res.Records == nil {
				res.Records = []model.ReconciledRecord{}
			}
			res.Success = len(res.Errors) == 0
			return res, outcome{
				total:    len(res.Records),
				errors:   len(res.Errors),
				warnings: len(res.Warnings),
			}, nil
		})
}

// payrollSource maps one side of the payroll import. A nil upload is an empty source.
// Required fields are deferred to the reconciler, which checks them per source.
func (c *Coordinator) payrollSource(id model.SourceID, u *Upload, mappings []model.ColumnMapping, sheetName string,
	agg *model.Aggregator, emit func(ProgressEvent)) (reconcile.Source, int, error) {

	src := reconcile.Source{ID: id, Mappings: mappings}
	if u == nil {
		return src, 0, nil
	}
	src.FileName = u.Name

	sheet, err := c.openWorkbookSheet(u.Reader, sheetName, model.SheetTypeTable, mappingLabels(mappings))
	if err != nil {
		return src, 0, err
	}
	emit(ProgressEvent{Type: EventSheet, Message: "mapping payroll sheet", Data: map[string]string{
		"source": string(id),
		"sheet":  sheet.Name,
	}})

	srcAgg := model.NewSourceAggregator(id)
	mapped := c.mapSheet(sheet, mappings, parser.MapOptions{
		Source:           id,
		SourceFile:       u.Name,
		DeferRequired:    true,
		KeyFields:        parser.DefaultKeyFields,
		SilentDuplicates: !c.cfg.WarnDuplicateKeys,
	}, srcAgg)
	agg.Merge(srcAgg)
	if mapped == nil {
		return src, 0, nil
	}
	src.Records = mapped.Keyed
	return src, mapped.Rows, nil
}

func countEmployees(records []model.ReconciledRecord) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.Key.EmployeeID] = struct{}{}
	}
	return len(seen)
}
