package importer

import (
	"context"
	"io"

	"luongimport/internal/model"
	"luongimport/internal/parser"
)

// ImportAttendance parses an attendance workbook into one record per employee-period.
// A sheet without a detectable header yields a failed result with a structural error;
// unreadable input returns ErrInvalidWorkbook.
func (c *Coordinator) ImportAttendance(ctx context.Context, r io.Reader, filename string, opts AttendanceOptions) (*model.AttendanceImportResult, error) {
	return run(ctx, c, model.ImportAttendance, filename, opts.Request, opts.OnProgress,
		func(sessionID string, emit func(ProgressEvent)) (*model.AttendanceImportResult, outcome, error) {
			sheet, err := c.openWorkbookSheet(r, opts.SheetName, model.SheetTypeAttendance, nil)
			if err != nil {
				return nil, outcome{}, err
			}
			emit(ProgressEvent{Type: EventSheet, Message: "parsing attendance sheet", Data: map[string]string{"sheet": sheet.Name}})

			res := c.parseAttendance(sheet)
			res.SessionID = sessionID
			return res, outcome{
				total:    res.TotalEntities,
				errors:   len(res.Errors),
				warnings: len(res.Warnings),
			}, nil
		})
}

func (c *Coordinator) parseAttendance(sheet *parser.Sheet) *model.AttendanceImportResult {
	agg := model.NewAggregator()
	res := &model.AttendanceImportResult{SheetName: sheet.Name}
	warnOverlaps(sheet, agg)

	layout, err := parser.DetectLayout(sheet, c.cfg.HeaderScanRows)
	if err == nil {
		var p *parser.AttendanceParser
		p, err = parser.NewAttendanceParser(sheet, layout)
		if err == nil {
			res.Layout = &layout
			for _, note := range layout.Notes {
				agg.Warn(layout.HeaderRow+1, "", model.CategoryStructural, "", "%s", note)
			}
			res.Records = p.ParseAll(agg)
		}
	}
	if err != nil {
		agg.Error(0, "", model.CategoryStructural, "", "%s", err.Error())
	}

	res.TotalEntities = len(res.Records)
	res.Errors = agg.Errors()
	res.Warnings = agg.Warnings()
	res.Success = !agg.HasErrors()
	if res.Records == nil {
		res.Records = []model.ParsedEntityRecord{}
	}
	return res
}
