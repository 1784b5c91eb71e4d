// Package exporter renders import results as review workbooks.
package exporter

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"luongimport/internal/model"
)

// Sheet names of the review workbook
const (
	SheetSummary = "Tổng hợp"
	SheetRecords = "Dữ liệu"
	SheetIssues  = "Lỗi và cảnh báo"
)

var issueHeaders = []interface{}{"Loại", "Nguồn", "Dòng", "Mã nhân viên", "Nhóm", "Trường", "Nội dung"}

// ProgressEvent one completed stage of a report (summary, records, issues, done)
type ProgressEvent struct {
	Percent int
	Stage   string
	Rows    int
}

// Exporter writes review workbooks
type Exporter struct {
	progress func(ProgressEvent)
}

// NewExporter creates an exporter. progress may be nil.
func NewExporter(progress func(ProgressEvent)) *Exporter {
	return &Exporter{progress: progress}
}

// stage reports a finished stage with the number of rows it wrote
func (e *Exporter) stage(percent int, name string, rows int) {
	if e.progress != nil {
		e.progress(ProgressEvent{Percent: percent, Stage: name, Rows: rows})
	}
}

// ExportPayroll renders a reconciled payroll import: summary, one row per merge key, issues
func (e *Exporter) ExportPayroll(res *model.DualImportResult) (*excelize.File, error) {
	if res == nil {
		return nil, fmt.Errorf("nothing to export")
	}
	f, header, err := e.newWorkbook()
	if err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Chỉ số", "Giá trị"},
		{"Phiên nhập", res.SessionID},
		{"Thành công", res.Success},
		{"Tổng nhân viên", res.TotalEmployees},
		{"Dòng tệp 1", res.File1Processed},
		{"Dòng tệp 2", res.File2Processed},
		{"Khớp cả hai tệp", res.Summary.BothFiles},
		{"Chỉ có ở tệp 1", res.Summary.File1Only},
		{"Chỉ có ở tệp 2", res.Summary.File2Only},
		{"Lỗi kiểm tra", res.Summary.ValidationErrors},
		{"Số lỗi", len(res.Errors)},
		{"Số cảnh báo", len(res.Warnings)},
	}
	if err := writeRows(f, SheetSummary, summary, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	e.stage(20, "summary", len(summary)-1)

	all := make([]map[string]model.FieldValue, 0, len(res.Records))
	for _, r := range res.Records {
		all = append(all, r.Fields)
	}
	fields := fieldUnion(all, model.FieldEmployeeID, model.FieldSalaryMonth, model.FieldSourceFile)
	head := []interface{}{"Mã nhân viên", "Kỳ lương", "Phân loại", "Tệp nguồn", "Xung đột"}
	for _, name := range fields {
		head = append(head, name)
	}
	rows := [][]interface{}{head}
	for _, r := range res.Records {
		row := []interface{}{r.Key.EmployeeID, r.Key.Period, string(r.Classification), r.SourceFiles, len(r.Conflicts)}
		rows = append(rows, append(row, fieldCells(r.Fields, fields)...))
	}
	if err := writeRows(f, SheetRecords, rows, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	e.stage(70, "records", len(rows)-1)

	if err := writeIssues(f, res.Errors, res.Warnings, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	e.stage(90, "issues", len(res.Errors)+len(res.Warnings))
	e.stage(100, "done", 0)
	f.SetActiveSheet(0)
	return f, nil
}

// ExportTable renders a single mapped table import
func (e *Exporter) ExportTable(res *model.TableImportResult) (*excelize.File, error) {
	if res == nil {
		return nil, fmt.Errorf("nothing to export")
	}
	f, header, err := e.newWorkbook()
	if err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Chỉ số", "Giá trị"},
		{"Phiên nhập", res.SessionID},
		{"Trang tính", res.SheetName},
		{"Thành công", res.Success},
		{"Số bản ghi", res.TotalRecords},
		{"Số lỗi", len(res.Errors)},
		{"Số cảnh báo", len(res.Warnings)},
	}
	for _, label := range res.UnresolvedMappings {
		summary = append(summary, []interface{}{"Cột không tìm thấy", label})
	}
	if err := writeRows(f, SheetSummary, summary, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	e.stage(20, "summary", len(summary)-1)

	all := make([]map[string]model.FieldValue, 0, len(res.Records))
	for _, r := range res.Records {
		all = append(all, r.Fields)
	}
	fields := fieldUnion(all)
	head := []interface{}{"Dòng"}
	for _, name := range fields {
		head = append(head, name)
	}
	rows := [][]interface{}{head}
	for _, r := range res.Records {
		rows = append(rows, append([]interface{}{r.RowNumber}, fieldCells(r.Fields, fields)...))
	}
	if err := writeRows(f, SheetRecords, rows, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	e.stage(70, "records", len(rows)-1)

	if err := writeIssues(f, res.Errors, res.Warnings, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	e.stage(90, "issues", len(res.Errors)+len(res.Warnings))
	e.stage(100, "done", 0)
	f.SetActiveSheet(0)
	return f, nil
}

// WriteBuffer serializes f and closes it
func WriteBuffer(f *excelize.File) (*bytes.Buffer, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func (e *Exporter) newWorkbook() (*excelize.File, int, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	for _, name := range []string{SheetRecords, SheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, header, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	width := 0
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
		if len(row) > width {
			width = len(row)
		}
	}
	if len(rows) == 0 || width == 0 {
		return nil
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

func writeIssues(f *excelize.File, errs, warns []model.ImportIssue, headerStyle int) error {
	rows := [][]interface{}{issueHeaders}
	add := func(kind string, list []model.ImportIssue) {
		for _, is := range list {
			rows = append(rows, []interface{}{kind, string(is.Source), is.Row, is.EmployeeID, string(is.Category), is.Field, is.Message})
		}
	}
	add("Lỗi", errs)
	add("Cảnh báo", warns)
	if err := writeRows(f, SheetIssues, rows, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(SheetIssues, "G", "G", 60)
}

// fieldUnion sorted names of every field that appears in any record, minus skip
func fieldUnion(records []map[string]model.FieldValue, skip ...string) []string {
	seen := make(map[string]struct{})
	for _, fields := range records {
		for name := range fields {
			seen[name] = struct{}{}
		}
	}
	for _, name := range skip {
		delete(seen, name)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func fieldCells(fields map[string]model.FieldValue, names []string) []interface{} {
	cells := make([]interface{}, len(names))
	for i, name := range names {
		v, ok := fields[name]
		if !ok {
			cells[i] = nil
			continue
		}
		switch v.Kind {
		case model.KindNumber:
			cells[i] = v.Number.InexactFloat64()
		case model.KindDate:
			cells[i] = v.Date
		default:
			cells[i] = v.Text
		}
	}
	return cells
}
