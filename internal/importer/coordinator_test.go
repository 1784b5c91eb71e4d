package importer

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"luongimport/internal/config"
	"luongimport/internal/model"
	"luongimport/internal/store"
)

// workbook writes sheets (in the given order) into an xlsx buffer
func workbook(t *testing.T, names []string, sheets map[string][][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for _, name := range names {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet %s failed: %v", name, err)
		}
		for i, r := range sheets[name] {
			row := make([]interface{}, 0, len(r))
			for _, v := range r {
				row = append(row, v)
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow %s failed: %v", name, err)
			}
		}
	}
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf
}

// nativeWorkbook writes typed rows; formats maps a cell name to a built-in number format
func nativeWorkbook(t *testing.T, sheet string, rows [][]interface{}, formats map[string]int) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for i, r := range rows {
		row := r
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	for cell, numFmt := range formats {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			t.Fatalf("NewStyle: %v", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			t.Fatalf("SetCellStyle %s: %v", cell, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf
}

func attendanceRows(days int) [][]string {
	header := []string{"STT", "Mã NV", "Họ tên", "Tháng"}
	for d := 1; d <= days; d++ {
		header = append(header, strconv.Itoa(d), "")
	}
	header = append(header, "Tổng giờ", "Tổng công")

	pair := func(id, period string, times, units [2]string, totals [2]string) [][]string {
		in := []string{"1", id, "", period}
		out := []string{"", "", "", ""}
		for d := 1; d <= days; d++ {
			if d == 1 {
				in = append(in, times[0], times[1])
				out = append(out, units[0], units[1])
				continue
			}
			in = append(in, "", "")
			out = append(out, "", "")
		}
		in = append(in, totals[0], "")
		out = append(out, "", totals[1])
		return [][]string{in, out}
	}

	rows := [][]string{header}
	rows = append(rows, pair("NV001", "07-2024", [2]string{"08:00", "17:00"}, [2]string{"1", "0,5"}, [2]string{"8", "1"})...)
	rows = append(rows, pair("NV002", "13/2024", [2]string{"08:00", "17:00"}, [2]string{"1", "0"}, [2]string{"8", "1"})...)
	return rows
}

func payrollMappings1() []model.ColumnMapping {
	return []model.ColumnMapping{
		{ExcelColumnName: "Mã nhân viên", DatabaseField: model.FieldEmployeeID, DataType: model.KindText, IsRequired: true, DisplayOrder: 1},
		{ExcelColumnName: "Tháng lương", DatabaseField: model.FieldSalaryMonth, DataType: model.KindText, IsRequired: true, DisplayOrder: 2},
		{ExcelColumnName: "Hệ số làm việc", DatabaseField: "he_so_lam_viec", DataType: model.KindNumber, IsRequired: true, DisplayOrder: 3},
	}
}

func payrollMappings2() []model.ColumnMapping {
	return []model.ColumnMapping{
		{ExcelColumnName: "Mã nhân viên", DatabaseField: model.FieldEmployeeID, DataType: model.KindText, IsRequired: true, DisplayOrder: 1},
		{ExcelColumnName: "Tháng lương", DatabaseField: model.FieldSalaryMonth, DataType: model.KindText, IsRequired: true, DisplayOrder: 2},
		{ExcelColumnName: "Thực nhận", DatabaseField: "tien_luong_thuc_nhan_cuoi_ky", DataType: model.KindNumber, DisplayOrder: 3},
	}
}

func newTestCoordinator(t *testing.T, withStore bool) (*Coordinator, *store.Store) {
	t.Helper()

	var st *store.Store
	if withStore {
		var err error
		st, err = store.New(filepath.Join(t.TempDir(), "luong.db"))
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		t.Cleanup(func() { st.Close() })
	}
	cfg := config.DefaultConfig().Import
	return NewCoordinator(st, nil, cfg), st
}

func TestImportAttendance_PicksSheetAndReportsRowErrors(t *testing.T) {
	t.Parallel()

	c, st := newTestCoordinator(t, true)
	buf := workbook(t, []string{"Ghi chú", "Chấm công"}, map[string][][]string{
		"Ghi chú":   {{"Bảng ghi chú"}},
		"Chấm công": attendanceRows(28),
	})

	var mu sync.Mutex
	var events []string
	res, err := c.ImportAttendance(context.Background(), buf, "cham-cong.xlsx", AttendanceOptions{
		Request: RequestContext{RequestID: "req-1", Actor: "hr"},
		OnProgress: func(ev ProgressEvent) {
			mu.Lock()
			events = append(events, ev.Type)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.SheetName != "Chấm công" || res.Layout == nil || res.Layout.DayCount != 28 {
		t.Fatalf("unexpected sheet/layout: %s %+v", res.SheetName, res.Layout)
	}
	if res.TotalEntities != 1 || res.Records[0].EmployeeID != "NV001" {
		t.Fatalf("want only NV001 got %+v", res.Records)
	}
	if !res.Records[0].Days[0].OvertimeUnits.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("comma decimal not normalized: %+v", res.Records[0].Days[0])
	}
	if res.Success || len(res.Errors) != 1 || res.Errors[0].Category != model.CategoryRange || res.Errors[0].EmployeeID != "NV002" {
		t.Fatalf("want one range error for NV002 got %v", res.Errors)
	}

	if strings.Join(events, ",") != "start,sheet,done" {
		t.Fatalf("unexpected progress events: %v", events)
	}

	sess, err := st.GetImportSession(res.SessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.Status != model.SessionPartial || sess.TotalRecords != 1 || sess.ErrorCount != 1 || sess.Actor != "hr" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestImportAttendance_NoHeaderIsStructuralFailure(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	buf := workbook(t, []string{"Data"}, map[string][][]string{
		"Data": {{"a", "b"}, {"1", "2"}},
	})

	res, err := c.ImportAttendance(context.Background(), buf, "x.xlsx", AttendanceOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Success || len(res.Records) != 0 || len(res.Errors) != 1 || res.Errors[0].Category != model.CategoryStructural {
		t.Fatalf("want structural failure got %+v", res)
	}
}

func TestImportAttendance_InvalidWorkbookAndSheet(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	if _, err := c.ImportAttendance(context.Background(), strings.NewReader("not a zip"), "x.xlsx", AttendanceOptions{}); !errors.Is(err, ErrInvalidWorkbook) {
		t.Fatalf("want ErrInvalidWorkbook got %v", err)
	}

	buf := workbook(t, []string{"A"}, map[string][][]string{"A": {{"x"}}})
	if _, err := c.ImportAttendance(context.Background(), buf, "x.xlsx", AttendanceOptions{SheetName: "B"}); !errors.Is(err, ErrInvalidWorkbook) {
		t.Fatalf("want ErrInvalidWorkbook for missing sheet got %v", err)
	}
}

func TestImportTable_MapsEmployees(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	mappings := store.DefaultMappings(store.ConfigEmployees)
	buf := workbook(t, []string{"Nhân viên"}, map[string][][]string{
		"Nhân viên": {
			{"DANH SÁCH NHÂN VIÊN"},
			{"STT", "Mã nhân viên", "Họ và tên", "Phòng ban", "Ngày vào làm", "Lương cơ bản"},
			{"1", "NV001", "Nguyễn Văn An", "Kế toán", "15/01/2025", "12.000.000"},
			{"2", "NV002", "", "Kho", "", "abc"},
		},
	})

	res, err := c.ImportTable(context.Background(), buf, "nv.xlsx", mappings, TableOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.TotalRecords != 1 || res.Records[0].Fields["ho_ten"].Text != "Nguyễn Văn An" {
		t.Fatalf("unexpected records: %+v", res.Records)
	}
	if !res.Records[0].Fields["luong_co_ban"].Number.Equal(decimal.NewFromInt(12000000)) {
		t.Fatalf("unexpected salary: %v", res.Records[0].Fields["luong_co_ban"])
	}
	if len(res.UnresolvedMappings) != 1 || res.UnresolvedMappings[0] != "Chức vụ" {
		t.Fatalf("unexpected unresolved: %v", res.UnresolvedMappings)
	}
	if res.Success || len(res.Errors) == 0 {
		t.Fatalf("row 4 should be rejected: %+v", res.Errors)
	}
	for _, e := range res.Errors {
		if e.Row != 4 {
			t.Fatalf("errors must point at row 4: %+v", e)
		}
	}
}

func TestImportTable_NativeFormattedCells(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	buf := nativeWorkbook(t, "Nhân viên", [][]interface{}{
		{"Mã nhân viên", "Họ và tên", "Ngày vào làm", "Lương cơ bản"},
		{"NV001", "Nguyễn Văn An", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 5500000},
		{"NV002", "Trần Thị Bình", time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), 750000.5},
	}, map[string]int{"C2": 14, "C3": 14, "D2": 3, "D3": 4})

	res, err := c.ImportTable(context.Background(), buf, "nv.xlsx", store.DefaultMappings(store.ConfigEmployees), TableOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !res.Success || res.TotalRecords != 2 {
		t.Fatalf("unexpected result: %+v errors=%v", res, res.Errors)
	}
	for _, w := range res.Warnings {
		if w.Category == model.CategoryFormat || w.Category == model.CategoryRange {
			t.Fatalf("native cells must not produce value warnings: %v", w)
		}
	}

	want := map[string]struct {
		salary string
		joined time.Time
	}{
		"NV001": {"5500000", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		"NV002": {"750000.5", time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, r := range res.Records {
		w := want[r.Fields[model.FieldEmployeeID].Text]
		if !r.Fields["luong_co_ban"].Number.Equal(decimal.RequireFromString(w.salary)) {
			t.Fatalf("row %d salary %v want %s", r.RowNumber, r.Fields["luong_co_ban"], w.salary)
		}
		if !r.Fields["ngay_vao_lam"].Date.Equal(w.joined) {
			t.Fatalf("row %d joined %v want %v", r.RowNumber, r.Fields["ngay_vao_lam"].Date, w.joined)
		}
	}
}

func TestImportPayroll_NativePeriodAndMoneyCells(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	period := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f1 := nativeWorkbook(t, "Lương", [][]interface{}{
		{"Mã nhân viên", "Tháng lương", "Hệ số làm việc"},
		{"NV001", period, 1.2},
	}, map[string]int{"B2": 17, "C2": 2})
	f2 := nativeWorkbook(t, "Thực nhận", [][]interface{}{
		{"Mã nhân viên", "Tháng lương", "Thực nhận"},
		{"NV001", "01/2025", 12500000},
	}, map[string]int{"C2": 3})

	res, err := c.ImportPayroll(context.Background(),
		&Upload{Name: "a.xlsx", Reader: f1}, &Upload{Name: "b.xlsx", Reader: f2},
		payrollMappings1(), payrollMappings2(), PayrollOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !res.Success || res.Summary.BothFiles != 1 || len(res.Records) != 1 {
		t.Fatalf("native period did not join: %+v errors=%v", res.Summary, res.Errors)
	}
	rec := res.Records[0]
	if rec.Key.Period != "2025-01" ||
		!rec.Fields["tien_luong_thuc_nhan_cuoi_ky"].Number.Equal(decimal.NewFromInt(12500000)) ||
		!rec.Fields["he_so_lam_viec"].Number.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestImportPayroll_ScenariosBAndC(t *testing.T) {
	t.Parallel()

	c, st := newTestCoordinator(t, true)
	f1 := workbook(t, []string{"Lương"}, map[string][][]string{
		"Lương": {
			{"Mã nhân viên", "Tháng lương", "Hệ số làm việc"},
			{"NV001", "01/2025", "1,2"},
			{"NV002", "2025-01", "1"},
		},
	})
	f2 := workbook(t, []string{"Thực nhận"}, map[string][][]string{
		"Thực nhận": {
			{"Mã nhân viên", "Tháng lương", "Thực nhận"},
			{"NV001", "2025-01", "12.000.000"},
		},
	})

	res, err := c.ImportPayroll(context.Background(),
		&Upload{Name: "a.xlsx", Reader: f1}, &Upload{Name: "b.xlsx", Reader: f2},
		payrollMappings1(), payrollMappings2(), PayrollOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.TotalEmployees != 2 || res.File1Processed != 2 || res.File2Processed != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Summary.BothFiles != 1 || res.Summary.File1Only != 1 || res.MatchedRecords != 1 || res.UnmatchedRecords != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	var nv1 model.ReconciledRecord
	for _, r := range res.Records {
		if r.Key.EmployeeID == "NV001" {
			nv1 = r
		}
	}
	if nv1.Key.Period != "2025-01" || nv1.Classification != model.ClassBothFiles {
		t.Fatalf("unexpected NV001 record: %+v", nv1)
	}
	if !nv1.Fields["he_so_lam_viec"].Number.Equal(decimal.RequireFromString("1.2")) ||
		!nv1.Fields["tien_luong_thuc_nhan_cuoi_ky"].Number.Equal(decimal.NewFromInt(12000000)) {
		t.Fatalf("fields not merged: %v", nv1.Fields)
	}

	if len(res.Warnings) != 1 || res.Warnings[0].EmployeeID != "NV002" || res.Warnings[0].Category != model.CategoryReconciliation {
		t.Fatalf("want one reconciliation warning for NV002 got %v", res.Warnings)
	}

	sess, err := st.GetImportSession(res.SessionID)
	if err != nil || sess.Status != model.SessionSucceeded || sess.Filenames != "a.xlsx, b.xlsx" {
		t.Fatalf("unexpected session: %+v %v", sess, err)
	}
}

func TestImportPayroll_File1OnlyAndRequiredPerSource(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	f1 := workbook(t, []string{"Lương"}, map[string][][]string{
		"Lương": {
			{"Mã nhân viên", "Tháng lương", "Hệ số làm việc"},
			{"NV002", "2025-01", ""},
		},
	})

	res, err := c.ImportPayroll(context.Background(), &Upload{Name: "a.xlsx", Reader: f1}, nil,
		payrollMappings1(), payrollMappings2(), PayrollOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Summary.File1Only != 1 || res.File2Processed != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if res.Success || res.Summary.ValidationErrors != 1 {
		t.Fatalf("missing required coefficient should fail: %+v", res.Errors)
	}
	e := res.Errors[0]
	if e.Source != model.SourceFile1 || e.Category != model.CategoryRequired || e.Row != 2 {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestImportPayroll_NoSource(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, false)
	if _, err := c.ImportPayroll(context.Background(), nil, nil, nil, nil, PayrollOptions{}); !errors.Is(err, ErrNoSource) {
		t.Fatalf("want ErrNoSource got %v", err)
	}
}

// blockingReader blocks every Read until release is closed
type blockingReader struct {
	release chan struct{}
}

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.release
	return 0, errors.New("released")
}

func TestImport_TimeoutAbandonsRun(t *testing.T) {
	t.Parallel()

	c, st := newTestCoordinator(t, true)
	r := &blockingReader{release: make(chan struct{})}
	t.Cleanup(func() { close(r.release) })

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_, err := c.ImportAttendance(ctx, r, "slow.xlsx", AttendanceOptions{})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("want ErrTimeout got %v", err)
	}

	last, err := st.GetSetting(store.SettingLastSessionID)
	if err != nil {
		t.Fatalf("last session: %v", err)
	}
	sess, err := st.GetImportSession(last)
	if err != nil || sess.Status != model.SessionFailed || !strings.Contains(sess.ErrorMessage, "timed out") {
		t.Fatalf("unexpected session: %+v %v", sess, err)
	}
}
