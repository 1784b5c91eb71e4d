package reconcile

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"luongimport/internal/model"
)

func keyMappings(extra ...model.ColumnMapping) []model.ColumnMapping {
	base := []model.ColumnMapping{
		{ExcelColumnName: "Mã nhân viên", DatabaseField: model.FieldEmployeeID, DataType: model.KindText, IsRequired: true},
		{ExcelColumnName: "Tháng lương", DatabaseField: model.FieldSalaryMonth, DataType: model.KindText, IsRequired: true},
	}
	return append(base, extra...)
}

func record(src model.SourceID, file string, row int, id, period string, fields map[string]model.FieldValue) *model.MappedRecord {
	all := map[string]model.FieldValue{
		model.FieldEmployeeID:  model.TextValue(id),
		model.FieldSalaryMonth: model.TextValue(period),
	}
	for k, v := range fields {
		all[k] = v
	}
	return &model.MappedRecord{
		RowNumber:  row,
		Source:     src,
		SourceFile: file,
		Key:        model.MergeKey{EmployeeID: id, Period: period},
		Fields:     all,
	}
}

func source(id model.SourceID, file string, mappings []model.ColumnMapping, recs ...*model.MappedRecord) Source {
	s := Source{ID: id, FileName: file, Mappings: mappings}
	if len(recs) > 0 {
		s.Records = make(map[model.MergeKey]*model.MappedRecord)
		for _, r := range recs {
			s.Records[r.Key] = r
		}
	}
	return s
}

func TestReconcile_ScenarioB_BothFiles(t *testing.T) {
	t.Parallel()

	f1 := source(model.SourceFile1, "a.xlsx", keyMappings(), record(model.SourceFile1, "a.xlsx", 2, "NV001", "2025-01",
		map[string]model.FieldValue{"he_so_lam_viec": model.NumberValue(decimal.RequireFromString("1.2"))}))
	f2 := source(model.SourceFile2, "b.xlsx", keyMappings(), record(model.SourceFile2, "b.xlsx", 5, "NV001", "2025-01",
		map[string]model.FieldValue{"tien_luong_thuc_nhan_cuoi_ky": model.NumberValue(decimal.NewFromInt(12000000))}))

	res := Reconcile(f1, f2)
	if !res.Success || len(res.Errors) != 0 || res.Summary.ValidationErrors != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
	if len(res.Records) != 1 || res.Summary.BothFiles != 1 || res.Matched != 1 || res.Unmatched != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	rec := res.Records[0]
	if rec.Classification != model.ClassBothFiles {
		t.Fatalf("want both_files got %s", rec.Classification)
	}
	if !rec.Fields["he_so_lam_viec"].Number.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("file1 field missing: %v", rec.Fields)
	}
	if !rec.Fields["tien_luong_thuc_nhan_cuoi_ky"].Number.Equal(decimal.NewFromInt(12000000)) {
		t.Fatalf("file2 field missing: %v", rec.Fields)
	}
	if rec.Provenance["he_so_lam_viec"] != model.SourceFile1 || rec.Provenance["tien_luong_thuc_nhan_cuoi_ky"] != model.SourceFile2 {
		t.Fatalf("unexpected provenance: %v", rec.Provenance)
	}
	if rec.SourceFiles != "a.xlsx, b.xlsx" || rec.Fields[model.FieldSourceFile].Text != "a.xlsx, b.xlsx" {
		t.Fatalf("unexpected source files: %q", rec.SourceFiles)
	}
	if rec.Fields[model.FieldEmployeeID].Text != "NV001" || rec.Fields[model.FieldSalaryMonth].Text != "2025-01" {
		t.Fatalf("bookkeeping fields not kept from key: %v", rec.Fields)
	}
	if rec.File1 == nil || rec.File2 == nil {
		t.Fatalf("both source records expected")
	}
}

func TestReconcile_ScenarioC_File1Only(t *testing.T) {
	t.Parallel()

	f1 := source(model.SourceFile1, "a.xlsx", keyMappings(), record(model.SourceFile1, "a.xlsx", 3, "NV002", "2025-01", nil))
	f2 := Source{ID: model.SourceFile2, Mappings: keyMappings()}

	res := Reconcile(f1, f2)
	if !res.Success {
		t.Fatalf("missing file2 must not fail: %v", res.Errors)
	}
	if len(res.Records) != 1 || res.Records[0].Classification != model.ClassFile1Only {
		t.Fatalf("want file1_only got %+v", res.Records)
	}
	if res.Summary.File1Only != 1 || res.Unmatched != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("want one warning got %v", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Category != model.CategoryReconciliation || w.EmployeeID != "NV002" || w.Row != 3 || !strings.Contains(w.Message, "file2") {
		t.Fatalf("unexpected warning: %+v", w)
	}
	if res.Records[0].Provenance[model.FieldEmployeeID] != model.SourceFile1 || res.Records[0].SourceFiles != "a.xlsx" {
		t.Fatalf("unexpected bookkeeping: %+v", res.Records[0])
	}
}

func TestReconcile_CommutativeClassification(t *testing.T) {
	t.Parallel()

	num := func(v int64) map[string]model.FieldValue {
		return map[string]model.FieldValue{"tam_ung": model.NumberValue(decimal.NewFromInt(v))}
	}
	a := source(model.SourceFile1, "a.xlsx", keyMappings(),
		record(model.SourceFile1, "a.xlsx", 2, "NV001", "2025-01", num(100)),
		record(model.SourceFile1, "a.xlsx", 3, "NV002", "2025-01", num(200)),
	)
	b := source(model.SourceFile2, "b.xlsx", keyMappings(),
		record(model.SourceFile2, "b.xlsx", 2, "NV002", "2025-01", num(250)),
		record(model.SourceFile2, "b.xlsx", 3, "NV003", "2025-01", num(300)),
	)

	ab := Reconcile(a, b)
	ba := Reconcile(b, a)

	if ab.Matched != ba.Matched || ab.Unmatched != ba.Unmatched {
		t.Fatalf("matched/unmatched differ: %d/%d vs %d/%d", ab.Matched, ab.Unmatched, ba.Matched, ba.Unmatched)
	}
	if ab.Summary.BothFiles != ba.Summary.BothFiles ||
		ab.Summary.File1Only != ba.Summary.File2Only ||
		ab.Summary.File2Only != ba.Summary.File1Only {
		t.Fatalf("classification not commutative: %+v vs %+v", ab.Summary, ba.Summary)
	}

	classes := func(r Result) map[model.MergeKey]bool {
		out := make(map[model.MergeKey]bool)
		for _, rec := range r.Records {
			out[rec.Key] = rec.Classification == model.ClassBothFiles
		}
		return out
	}
	cab, cba := classes(ab), classes(ba)
	if len(cab) != 3 || len(cba) != 3 {
		t.Fatalf("want 3 keys each got %d/%d", len(cab), len(cba))
	}
	for k, both := range cab {
		if cba[k] != both {
			t.Fatalf("key %s classified differently", k)
		}
	}

	shared := model.MergeKey{EmployeeID: "NV002", Period: "2025-01"}
	var fromAB, fromBA model.ReconciledRecord
	for _, r := range ab.Records {
		if r.Key == shared {
			fromAB = r
		}
	}
	for _, r := range ba.Records {
		if r.Key == shared {
			fromBA = r
		}
	}
	if !fromAB.Fields["tam_ung"].Number.Equal(decimal.NewFromInt(250)) || fromAB.Provenance["tam_ung"] != model.SourceFile2 {
		t.Fatalf("later source should win in (a,b): %+v", fromAB.Fields["tam_ung"])
	}
	if !fromBA.Fields["tam_ung"].Number.Equal(decimal.NewFromInt(200)) || fromBA.Provenance["tam_ung"] != model.SourceFile1 {
		t.Fatalf("later source should win in (b,a): %+v", fromBA.Fields["tam_ung"])
	}
	if len(fromAB.Conflicts) != 1 || fromAB.Conflicts[0].Winner != model.SourceFile2 {
		t.Fatalf("expected one conflict won by file2: %+v", fromAB.Conflicts)
	}
}

func TestReconcile_RequiredCheckedPerSourceWithoutBackfill(t *testing.T) {
	t.Parallel()

	required := model.ColumnMapping{ExcelColumnName: "Hệ số làm việc", DatabaseField: "he_so_lam_viec", DataType: model.KindNumber, IsRequired: true}
	f1 := source(model.SourceFile1, "a.xlsx", keyMappings(required), record(model.SourceFile1, "a.xlsx", 4, "NV001", "2025-01", nil))
	f2 := source(model.SourceFile2, "b.xlsx", keyMappings(), record(model.SourceFile2, "b.xlsx", 7, "NV001", "2025-01",
		map[string]model.FieldValue{"he_so_lam_viec": model.NumberValue(decimal.NewFromInt(1))}))

	res := Reconcile(f1, f2)
	if res.Success {
		t.Fatalf("file2 must not backfill file1's required field")
	}
	if res.Summary.ValidationErrors != 1 || len(res.Errors) != 1 {
		t.Fatalf("want one validation error got %v", res.Errors)
	}
	e := res.Errors[0]
	if e.Source != model.SourceFile1 || e.Row != 4 || e.Field != "he_so_lam_viec" || e.Category != model.CategoryRequired {
		t.Fatalf("unexpected error: %+v", e)
	}
	if len(res.Records) != 1 || res.Records[0].Classification != model.ClassBothFiles {
		t.Fatalf("record should still be reconciled: %+v", res.Records)
	}
}

func TestReconcile_EmptySources(t *testing.T) {
	t.Parallel()

	res := Reconcile(Source{ID: model.SourceFile1}, Source{ID: model.SourceFile2})
	if !res.Success || len(res.Records) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("empty reconciliation should be an empty success: %+v", res)
	}
}
