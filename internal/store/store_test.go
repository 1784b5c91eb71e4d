package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"luongimport/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "luong.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplaceMappings_ReplacesWholeConfig(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	first := []model.ColumnMapping{
		{ExcelColumnName: "Mã nhân viên", DatabaseField: model.FieldEmployeeID, DataType: model.KindText, IsRequired: true, DisplayOrder: 2},
		{ExcelColumnName: "Phòng ban", DatabaseField: "phong_ban", DataType: model.KindText, DefaultValue: "Chung", DisplayOrder: 1},
	}
	if err := s.ReplaceMappings("custom", first); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.ListMappings("custom")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].DatabaseField != "phong_ban" || got[0].DefaultValue != "Chung" {
		t.Fatalf("unexpected mappings: %+v", got)
	}
	if !got[1].IsRequired || got[1].DataType != model.KindText || got[1].ConfigName != "custom" {
		t.Fatalf("unexpected mapping: %+v", got[1])
	}

	if err := s.ReplaceMappings("custom", first[:1]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = s.ListMappings("custom")
	if len(got) != 1 {
		t.Fatalf("want 1 mapping after replace got %d", len(got))
	}
}

func TestReplaceMappings_RollsBackOnDuplicateField(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	keep := []model.ColumnMapping{{ExcelColumnName: "Tạm ứng", DatabaseField: "tam_ung", DataType: model.KindNumber}}
	if err := s.ReplaceMappings("custom", keep); err != nil {
		t.Fatalf("replace: %v", err)
	}

	dup := []model.ColumnMapping{
		{ExcelColumnName: "A", DatabaseField: "x", DataType: model.KindText},
		{ExcelColumnName: "B", DatabaseField: "x", DataType: model.KindText},
	}
	if err := s.ReplaceMappings("custom", dup); err == nil {
		t.Fatalf("expected unique constraint error")
	}
	got, _ := s.ListMappings("custom")
	if len(got) != 1 || got[0].DatabaseField != "tam_ung" {
		t.Fatalf("previous config should survive a failed replace: %+v", got)
	}
}

func TestSeedDefaultMappings_OnlyOnce(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.SeedDefaultMappings(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	names, err := s.ListConfigNames()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("want 3 configs got %v", names)
	}

	if err := s.ReplaceMappings(ConfigEmployees, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.SeedDefaultMappings(); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	got, _ := s.ListMappings(ConfigEmployees)
	if len(got) != 0 {
		t.Fatalf("cleared config must not be reseeded: %+v", got)
	}
}

func TestImportSession_Lifecycle(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	sess := model.ImportSession{
		ID:        "3f0b6c1e-0000-4000-8000-000000000001",
		Kind:      model.ImportPayroll,
		Filenames: "a.xlsx, b.xlsx",
		Actor:     "hr",
		StartedAt: time.Now(),
	}
	if err := s.CreateImportSession(sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetImportSession(sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.SessionProcessing || got.CompletedAt != nil || got.Kind != model.ImportPayroll {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := s.FinishImportSession(sess.ID, model.SessionPartial, 10, 2, 3, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, _ = s.GetImportSession(sess.ID)
	if got.Status != model.SessionPartial || got.TotalRecords != 10 || got.ErrorCount != 2 || got.WarningCount != 3 || got.CompletedAt == nil {
		t.Fatalf("unexpected finished session: %+v", got)
	}

	last, err := s.GetSetting(SettingLastSessionID)
	if err != nil || last != sess.ID {
		t.Fatalf("last session not recorded: %q %v", last, err)
	}
	counts, err := s.CountImportSessions()
	if err != nil || counts[model.SessionPartial] != 1 {
		t.Fatalf("unexpected counts: %v %v", counts, err)
	}
}

func TestImportSession_NotFound(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if _, err := s.GetImportSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound got %v", err)
	}
	if err := s.FinishImportSession("missing", model.SessionFailed, 0, 0, 0, "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound got %v", err)
	}
	if _, err := s.GetSetting("nope"); !errors.Is(err, ErrSettingNotFound) {
		t.Fatalf("want ErrSettingNotFound got %v", err)
	}
}
