package store

import (
	"database/sql"
	"fmt"

	"luongimport/internal/model"
)

// Built-in mapping configurations
const (
	ConfigEmployees    = "employees"
	ConfigPayrollFile1 = "payroll_file1"
	ConfigPayrollFile2 = "payroll_file2"
)

// ListMappings mappings of one configuration ordered by display order
func (s *Store) ListMappings(config string) ([]model.ColumnMapping, error) {
	rows, err := s.db.Query(`
		SELECT config_name, excel_column_name, database_field, data_type,
			is_required, default_value, display_order
		FROM column_mappings
		WHERE config_name = ?
		ORDER BY display_order, id
	`, config)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var out []model.ColumnMapping
	for rows.Next() {
		var m model.ColumnMapping
		var kind string
		if err := rows.Scan(&m.ConfigName, &m.ExcelColumnName, &m.DatabaseField, &kind,
			&m.IsRequired, &m.DefaultValue, &m.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.DataType = model.FieldKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListConfigNames names of all stored configurations
func (s *Store) ListConfigNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT config_name FROM column_mappings ORDER BY config_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplaceMappings atomically swaps the whole configuration for mappings
func (s *Store) ReplaceMappings(config string, mappings []model.ColumnMapping) error {
	return s.withTx(func(tx *sql.Tx) error {
		return replaceMappings(tx, config, mappings)
	})
}

func replaceMappings(tx *sql.Tx, config string, mappings []model.ColumnMapping) error {
	if _, err := tx.Exec(`DELETE FROM column_mappings WHERE config_name = ?`, config); err != nil {
		return fmt.Errorf("failed to clear mappings of %s: %w", config, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO column_mappings (
			config_name, excel_column_name, database_field, data_type,
			is_required, default_value, display_order
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		if _, err := stmt.Exec(config, m.ExcelColumnName, m.DatabaseField, string(m.DataType),
			m.IsRequired, m.DefaultValue, m.DisplayOrder); err != nil {
			return fmt.Errorf("failed to insert mapping %s: %w", m.DatabaseField, err)
		}
	}
	return nil
}

// SeedDefaultMappings installs the built-in configurations once. Later edits or
// deletions are never overwritten.
func (s *Store) SeedDefaultMappings() error {
	if _, err := s.GetSetting(SettingMappingsSeeded); err == nil {
		return nil
	}

	return s.withTx(func(tx *sql.Tx) error {
		for _, config := range []string{ConfigEmployees, ConfigPayrollFile1, ConfigPayrollFile2} {
			var n int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM column_mappings WHERE config_name = ?`, config).Scan(&n); err != nil {
				return fmt.Errorf("failed to count mappings of %s: %w", config, err)
			}
			if n > 0 {
				continue
			}
			if err := replaceMappings(tx, config, DefaultMappings(config)); err != nil {
				return err
			}
		}
		_, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, '1')
			ON CONFLICT(key) DO UPDATE SET value = '1', updated_at = CURRENT_TIMESTAMP
		`, SettingMappingsSeeded)
		return err
	})
}

// DefaultMappings built-in mappings of a configuration, nil for unknown names
func DefaultMappings(config string) []model.ColumnMapping {
	key := []model.ColumnMapping{
		{ExcelColumnName: "Mã nhân viên", DatabaseField: model.FieldEmployeeID, DataType: model.KindText, IsRequired: true, DisplayOrder: 1},
		{ExcelColumnName: "Tháng lương", DatabaseField: model.FieldSalaryMonth, DataType: model.KindText, IsRequired: true, DisplayOrder: 2},
	}

	var rest []model.ColumnMapping
	switch config {
	case ConfigEmployees:
		return withConfig(config, []model.ColumnMapping{
			{ExcelColumnName: "Mã nhân viên", DatabaseField: model.FieldEmployeeID, DataType: model.KindText, IsRequired: true, DisplayOrder: 1},
			{ExcelColumnName: "Họ và tên", DatabaseField: "ho_ten", DataType: model.KindText, IsRequired: true, DisplayOrder: 2},
			{ExcelColumnName: "Phòng ban", DatabaseField: "phong_ban", DataType: model.KindText, DisplayOrder: 3},
			{ExcelColumnName: "Chức vụ", DatabaseField: "chuc_vu", DataType: model.KindText, DisplayOrder: 4},
			{ExcelColumnName: "Ngày vào làm", DatabaseField: "ngay_vao_lam", DataType: model.KindDate, DisplayOrder: 5},
			{ExcelColumnName: "Lương cơ bản", DatabaseField: "luong_co_ban", DataType: model.KindNumber, DisplayOrder: 6},
		})
	case ConfigPayrollFile1:
		rest = []model.ColumnMapping{
			{ExcelColumnName: "Hệ số làm việc", DatabaseField: "he_so_lam_viec", DataType: model.KindNumber, DisplayOrder: 3},
			{ExcelColumnName: "Hệ số phụ cấp", DatabaseField: "he_so_phu_cap_ket_qua", DataType: model.KindNumber, DisplayOrder: 4},
			{ExcelColumnName: "Ngày công", DatabaseField: "ngay_cong_chuan", DataType: model.KindNumber, DisplayOrder: 5},
			{ExcelColumnName: "Tổng lương", DatabaseField: "tong_luong", DataType: model.KindNumber, DisplayOrder: 6},
		}
	case ConfigPayrollFile2:
		rest = []model.ColumnMapping{
			{ExcelColumnName: "Tiền khấu trừ", DatabaseField: "tien_khau_tru", DataType: model.KindNumber, DisplayOrder: 3},
			{ExcelColumnName: "Tạm ứng", DatabaseField: "tam_ung", DataType: model.KindNumber, DisplayOrder: 4},
			{ExcelColumnName: "Thực nhận", DatabaseField: "tien_luong_thuc_nhan_cuoi_ky", DataType: model.KindNumber, DisplayOrder: 5},
		}
	default:
		return nil
	}
	return withConfig(config, append(key, rest...))
}

func withConfig(config string, mappings []model.ColumnMapping) []model.ColumnMapping {
	for i := range mappings {
		mappings[i].ConfigName = config
	}
	return mappings
}
