package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// FieldKind value kind of a mapped field
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
)

// ColumnMapping one Excel column -> database field rule of an import configuration.
// Supplied by configuration; the engine only applies it.
type ColumnMapping struct {
	ConfigName      string    `json:"configName" yaml:"config_name"`
	ExcelColumnName string    `json:"excelColumnName" yaml:"excel_column_name" validate:"required"`
	DatabaseField   string    `json:"databaseField" yaml:"database_field" validate:"required,max=100"`
	DataType        FieldKind `json:"dataType" yaml:"data_type" validate:"required,oneof=text number date"`
	IsRequired      bool      `json:"isRequired" yaml:"is_required"`
	DefaultValue    string    `json:"defaultValue,omitempty" yaml:"default_value"`
	DisplayOrder    int       `json:"displayOrder" yaml:"display_order" validate:"gte=0"`
}

// FieldValue tagged value of a mapped field; exactly one payload is meaningful, picked by Kind
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Number decimal.Decimal
	Date   time.Time
}

// TextValue creates a text value
func TextValue(s string) FieldValue {
	return FieldValue{Kind: KindText, Text: s}
}

// NumberValue creates a numeric value
func NumberValue(d decimal.Decimal) FieldValue {
	return FieldValue{Kind: KindNumber, Number: d}
}

// DateValue creates a date value
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: KindDate, Date: t}
}

// IsZero reports an empty text or an unset date. Numeric zero is a real value.
func (v FieldValue) IsZero() bool {
	switch v.Kind {
	case KindText:
		return v.Text == ""
	case KindNumber:
		return false
	case KindDate:
		return v.Date.IsZero()
	}
	return true
}

// Equal compares kind and payload
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindNumber:
		return v.Number.Equal(o.Number)
	case KindDate:
		return v.Date.Equal(o.Date)
	}
	return true
}

func (v FieldValue) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number.String()
	case KindDate:
		return v.Date.Format("2006-01-02")
	}
	return ""
}

// MarshalJSON renders the native kind: string, number or "YYYY-MM-DD"
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(v.Number.String()), nil
	case KindText, KindDate:
		return json.Marshal(v.String())
	}
	return []byte("null"), nil
}

// RawRow a data row as read from the sheet; RowNumber is 1-based
type RawRow struct {
	RowNumber int      `json:"rowNumber"`
	Cells     []string `json:"cells"`
}

// Cell returns the cell at idx, "" when out of range
func (r RawRow) Cell(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}

// MappedRecord a row after column mapping and value conversion
type MappedRecord struct {
	RowNumber  int                   `json:"rowNumber"`
	Source     SourceID              `json:"source,omitempty"`
	SourceFile string                `json:"sourceFile,omitempty"`
	Key        MergeKey              `json:"key"`
	Fields     map[string]FieldValue `json:"fields"`
	// Missing required fields, only filled when the required check is deferred
	Missing []string `json:"missing,omitempty"`
}

// Has reports whether the field exists with a non-empty value
func (r *MappedRecord) Has(field string) bool {
	if r == nil {
		return false
	}
	v, ok := r.Fields[field]
	return ok && !v.IsZero()
}

// TableImportResult result envelope of a generic mapped import
type TableImportResult struct {
	Success            bool            `json:"success"`
	SessionID          string          `json:"sessionId"`
	SheetName          string          `json:"sheetName"`
	TotalRecords       int             `json:"totalRecords"`
	Records            []*MappedRecord `json:"records"`
	Errors             []ImportIssue   `json:"errors"`
	Warnings           []ImportIssue   `json:"warnings"`
	UnresolvedMappings []string        `json:"unresolvedMappings,omitempty"`
}
