package parser

import "luongimport/internal/model"

// DefaultKeyFields merge-key fields of payroll tables: employee id and salary month
var DefaultKeyFields = []string{model.FieldEmployeeID, model.FieldSalaryMonth}

// ColumnMatch one mapping resolved to a sheet column
type ColumnMatch struct {
	Mapping     model.ColumnMapping `json:"mapping"`
	ColumnIndex int                 `json:"columnIndex"` // -1 when unresolved
	ColumnName  string              `json:"columnName"`
	Exact       bool                `json:"exact"`
}

// Resolution outcome of matching mappings against one header row
type Resolution struct {
	// Matches in mapping display order, unresolved included with ColumnIndex -1
	Matches []ColumnMatch `json:"matches"`
	// Columns database field -> column index of resolved mappings
	Columns    map[string]int        `json:"columns"`
	Unresolved []model.ColumnMapping `json:"unresolved"`
	// Suggestions database field -> closest unclaimed header label
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// Resolved number of resolved mappings
func (r Resolution) Resolved() int {
	return len(r.Columns)
}

// UnresolvedNames excel labels of the unresolved mappings
func (r Resolution) UnresolvedNames() []string {
	out := make([]string, 0, len(r.Unresolved))
	for _, m := range r.Unresolved {
		out = append(out, m.ExcelColumnName)
	}
	return out
}

// MapOptions per-call options of row mapping
type MapOptions struct {
	Source     model.SourceID
	SourceFile string
	// DeferRequired records missing required fields in MappedRecord.Missing instead of
	// rejecting the row; the caller then owns the required check.
	DeferRequired bool
	// KeyFields identifier and period field; when set each record gets a merge key
	KeyFields []string
	// SilentDuplicates suppresses the duplicate-key warning
	SilentDuplicates bool
}

func (o MapOptions) keyed() bool {
	return len(o.KeyFields) == 2
}

// MappedSheet records of one mapped sheet
type MappedSheet struct {
	SheetName  string                                 `json:"sheetName"`
	HeaderRow  int                                    `json:"headerRow"`
	Resolution Resolution                             `json:"resolution"`
	Records    []*model.MappedRecord                  `json:"records"`
	Keyed      map[model.MergeKey]*model.MappedRecord `json:"-"`
	// Rows data rows read, blank rows excluded
	Rows int `json:"rows"`
}
