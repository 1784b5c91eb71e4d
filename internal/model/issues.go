package model

import "fmt"

// IssueCategory error/warning taxonomy
type IssueCategory string

const (
	CategoryStructural     IssueCategory = "structural"
	CategoryValidation     IssueCategory = "validation"
	CategoryFormat         IssueCategory = "format"
	CategoryDuplicate      IssueCategory = "duplicate"
	CategoryRange          IssueCategory = "range"
	CategoryRequired       IssueCategory = "required"
	CategoryReconciliation IssueCategory = "reconciliation"
)

// ImportIssue one error or warning. Row is 1-based and spreadsheet-relative, 0 when the
// issue concerns the whole sheet or key.
type ImportIssue struct {
	Row        int           `json:"row"`
	EmployeeID string        `json:"employeeId"`
	Category   IssueCategory `json:"category"`
	Field      string        `json:"field,omitempty"`
	Message    string        `json:"message"`
	Source     SourceID      `json:"source,omitempty"`
}

func (i ImportIssue) String() string {
	prefix := fmt.Sprintf("row %d", i.Row)
	if i.Source != "" {
		prefix = string(i.Source) + " " + prefix
	}
	if i.EmployeeID != "" {
		prefix += " (" + i.EmployeeID + ")"
	}
	return fmt.Sprintf("%s [%s]: %s", prefix, i.Category, i.Message)
}

// Aggregator append-only sink of import issues. Not safe for concurrent use;
// every import run owns its own aggregator.
type Aggregator struct {
	source   SourceID
	errors   []ImportIssue
	warnings []ImportIssue
}

// NewAggregator creates an aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// NewSourceAggregator creates an aggregator that tags every issue with src
func NewSourceAggregator(src SourceID) *Aggregator {
	return &Aggregator{source: src}
}

// AddError appends an error
func (a *Aggregator) AddError(issue ImportIssue) {
	if issue.Source == "" {
		issue.Source = a.source
	}
	a.errors = append(a.errors, issue)
}

// AddWarning appends a warning
func (a *Aggregator) AddWarning(issue ImportIssue) {
	if issue.Source == "" {
		issue.Source = a.source
	}
	a.warnings = append(a.warnings, issue)
}

// Error appends an error built from parts
func (a *Aggregator) Error(row int, employeeID string, category IssueCategory, field, format string, args ...any) {
	a.AddError(ImportIssue{
		Row:        row,
		EmployeeID: employeeID,
		Category:   category,
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Warn appends a warning built from parts
func (a *Aggregator) Warn(row int, employeeID string, category IssueCategory, field, format string, args ...any) {
	a.AddWarning(ImportIssue{
		Row:        row,
		EmployeeID: employeeID,
		Category:   category,
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Merge appends all issues of other
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil {
		return
	}
	for _, e := range other.errors {
		a.AddError(e)
	}
	for _, w := range other.warnings {
		a.AddWarning(w)
	}
}

// HasErrors reports whether at least one error was recorded
func (a *Aggregator) HasErrors() bool {
	return len(a.errors) > 0
}

// Errors snapshot of recorded errors
func (a *Aggregator) Errors() []ImportIssue {
	out := make([]ImportIssue, len(a.errors))
	copy(out, a.errors)
	return out
}

// Warnings snapshot of recorded warnings
func (a *Aggregator) Warnings() []ImportIssue {
	out := make([]ImportIssue, len(a.warnings))
	copy(out, a.warnings)
	return out
}

// CountErrors number of errors matching category
func (a *Aggregator) CountErrors(category IssueCategory) int {
	n := 0
	for _, e := range a.errors {
		if e.Category == category {
			n++
		}
	}
	return n
}
