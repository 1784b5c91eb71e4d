package model

// SourceID which input file of the dual-file path a value came from
type SourceID string

const (
	SourceFile1 SourceID = "file1"
	SourceFile2 SourceID = "file2"
)

// Bookkeeping fields kept from the merge key rather than merged
const (
	FieldEmployeeID  = "employee_id"
	FieldSalaryMonth = "salary_month"
	FieldSourceFile  = "source_file"
)

// MergeKey composite join key; Period is canonical "YYYY-MM"
type MergeKey struct {
	EmployeeID string `json:"employeeId"`
	Period     string `json:"period"`
}

func (k MergeKey) String() string {
	return k.EmployeeID + "|" + k.Period
}

// IsZero key without identifier
func (k MergeKey) IsZero() bool {
	return k.EmployeeID == ""
}

// Classification completeness class of a reconciled key
type Classification string

const (
	ClassBothFiles Classification = "both_files"
	ClassFile1Only Classification = "file1_only"
	ClassFile2Only Classification = "file2_only"
)

// FieldConflict both sources supplied different values for a field
type FieldConflict struct {
	Field  string     `json:"field"`
	File1  FieldValue `json:"file1"`
	File2  FieldValue `json:"file2"`
	Winner SourceID   `json:"winner"`
}

// ReconciledRecord one merge key with the data of each source and per-field provenance.
// At least one of File1/File2 is always set.
type ReconciledRecord struct {
	Key            MergeKey              `json:"key"`
	Classification Classification        `json:"classification"`
	File1          *MappedRecord         `json:"file1,omitempty"`
	File2          *MappedRecord         `json:"file2,omitempty"`
	Fields         map[string]FieldValue `json:"fields"`
	Provenance     map[string]SourceID   `json:"provenance"`
	SourceFiles    string                `json:"sourceFiles"`
	Conflicts      []FieldConflict       `json:"conflicts,omitempty"`
}

// DualImportSummary completeness counters of a dual-file import
type DualImportSummary struct {
	File1Only        int `json:"file1_only"`
	File2Only        int `json:"file2_only"`
	BothFiles        int `json:"both_files"`
	ValidationErrors int `json:"validation_errors"`
}

// DualImportResult result envelope of the dual-file payroll import
type DualImportResult struct {
	Success          bool               `json:"success"`
	SessionID        string             `json:"session_id"`
	TotalEmployees   int                `json:"total_employees"`
	File1Processed   int                `json:"file1_processed"`
	File2Processed   int                `json:"file2_processed"`
	MatchedRecords   int                `json:"matched_records"`
	UnmatchedRecords int                `json:"unmatched_records"`
	Errors           []ImportIssue      `json:"errors"`
	Warnings         []ImportIssue      `json:"warnings"`
	Summary          DualImportSummary  `json:"summary"`
	Records          []ReconciledRecord `json:"records"`
}
