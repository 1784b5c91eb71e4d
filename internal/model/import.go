package model

import "time"

// ImportKind which import path produced a session
type ImportKind string

const (
	ImportAttendance ImportKind = "attendance"
	ImportTable      ImportKind = "table"
	ImportPayroll    ImportKind = "payroll"
)

// Import session status
const (
	SessionProcessing = "processing"
	SessionSucceeded  = "succeeded"
	SessionPartial    = "partial" // finished with row-level errors
	SessionFailed     = "failed"
)

// ImportSession bookkeeping row of one import run
type ImportSession struct {
	ID           string     `json:"id"`
	Kind         ImportKind `json:"kind"`
	Filenames    string     `json:"filenames"`
	Actor        string     `json:"actor,omitempty"`
	Status       string     `json:"status"`
	TotalRecords int        `json:"totalRecords"`
	ErrorCount   int        `json:"errorCount"`
	WarningCount int        `json:"warningCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}
