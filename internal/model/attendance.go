package model

import "github.com/shopspring/decimal"

// DailyRecord attendance for one day of the period.
// CheckIn/CheckOut are "HH:MM"; an empty string means no time, which is not "00:00".
type DailyRecord struct {
	Day           int             `json:"day"`
	CheckIn       string          `json:"checkIn,omitempty"`
	CheckOut      string          `json:"checkOut,omitempty"`
	WorkedUnits   decimal.Decimal `json:"workedUnits"`
	OvertimeUnits decimal.Decimal `json:"overtimeUnits"`
}

// PeriodSummary aggregate figures for the period
type PeriodSummary struct {
	TotalHours        decimal.Decimal `json:"totalHours"`
	TotalDays         decimal.Decimal `json:"totalDays"`
	MealOvertimeHours decimal.Decimal `json:"mealOvertimeHours"`
	OvertimeHours     decimal.Decimal `json:"overtimeHours"`
	SickDays          decimal.Decimal `json:"sickDays"`
}

// Set assigns a summary value by field
func (s *PeriodSummary) Set(field SummaryField, v decimal.Decimal) {
	switch field {
	case SummaryTotalHours:
		s.TotalHours = v
	case SummaryTotalDays:
		s.TotalDays = v
	case SummaryMealOvertimeHours:
		s.MealOvertimeHours = v
	case SummaryOvertimeHours:
		s.OvertimeHours = v
	case SummarySickDays:
		s.SickDays = v
	}
}

// ParsedEntityRecord one employee-period assembled from a pair of rows
type ParsedEntityRecord struct {
	RowNumber   int           `json:"rowNumber"`
	EmployeeID  string        `json:"employeeId"`
	PeriodYear  int           `json:"periodYear"`
	PeriodMonth int           `json:"periodMonth"`
	Days        []DailyRecord `json:"days"`
	Summary     PeriodSummary `json:"summary"`
}

// AttendanceImportResult result envelope of an attendance import
type AttendanceImportResult struct {
	Success       bool                 `json:"success"`
	SessionID     string               `json:"sessionId"`
	SheetName     string               `json:"sheetName"`
	TotalEntities int                  `json:"totalEntities"`
	Records       []ParsedEntityRecord `json:"records"`
	Errors        []ImportIssue        `json:"errors"`
	Warnings      []ImportIssue        `json:"warnings"`
	Layout        *LayoutDescriptor    `json:"layout,omitempty"`
}
