package model

// SummaryField logical summary column of an attendance sheet
type SummaryField string

const (
	SummaryTotalHours        SummaryField = "total_hours"
	SummaryTotalDays         SummaryField = "total_days"
	SummaryMealOvertimeHours SummaryField = "meal_overtime_hours"
	SummaryOvertimeHours     SummaryField = "overtime_hours"
	SummarySickDays          SummaryField = "sick_days"
)

// SummaryFields in detection priority order
var SummaryFields = []SummaryField{
	SummaryMealOvertimeHours,
	SummaryOvertimeHours,
	SummarySickDays,
	SummaryTotalDays,
	SummaryTotalHours,
}

// LayoutDescriptor facts derived from one sheet's header. Column indices are 0-based,
// -1 means "not found". Built once per sheet and never modified afterwards.
type LayoutDescriptor struct {
	HeaderRow     int                  `json:"headerRow"`
	DataStartRow  int                  `json:"dataStartRow"`
	IdentifierCol int                  `json:"identifierCol"`
	PeriodCol     int                  `json:"periodCol"`
	FirstDayCol   int                  `json:"firstDayCol"`
	DayCount      int                  `json:"dayCount"`
	Summary       map[SummaryField]int `json:"summary"`
	Notes         []string             `json:"notes,omitempty"`
}

// Valid identifier, period and first-day columns are all located
func (l LayoutDescriptor) Valid() bool {
	return l.IdentifierCol >= 0 && l.PeriodCol >= 0 && l.FirstDayCol >= 0 && l.DayCount > 0
}

// DayColumn column of the check-in (or worked-units) cell for day d (1-based).
// The check-out (or overtime-units) cell is DayColumn(d)+1.
func (l LayoutDescriptor) DayColumn(day int) int {
	return l.FirstDayCol + 2*(day-1)
}

// SummaryColumn column index of a summary field, -1 when absent
func (l LayoutDescriptor) SummaryColumn(field SummaryField) int {
	if col, ok := l.Summary[field]; ok {
		return col
	}
	return -1
}
