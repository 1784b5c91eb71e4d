package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"luongimport/internal/model"
)

// ErrHeaderNotDetected identifier, period or first-day column missing
var ErrHeaderNotDetected = errors.New("cannot detect header columns")

// DefaultHeaderScanRows how many leading rows are tried as the header row
const DefaultHeaderScanRows = 10

const maxDaysInMonth = 31

// LayoutError header row lacking one or more required columns
type LayoutError struct {
	Missing []string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrHeaderNotDetected, strings.Join(e.Missing, ", "))
}

func (e *LayoutError) Unwrap() error {
	return ErrHeaderNotDetected
}

// summaryPatterns ordered literal substrings per summary group; first match wins
// within a group. Accented, unaccented and English variants are all listed even
// though folding makes some redundant, so each group reads as a complete rule.
var summaryPatterns = map[model.SummaryField][]string{
	model.SummaryMealOvertimeHours: {
		"tăng ca ăn", "tang ca an", "giờ ăn ca", "gio an ca", "ăn ca", "meal overtime", "meal ot",
	},
	model.SummaryOvertimeHours: {
		"giờ tăng ca", "gio tang ca", "tăng ca", "tang ca", "làm thêm", "lam them", "overtime",
	},
	model.SummarySickDays: {
		"nghỉ ốm", "nghi om", "ngày ốm", "ngay om", "ốm đau", "om dau", "sick",
	},
	model.SummaryTotalDays: {
		"tổng ngày công", "tong ngay cong", "tổng công", "tong cong", "ngày công", "ngay cong", "total days", "working days",
	},
	model.SummaryTotalHours: {
		"tổng giờ", "tong gio", "tổng số giờ", "tong so gio", "total hours", "giờ công", "gio cong",
	},
}

var periodExact = []string{"tháng", "thang", "month", "kỳ lương", "ky luong", "period", "tháng/năm", "thang/nam"}
var periodContains = []string{"tháng", "thang", "month"}

// isIdentifierLabel "Mã NV", "Mã nhân viên", "MSNV", "Employee ID"
func isIdentifierLabel(l label) bool {
	if l.contains("msnv") || l.contains("employee id") || l.contains("employee code") || l.contains("emp id") {
		return true
	}
	if !l.contains("mã") && !hasToken(l.folded, "ma") {
		return false
	}
	return hasToken(l.folded, "nv") || l.contains("nhân viên") || l.contains("nhan vien")
}

func hasToken(s, token string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f == token {
			return true
		}
	}
	return false
}

// matchSummary first summary group (priority order) whose patterns match
func matchSummary(l label) (model.SummaryField, bool) {
	for _, field := range model.SummaryFields {
		if l.firstMatch(summaryPatterns[field]) >= 0 {
			return field, true
		}
	}
	return "", false
}

// DetectLayout tries the first maxScanRows rows as header row and returns the layout of
// the first one that yields a valid descriptor. Header cells are merge-resolved, so a
// label merged vertically over several header rows is seen on each of them.
func DetectLayout(sheet *Sheet, maxScanRows int) (model.LayoutDescriptor, error) {
	if maxScanRows <= 0 {
		maxScanRows = DefaultHeaderScanRows
	}
	limit := maxScanRows
	if sheet.RowCount() < limit {
		limit = sheet.RowCount()
	}

	lastErr := fmt.Errorf("%w: sheet %q is empty", ErrHeaderNotDetected, sheet.Name)
	for r := 0; r < limit; r++ {
		layout, err := DetectLayoutFromHeader(sheet.HeaderRow(r))
		if err != nil {
			lastErr = err
			continue
		}
		layout.HeaderRow = r
		layout.DataStartRow = firstDataRow(sheet, layout, r)
		return layout, nil
	}
	return model.LayoutDescriptor{}, lastErr
}

// firstDataRow skips rows that still belong to the header: the identifier cell repeats
// the header label (a vertical merge) or is blank while the first day cell holds a
// sub-header label such as "Vào"/"Ra".
func firstDataRow(sheet *Sheet, layout model.LayoutDescriptor, headerRow int) int {
	headerLabel := sheet.EffectiveTrimmed(headerRow, layout.IdentifierCol)
	row := headerRow + 1
	for row < sheet.RowCount() {
		v := sheet.EffectiveTrimmed(row, layout.IdentifierCol)
		if v == headerLabel || (v == "" && isSubHeaderCell(sheet.EffectiveTrimmed(row, layout.FirstDayCol))) {
			row++
			continue
		}
		break
	}
	return row
}

func isSubHeaderCell(v string) bool {
	if v == "" || NormalizeTime(v) != "" {
		return false
	}
	return !NormalizeNumber(v).Valid
}

// DetectLayoutFromHeader locates the logical columns of one effective header row.
func DetectLayoutFromHeader(header []string) (model.LayoutDescriptor, error) {
	layout := model.LayoutDescriptor{
		IdentifierCol: -1,
		PeriodCol:     -1,
		FirstDayCol:   -1,
		Summary:       make(map[model.SummaryField]int),
	}
	claimed := make(map[int]string)

	for col, raw := range header {
		l := newLabel(raw)
		if l.empty() {
			continue
		}

		if layout.IdentifierCol < 0 && isIdentifierLabel(l) {
			layout.IdentifierCol = col
			claimed[col] = "identifier"
			continue
		}

		if layout.PeriodCol < 0 && l.firstMatchExact(periodExact) {
			layout.PeriodCol = col
			claimed[col] = "period"
			continue
		}

		if l.raw == "1" {
			if layout.FirstDayCol < 0 {
				layout.FirstDayCol = col
				claimed[col] = "day"
			}
			continue
		}
		if _, err := strconv.Atoi(l.raw); err == nil {
			continue
		}

		if field, ok := matchSummary(l); ok {
			if prev, exists := layout.Summary[field]; exists {
				delete(claimed, prev)
			}
			layout.Summary[field] = col
			claimed[col] = string(field)
			continue
		}

		if layout.PeriodCol < 0 && l.firstMatch(periodContains) >= 0 {
			layout.PeriodCol = col
			claimed[col] = "period"
		}
	}

	var missing []string
	if layout.IdentifierCol < 0 {
		missing = append(missing, "employee identifier")
	}
	if layout.PeriodCol < 0 {
		missing = append(missing, "period")
	}
	if layout.FirstDayCol < 0 {
		missing = append(missing, "first day column")
	}
	if len(missing) > 0 {
		return model.LayoutDescriptor{}, &LayoutError{Missing: missing}
	}

	layout.DayCount, layout.Notes = countDays(header, layout.FirstDayCol, claimed)
	return layout, nil
}

// countDays walks the day block two columns at a time expecting 1, 2, 3, ...
// It stops at the first non-matching header or at a claimed column. Summary columns
// are expected after the day block; one that interrupts it is reported in notes.
func countDays(header []string, firstDay int, claimed map[int]string) (int, []string) {
	var notes []string
	day := 1
	col := firstDay
	for ; col < len(header) && day <= maxDaysInMonth; col += 2 {
		if role, ok := claimed[col]; ok && col != firstDay {
			if next := findDayHeader(header, col+1, day); next >= 0 {
				notes = append(notes, fmt.Sprintf(
					"summary column %q (%s) at column %d interrupts the day columns; day %d found later at column %d is ignored",
					strings.TrimSpace(header[col]), role, col+1, day, next+1))
			}
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(header[col]))
		if err != nil || n != day {
			break
		}
		day++
	}
	return day - 1, notes
}

func findDayHeader(header []string, from, day int) int {
	want := strconv.Itoa(day)
	for c := from; c < len(header); c++ {
		if strings.TrimSpace(header[c]) == want {
			return c
		}
	}
	return -1
}

// firstMatchExact whether the label equals one of the patterns
func (l label) firstMatchExact(patterns []string) bool {
	for _, p := range patterns {
		if l.equals(p) {
			return true
		}
	}
	return false
}
