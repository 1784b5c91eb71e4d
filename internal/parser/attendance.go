package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"luongimport/internal/model"
	"luongimport/internal/precision"
)

// Precision rule names of the per-day unit cells
const (
	fieldWorkedUnits   = "worked_units"
	fieldOvertimeUnits = "overtime_units"
)

// AttendanceParser assembles attendance records from a sheet laid out as two physical
// rows per employee-period: check-in/check-out times on the first row, worked/overtime
// units on the second.
type AttendanceParser struct {
	sheet  *Sheet
	layout model.LayoutDescriptor
}

// NewAttendanceParser binds a sheet to its detected layout. An invalid layout is refused
// so that no record can be assembled from an uninterpretable sheet.
func NewAttendanceParser(sheet *Sheet, layout model.LayoutDescriptor) (*AttendanceParser, error) {
	if !layout.Valid() {
		return nil, fmt.Errorf("%w: invalid layout for sheet %q", ErrHeaderNotDetected, sheet.Name)
	}
	return &AttendanceParser{sheet: sheet, layout: layout}, nil
}

// Layout detected layout
func (p *AttendanceParser) Layout() model.LayoutDescriptor {
	return p.layout
}

// ParseAll walks the data rows two at a time from the layout's first data row
func (p *AttendanceParser) ParseAll(agg *model.Aggregator) []model.ParsedEntityRecord {
	var records []model.ParsedEntityRecord
	for row := p.layout.DataStartRow; row < p.sheet.RowCount(); row += 2 {
		if rec, ok := p.ParsePair(row, agg); ok {
			records = append(records, *rec)
		}
	}
	return records
}

// ParsePair assembles the pair (row, row+1), row being 0-based. It returns false when
// the pair is a blank spacer (no issue recorded) or was rejected (issue recorded).
func (p *AttendanceParser) ParsePair(row int, agg *model.Aggregator) (*model.ParsedEntityRecord, bool) {
	rowNumber := row + 1
	empID := p.sheet.EffectiveTrimmed(row, p.layout.IdentifierCol)
	if empID == "" {
		return nil, false
	}

	rawPeriod := p.sheet.EffectiveTrimmed(row, p.layout.PeriodCol)
	year, month, err := ParsePeriod(rawPeriod)
	if err != nil {
		if errors.Is(err, ErrMonthOutOfRange) {
			agg.Error(rowNumber, empID, model.CategoryRange, "period", "month %d out of range 1..12 in period %q", month, rawPeriod)
		} else {
			agg.Error(rowNumber, empID, model.CategoryFormat, "period", "cannot parse period %q", rawPeriod)
		}
		return nil, false
	}

	rec := &model.ParsedEntityRecord{
		RowNumber:   rowNumber,
		EmployeeID:  empID,
		PeriodYear:  year,
		PeriodMonth: month,
		Days:        make([]model.DailyRecord, 0, p.layout.DayCount),
	}

	c := cellReader{agg: agg, empID: empID}
	for day := 1; day <= p.layout.DayCount; day++ {
		col := p.layout.DayColumn(day)
		rec.Days = append(rec.Days, model.DailyRecord{
			Day:           day,
			CheckIn:       NormalizeTime(p.sheet.Value(row, col)),
			CheckOut:      NormalizeTime(p.sheet.Value(row, col+1)),
			WorkedUnits:   c.number(rowNumber+1, fieldWorkedUnits, p.sheet.Value(row+1, col)),
			OvertimeUnits: c.number(rowNumber+1, fieldOvertimeUnits, p.sheet.Value(row+1, col+1)),
		})
	}

	for _, field := range model.SummaryFields {
		col := p.layout.SummaryColumn(field)
		if col < 0 {
			continue
		}
		srcRow := row
		raw := p.sheet.EffectiveTrimmed(row, col)
		if raw == "" {
			srcRow = row + 1
			raw = p.sheet.EffectiveTrimmed(row+1, col)
		}
		rec.Summary.Set(field, c.number(srcRow+1, string(field), raw))
	}

	if c.rejected {
		return nil, false
	}
	return rec, true
}

// cellReader converts the numeric cells of one pair, remembering hard violations
type cellReader struct {
	agg      *model.Aggregator
	empID    string
	rejected bool
}

func (c *cellReader) number(rowNumber int, field, raw string) decimal.Decimal {
	cell, err := ReadNumeric(field, raw)
	for _, n := range cell.Notes {
		c.agg.Warn(rowNumber, c.empID, model.CategoryFormat, field, "%s", n)
	}
	if cell.Malformed {
		c.agg.Warn(rowNumber, c.empID, model.CategoryFormat, field, "%s: cannot parse number %q, using 0", field, strings.TrimSpace(raw))
		return decimal.Zero
	}
	if err != nil {
		c.agg.Error(rowNumber, c.empID, model.CategoryRange, field, "%v", err)
		c.rejected = true
		return decimal.Zero
	}
	for _, w := range cell.Warnings {
		c.agg.Warn(rowNumber, c.empID, model.CategoryRange, field, "%s", w)
	}
	return cell.Value
}

// NumericCell a numeric cell after normalization and precision validation
type NumericCell struct {
	Value     decimal.Decimal
	Empty     bool
	Malformed bool
	// Notes informational normalizer notes (percent conversion)
	Notes []string
	// Warnings soft precision findings (rounding, implausible magnitude)
	Warnings []string
}

// ReadNumeric normalizes raw and validates it against field's precision rule. The error
// is a *precision.ViolationError for hard violations; malformed text is reported through
// Malformed with a zero value.
func ReadNumeric(field, raw string) (NumericCell, error) {
	n := NormalizeNumber(raw)
	cell := NumericCell{Value: decimal.Zero, Empty: n.Empty, Notes: n.Notes}
	if n.Empty {
		return cell, nil
	}
	if !n.Valid {
		cell.Malformed = true
		return cell, nil
	}

	res, err := precision.ValidateField(field, n.Value)
	if err != nil {
		return cell, err
	}
	cell.Value = res.Value
	cell.Warnings = res.Warnings
	return cell, nil
}
