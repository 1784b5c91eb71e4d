package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

const minutesPerDay = 24 * 60

// NormalizeTime converts a cell into "HH:MM". Accepted input:
//   - "H:MM", "HH:MM" (and "HH:MM:SS", seconds dropped)
//   - a spreadsheet fractional-day number (0.5 -> "12:00"); the integer part of a
//     date-time serial is ignored
//
// Anything else, including "0", "-" and "", returns "" (no time).
func NormalizeTime(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return ""
	}

	if m := clockRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h > 23 || mm > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", h, mm)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return ""
	}
	frac := f - math.Floor(f)
	minutes := int(math.Round(frac * minutesPerDay))
	if minutes <= 0 || minutes >= minutesPerDay {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NumberResult outcome of numeric normalization
type NumberResult struct {
	Value   decimal.Decimal
	Empty   bool // blank cell or "-"
	Valid   bool // parsed successfully; false with Empty=false means malformed input
	Percent bool
	Notes   []string
}

var currencyReplacer = strings.NewReplacer("₫", "", "đ", "", "Đ", "", "vnd", "", "VND", "", "％", "%")

// NormalizeNumber parses a locale-ambiguous numeric cell. Rules:
//   - whitespace anywhere is removed
//   - both ',' and '.': the later one is the decimal point, the other a thousands separator
//   - a single ',' is the decimal point; repeated ',' (or repeated '.') are thousands separators
//   - a trailing '%' divides by 100
//
// Malformed input yields zero with Valid=false; it never fails.
func NormalizeNumber(raw string) NumberResult {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	s = currencyReplacer.Replace(s)

	if s == "" || s == "-" {
		return NumberResult{Value: decimal.Zero, Empty: true}
	}

	res := NumberResult{Value: decimal.Zero}
	if strings.HasSuffix(s, "%") {
		res.Percent = true
		s = strings.TrimSuffix(s, "%")
	}
	s = strings.TrimPrefix(s, "+")

	s = resolveSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return res
	}

	if res.Percent {
		d = d.Div(decimal.NewFromInt(100))
		res.Notes = append(res.Notes, fmt.Sprintf("percentage %q converted to %s", strings.TrimSpace(raw), d.String()))
	}
	res.Value = d
	res.Valid = true
	return res
}

// resolveSeparators rewrites s so that '.' is the only decimal separator
func resolveSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
	"01-02-06", // US short date
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a date cell: day-first layouts, ISO layouts or an Excel serial number
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return excelSerialToTime(f), true
	}
	return time.Time{}, false
}

// excelSerialToTime converts a 1900-system serial date; base 1899-12-30 absorbs the leap-year bug
func excelSerialToTime(serial float64) time.Time {
	days := int(serial)
	frac := serial - float64(days)
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	t := base.AddDate(0, 0, days)
	sec := int64(frac*86400 + 0.5)
	return t.Add(time.Duration(sec) * time.Second)
}
