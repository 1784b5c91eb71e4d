package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrPeriodFormat text matches none of the supported period conventions
	ErrPeriodFormat = errors.New("unrecognized period format")
	// ErrMonthOutOfRange period is well-formed but the month is not 1..12
	ErrMonthOutOfRange = errors.New("month out of range")
)

var (
	monthFirstRe = regexp.MustCompile(`^(\d{1,2})\s*[-/]\s*(\d{4})$`)
	yearFirstRe  = regexp.MustCompile(`^(\d{4})\s*[-/]\s*(\d{1,2})$`)
	periodPrefix = []string{"tháng", "thang", "kỳ", "ky"}
)

// ParsePeriod extracts (year, month) from "MM-YYYY", "MM/YYYY", "YYYY-MM" or "YYYY/MM",
// optionally prefixed by "Tháng", or from the serial of a native date cell. A well-formed value with month outside 1..12 returns
// ErrMonthOutOfRange; anything else unparseable returns ErrPeriodFormat.
func ParsePeriod(text string) (year, month int, err error) {
	s := NormalizeLabel(text)
	for _, p := range periodPrefix {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}

	var ys, ms string
	if m := monthFirstRe.FindStringSubmatch(s); m != nil {
		ms, ys = m[1], m[2]
	} else if m := yearFirstRe.FindStringSubmatch(s); m != nil {
		ys, ms = m[1], m[2]
	} else if y, m, ok := serialPeriod(s); ok {
		return y, m, nil
	} else {
		return 0, 0, fmt.Errorf("%w: %q", ErrPeriodFormat, strings.TrimSpace(text))
	}

	year, _ = strconv.Atoi(ys)
	month, _ = strconv.Atoi(ms)
	if month < 1 || month > 12 {
		return year, month, fmt.Errorf("%w: %d in %q", ErrMonthOutOfRange, month, strings.TrimSpace(text))
	}
	return year, month, nil
}

// serial range of 1950-01-01 .. 2099-12-31, so a bare year such as "2025" is not taken for a date
const (
	minPeriodSerial = 18264
	maxPeriodSerial = 73050
)

// serialPeriod month of a native date cell read as its stored serial ("45306")
func serialPeriod(s string) (year, month int, ok bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < minPeriodSerial || f > maxPeriodSerial {
		return 0, 0, false
	}
	t := excelSerialToTime(f)
	return t.Year(), int(t.Month()), true
}

// FormatPeriod canonical "YYYY-MM"
func FormatPeriod(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// CanonicalPeriod parses and re-formats a period as "YYYY-MM"
func CanonicalPeriod(text string) (string, error) {
	y, m, err := ParsePeriod(text)
	if err != nil {
		return "", err
	}
	return FormatPeriod(y, m), nil
}
