package precision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeNotAllowed negative value for a field that disallows sign
	ErrNegativeNotAllowed = errors.New("negative value not allowed")
	// ErrIntegerDigitsExceeded value does not fit the field's integer digits
	ErrIntegerDigitsExceeded = errors.New("integer digits exceed field precision")
)

// ViolationError hard precision violation of one field
type ViolationError struct {
	Field string
	Value decimal.Decimal
	Rule  Rule
	Err   error
}

func (e *ViolationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrIntegerDigitsExceeded):
		return fmt.Sprintf("%s: value %s has %d integer digits, max %d",
			e.Field, e.Value.String(), IntegerDigits(e.Value), e.Rule.MaxIntegerDigits)
	case errors.Is(e.Err, ErrNegativeNotAllowed):
		return fmt.Sprintf("%s: negative value %s not allowed", e.Field, e.Value.String())
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ViolationError) Unwrap() error {
	return e.Err
}

// Result validated value plus soft warnings
type Result struct {
	Value    decimal.Decimal
	Rounded  bool
	Warnings []string
}

// Validate checks v against rule. Sign and integer-digit violations are hard errors;
// excess decimals are rounded with a warning; implausible magnitudes only warn.
func Validate(field string, v decimal.Decimal, rule Rule) (Result, error) {
	res := Result{Value: v}

	if v.IsNegative() && !rule.AllowNegative {
		return res, &ViolationError{Field: field, Value: v, Rule: rule, Err: ErrNegativeNotAllowed}
	}

	// round before counting integer digits: 99.999 rounded to 2 places is 100.00
	if DecimalPlaces(v) > rule.MaxDecimalPlaces {
		rounded := v.Round(int32(rule.MaxDecimalPlaces))
		res.Value = rounded
		res.Rounded = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s rounded to %s (max %d decimal places)",
			field, v.String(), rounded.StringFixed(int32(rule.MaxDecimalPlaces)), rule.MaxDecimalPlaces))
	}

	if rule.MaxIntegerDigits > 0 && IntegerDigits(res.Value) > rule.MaxIntegerDigits {
		return res, &ViolationError{Field: field, Value: res.Value, Rule: rule, Err: ErrIntegerDigitsExceeded}
	}

	if !rule.PlausibleMax.IsZero() && res.Value.Abs().GreaterThan(rule.PlausibleMax) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s exceeds plausible %s (%s)",
			field, res.Value.String(), rule.PlausibleLabel, rule.PlausibleMax.String()))
	}

	return res, nil
}

// ValidateField validates using the table rule of field (or the default rule)
func ValidateField(field string, v decimal.Decimal) (Result, error) {
	return Validate(field, v, MustRule(field))
}

// IntegerDigits digits left of the decimal point of |v|; zero counts as one digit
func IntegerDigits(v decimal.Decimal) int {
	s := v.Abs().Truncate(0).String()
	return len(s)
}

// DecimalPlaces significant digits right of the decimal point; 1.50 has one
func DecimalPlaces(v decimal.Decimal) int {
	s := v.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
