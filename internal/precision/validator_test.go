package precision

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidate_IntegerDigitsOverflowIsHardError(t *testing.T) {
	t.Parallel()

	rule, ok := RuleFor("he_so_lam_viec")
	if !ok {
		t.Fatalf("missing rule he_so_lam_viec")
	}

	_, err := Validate("he_so_lam_viec", decimal.RequireFromString("1234.5"), rule)
	if !errors.Is(err, ErrIntegerDigitsExceeded) {
		t.Fatalf("want ErrIntegerDigitsExceeded, got %v", err)
	}
	var verr *ViolationError
	if !errors.As(err, &verr) || verr.Field != "he_so_lam_viec" {
		t.Fatalf("want ViolationError for field, got %#v", err)
	}
}

func TestValidate_ExcessDecimalsRoundedWithWarning(t *testing.T) {
	t.Parallel()

	rule := MustRule("he_so_lam_viec")
	res, err := Validate("he_so_lam_viec", decimal.RequireFromString("1.235"), rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rounded {
		t.Fatalf("expected rounded result")
	}
	if want := decimal.RequireFromString("1.24"); !res.Value.Equal(want) {
		t.Fatalf("value=%s want %s", res.Value, want)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings=%v", res.Warnings)
	}
}

func TestValidate_RoundingCannotEscapeIntegerCeiling(t *testing.T) {
	t.Parallel()

	rule := Rule{Field: "x", MaxIntegerDigits: 2, MaxDecimalPlaces: 2}
	_, err := Validate("x", decimal.RequireFromString("99.999"), rule)
	if !errors.Is(err, ErrIntegerDigitsExceeded) {
		t.Fatalf("99.999 rounds to 100.00, want ErrIntegerDigitsExceeded, got %v", err)
	}
}

func TestValidate_NegativeDisallowed(t *testing.T) {
	t.Parallel()

	_, err := ValidateField("tien_luong_tang_ca", decimal.NewFromInt(-5))
	if !errors.Is(err, ErrNegativeNotAllowed) {
		t.Fatalf("want ErrNegativeNotAllowed, got %v", err)
	}

	if _, err := ValidateField("tien_luong_thuc_nhan_cuoi_ky", decimal.NewFromInt(-5)); err != nil {
		t.Fatalf("net pay may be negative: %v", err)
	}
}

func TestValidate_PlausibilityOnlyWarns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		field string
		value string
	}{
		{"he_so_lam_viec", "150"},
		{"total_days", "32"},
		{"total_hours", "745"},
	}
	for _, tc := range cases {
		res, err := ValidateField(tc.field, decimal.RequireFromString(tc.value))
		if err != nil {
			t.Fatalf("%s=%s unexpected error: %v", tc.field, tc.value, err)
		}
		if len(res.Warnings) != 1 {
			t.Fatalf("%s=%s warnings=%v, want 1", tc.field, tc.value, res.Warnings)
		}
	}

	res, err := ValidateField("total_days", decimal.NewFromInt(22))
	if err != nil || len(res.Warnings) != 0 {
		t.Fatalf("22 days: err=%v warnings=%v", err, res.Warnings)
	}
}

func TestValidate_UnknownFieldUsesDefaultRule(t *testing.T) {
	t.Parallel()

	if _, ok := RuleFor("khong_co_trong_bang"); ok {
		t.Fatalf("unexpected rule")
	}
	res, err := ValidateField("khong_co_trong_bang", decimal.RequireFromString("-12000000.5"))
	if err != nil || len(res.Warnings) != 0 {
		t.Fatalf("err=%v warnings=%v", err, res.Warnings)
	}
}

func TestDigitsCounting(t *testing.T) {
	t.Parallel()

	if got := IntegerDigits(decimal.RequireFromString("0.75")); got != 1 {
		t.Fatalf("IntegerDigits(0.75)=%d", got)
	}
	if got := IntegerDigits(decimal.RequireFromString("-1234.5")); got != 4 {
		t.Fatalf("IntegerDigits(-1234.5)=%d", got)
	}
	if got := DecimalPlaces(decimal.RequireFromString("1.50")); got != 1 {
		t.Fatalf("DecimalPlaces(1.50)=%d", got)
	}
	if got := DecimalPlaces(decimal.NewFromInt(12)); got != 0 {
		t.Fatalf("DecimalPlaces(12)=%d", got)
	}
}

func TestRuleForReturnsCopy(t *testing.T) {
	t.Parallel()

	r, _ := RuleFor("total_days")
	r.MaxIntegerDigits = 99
	again, _ := RuleFor("total_days")
	if again.MaxIntegerDigits == 99 {
		t.Fatalf("rule table mutated through returned value")
	}
}
