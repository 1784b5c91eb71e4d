// Package precision enforces the fixed-point storage contract of numeric fields.
package precision

import "github.com/shopspring/decimal"

// Class semantic class of a numeric field
type Class string

const (
	ClassCoefficient Class = "coefficient"
	ClassTime        Class = "time"
	ClassMoney       Class = "money"
)

// Rule fixed-point contract of one logical field
type Rule struct {
	Field            string
	MaxIntegerDigits int
	MaxDecimalPlaces int
	AllowNegative    bool
	Class            Class
	// PlausibleMax zero means no plausibility check
	PlausibleMax   decimal.Decimal
	PlausibleLabel string
}

var (
	maxCoefficient = decimal.NewFromInt(100)
	maxMonthDays   = decimal.NewFromInt(31)
	maxMonthHours  = decimal.NewFromInt(744)
)

func coefficient(field string) Rule {
	return Rule{Field: field, MaxIntegerDigits: 3, MaxDecimalPlaces: 2, Class: ClassCoefficient,
		PlausibleMax: maxCoefficient, PlausibleLabel: "coefficient"}
}

func monthDays(field string) Rule {
	return Rule{Field: field, MaxIntegerDigits: 2, MaxDecimalPlaces: 2, Class: ClassTime,
		PlausibleMax: maxMonthDays, PlausibleLabel: "days in month"}
}

func monthHours(field string) Rule {
	return Rule{Field: field, MaxIntegerDigits: 3, MaxDecimalPlaces: 2, Class: ClassTime,
		PlausibleMax: maxMonthHours, PlausibleLabel: "hours in month"}
}

func dayUnits(field string) Rule {
	return Rule{Field: field, MaxIntegerDigits: 2, MaxDecimalPlaces: 2, Class: ClassTime}
}

func money(field string, allowNegative bool) Rule {
	return Rule{Field: field, MaxIntegerDigits: 15, MaxDecimalPlaces: 2, AllowNegative: allowNegative, Class: ClassMoney}
}

// rules is read-only after package init
var rules = func() map[string]Rule {
	list := []Rule{
		// attendance
		monthHours("total_hours"),
		monthDays("total_days"),
		monthHours("meal_overtime_hours"),
		monthHours("overtime_hours"),
		monthDays("sick_days"),
		dayUnits("worked_units"),
		dayUnits("overtime_units"),

		// payroll coefficients
		coefficient("he_so_lam_viec"),
		coefficient("he_so_phu_cap_ket_qua"),
		coefficient("he_so_luong_co_ban"),
		coefficient("he_so_phu_cap_noi_lam_viec"),

		// payroll time
		monthDays("ngay_cong_trong_gio"),
		monthDays("ngay_cong_chu_nhat"),
		monthDays("ngay_cong_phep_le"),
		monthDays("tong_cong_tien_luong"),
		monthHours("gio_cong_tang_ca"),
		monthHours("gio_an_ca"),
		monthHours("tong_gio_lam_viec"),

		// payroll money
		money("luong_toi_thieu_cty", false),
		money("tien_luong_san_pham_trong_gio", false),
		money("tien_luong_tang_ca", false),
		money("tien_khen_thuong_chuyen_can", false),
		money("luong_hoc_viec_pc_luong", false),
		money("tong_cong_tien_luong_san_pham", false),
		money("tong_thu_nhap_truoc_thue", false),
		money("bhxh_bhtn_bhyt_total", false),
		money("thue_tncn", false),
		money("tam_ung", false),
		money("truy_thu_the_bhyt", false),
		money("tien_luong_thuc_nhan_cuoi_ky", true),
	}
	out := make(map[string]Rule, len(list))
	for _, r := range list {
		out[r.Field] = r
	}
	return out
}()

// DefaultRule applied to numeric fields without an explicit rule
func DefaultRule(field string) Rule {
	return money(field, true)
}

// RuleFor looks up the rule of a field. The returned value is a copy.
func RuleFor(field string) (Rule, bool) {
	r, ok := rules[field]
	return r, ok
}

// MustRule returns the field's rule, or DefaultRule when the table has none
func MustRule(field string) Rule {
	if r, ok := rules[field]; ok {
		return r
	}
	return DefaultRule(field)
}

// Fields names of all fields in the table
func Fields() []string {
	out := make([]string, 0, len(rules))
	for f := range rules {
		out = append(out, f)
	}
	return out
}
