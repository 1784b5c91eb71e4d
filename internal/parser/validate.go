package parser

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"luongimport/internal/model"
)

// ValidateMappings checks struct tags, duplicate target fields and that key fields,
// when mapped, are text or date.
func ValidateMappings(v *validator.Validate, mappings []model.ColumnMapping) error {
	if len(mappings) == 0 {
		return errors.New("at least one mapping is required")
	}

	seen := make(map[string]bool, len(mappings))
	for i, m := range mappings {
		if err := v.Struct(m); err != nil {
			return describeValidation(i, err)
		}
		if seen[m.DatabaseField] {
			return fmt.Errorf("database field %s is mapped twice", m.DatabaseField)
		}
		seen[m.DatabaseField] = true
		for _, key := range DefaultKeyFields {
			if m.DatabaseField == key && m.DataType == model.KindNumber {
				return fmt.Errorf("key field %s cannot be numeric", key)
			}
		}
	}
	return nil
}

func describeValidation(idx int, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return fmt.Errorf("invalid mapping #%d: %s failed %q rule", idx+1, fe.Field(), fe.Tag())
}
