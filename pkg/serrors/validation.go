package serrors

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrors map[string]*Error

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// FromValidator maps go-playground validation failures onto coded field
// errors keyed by struct field name.
func FromValidator(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = NewError(
			"VALIDATION_"+strings.ToUpper(fe.Tag()),
			fmt.Sprintf("field %s failed on the %q rule", fe.Field(), fe.Tag()),
			fe.Field(),
		)
	}
	return out
}
