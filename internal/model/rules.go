package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"msgkit/internal/domain"

	"github.com/go-playground/validator/v10"
)

var rules = newRules()

func newRules() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || ValidISO8601(s)
	}); err != nil {
		panic(err)
	}
	return v
}

var iso8601Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ValidISO8601 reports whether s is an ISO 8601 date or date-time.
func ValidISO8601(s string) bool {
	for _, layout := range iso8601Layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// checkFields runs the struct-tag rules of v. Every missing field is reported
// in a single finding; other rule failures are reported one per field.
func checkFields(object string, v any) []error {
	err := rules.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []error{domain.NewValidationError(domain.KindInvalidCombination, object, err.Error())}
	}

	var missing []string
	var out []error
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "required_if", "required_with", "required_without":
			missing = append(missing, fe.Field())
		case "max":
			out = append(out, domain.NewValidationError(domain.KindLengthExceeded, object,
				fmt.Sprintf("must be %s characters or less", fe.Param()), fe.Field()))
		case "iso8601":
			out = append(out, domain.NewValidationError(domain.KindInvalidTemporalValue, object,
				"must be a valid ISO 8601 date-time", fe.Field()))
		case "oneof":
			out = append(out, domain.NewValidationError(domain.KindInvalidCombination, object,
				fmt.Sprintf("must be one of %s", fe.Param()), fe.Field()))
		default:
			out = append(out, domain.NewValidationError(domain.KindInvalidCombination, object,
				fmt.Sprintf("failed %q rule", fe.Tag()), fe.Field()))
		}
	}
	if len(missing) > 0 {
		miss := domain.NewValidationError(domain.KindMissingRequiredField, object, "required", missing...)
		out = append([]error{miss}, out...)
	}
	return out
}

func missingField(object string, fields ...string) error {
	return domain.NewValidationError(domain.KindMissingRequiredField, object, "required", fields...)
}

func invalidCombination(object, message string, fields ...string) error {
	return domain.NewValidationError(domain.KindInvalidCombination, object, message, fields...)
}
