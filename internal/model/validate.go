package model

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", isFinite)
	return v
}

// Validate checks a request struct against its validate tags and reports
// failures as ValidationErrors.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var out error
	for _, fe := range fieldErrs {
		out = appendErr(out, invalid(fe.Field(), "%s", describe(fe)))
	}
	return out
}

// isFinite rejects NaN and infinities on float fields
func isFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}

func validateVar(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return invalid(field, "%s", describe(fieldErrs[0]))
	}
	return invalid(field, "is invalid")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "finite":
		return "must be a finite number"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func requireNotNull[T any](field string, o Optional[T]) error {
	if o.IsNull() {
		return invalid(field, "cannot be cleared")
	}
	return nil
}

func appendErr(err, next error) error {
	return multierr.Append(err, next)
}

func formString(values map[string][]string, field string) Optional[string] {
	v, ok := values[field]
	if !ok || len(v) == 0 || v[0] == "" {
		return Optional[string]{}
	}
	return Some(v[0])
}
