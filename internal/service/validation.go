package service

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	tenDigits = regexp.MustCompile(`^[0-9]{10}$`)
	sixDigits = regexp.MustCompile(`^[0-9]{6}$`)
)

// NewValidator returns the validator shared by services, with the phone and pincode rules registered.
// Field errors are reported under their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("digits10", func(fl validator.FieldLevel) bool {
		return tenDigits.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return sixDigits.MatchString(fl.Field().String())
	})
	return validate
}

// FieldErrors flattens validator errors into field messages keyed by JSON name.
func FieldErrors(err validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(err))
	for _, fieldErr := range err {
		out = append(out, FieldError{Field: fieldErr.Field(), Message: validationMessage(fieldErr)})
	}
	return out
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fieldErr.Param()
	case "max":
		return "must be at most " + fieldErr.Param()
	case "gt":
		return "must be greater than " + fieldErr.Param()
	case "oneof":
		return "must be one of: " + fieldErr.Param()
	case "digits10":
		return "must be exactly 10 digits"
	case "pincode":
		return "must be a 6 digit pincode"
	default:
		return "failed " + fieldErr.Tag() + " validation"
	}
}
