package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate *validator.Validate

	uidPattern        = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	alphaSpacePattern = regexp.MustCompile(`^[A-Za-z ]+$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so errors match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Money is validated as a float so gt/gte/lte work on decimals.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation("uid", func(fl validator.FieldLevel) bool {
		return uidPattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return alphaSpacePattern.MatchString(fl.Field().String())
	})
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	return validate.Struct(v)
}

// Var validates a single value against a tag expression.
func Var(v interface{}, tag string) error {
	return validate.Var(v, tag)
}

// Message turns a field error into a short human readable rule description.
func Message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	case "oneof":
		return "Value must be one of: " + e.Param()
	case "alpha":
		return "Value must contain letters only"
	case "alphaspace":
		return "Value must contain letters and spaces only"
	case "uid":
		return "Value may contain only letters, digits, '-' and '_'"
	case "uuid":
		return "Value must be a valid UUID"
	case "dive":
		return "Invalid list entry"
	default:
		return "Invalid value"
	}
}
