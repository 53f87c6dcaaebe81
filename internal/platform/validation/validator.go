package validation

import (
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the custom tag validations registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// "rut" validates Chilean tax identifiers, accepting dotted or plain forms.
	_ = v.RegisterValidation("rut", func(fl validatorv10.FieldLevel) bool {
		return ValidRUT(fl.Field().String())
	})

	return v
}

// ValidRUT reports whether the value is a well-formed Chilean RUT with a
// correct modulo-11 check digit. Empty values are rejected; optionality is the
// caller's concern.
func ValidRUT(value string) bool {
	cleaned := strings.ToUpper(strings.TrimSpace(value))
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if len(cleaned) < 2 {
		return false
	}

	body := cleaned[:len(cleaned)-1]
	check := cleaned[len(cleaned)-1]

	number, err := strconv.ParseInt(body, 10, 64)
	if err != nil || number <= 0 {
		return false
	}

	sum := 0
	factor := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	remainder := 11 - (sum % 11)
	var expected byte
	switch remainder {
	case 11:
		expected = '0'
	case 10:
		expected = 'K'
	default:
		expected = byte('0' + remainder)
	}
	return check == expected
}

// Errors flattens validator failures into a field->message map suitable for
// error envelope details.
func Errors(err error) map[string]any {
	out := map[string]any{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Tag()
		}
		return out
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}
