package respond

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// FieldErrors turns binding failures into per-field messages keyed by the
// snake_case form field name. Errors that are not validation failures are
// reported under "form".
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = "The submitted form could not be read."
		return out
	}
	for _, fe := range verrs {
		name := snakeCase(fe.Field())
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "eqfield":
		return "Passwords must match."
	case "gte", "lte":
		return "Value is out of range."
	default:
		return "Invalid value."
	}
}

// snakeCase maps Go field names to form names: ConfirmPassword becomes
// confirm_password and PH becomes ph.
func snakeCase(name string) string {
	var b strings.Builder
	var prev rune
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
