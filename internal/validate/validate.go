// Package validate checks form input before it reaches the entity store.
// Each form is a struct with validator tags; raw string values are coerced
// into it, validated locally, and converted into the entity on success.
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// Errors maps a field's JSON name to its first failing rule's message.
type Errors map[string]string

// Error joins the messages in field order.
func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		msgs = append(msgs, e[f])
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the failing field names, sorted.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("integer", isInteger); err != nil {
		panic(err)
	}
	return v
}

// isInteger passes whole floats and every non-float kind.
func isInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		return f.Float() == math.Trunc(f.Float())
	}
	return true
}

// Label turns a JSON field name into the label used in messages,
// e.g. "start_date" becomes "Start date".
func Label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// check validates form and adds a message for every failing field not
// already in errs.
func check(form any, errs Errors) Errors {
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic(fmt.Sprintf("validate: %v", err))
	}
	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe)
	}
	return errs
}

func message(fe validator.FieldError) string {
	label := Label(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "integer":
		return label + " must be an integer."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(strings.Fields(fe.Param()), ", "))
	case "datetime":
		return label + " must be a date (YYYY-MM-DD)."
	case "email":
		return label + " must be a valid email address."
	}
	return fmt.Sprintf("%s is invalid.", label)
}

// text returns the trimmed string value of field.
func text(values map[string]string, field string) string {
	return strings.TrimSpace(values[field])
}

// number coerces field to a float. An empty value is zero; a value that
// is not a number records an error and yields zero.
func number(values map[string]string, field string, errs Errors) float64 {
	raw := text(values, field)
	if raw == "" {
		return 0
	}
	n, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		errs[field] = Label(field) + " must be a number."
		return 0
	}
	return n
}

// id coerces the optional "id" value. Anything but a positive integer
// is treated as absent.
func id(values map[string]string) int64 {
	raw := text(values, "id")
	if raw == "" {
		return 0
	}
	n, err := cast.ToInt64E(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
