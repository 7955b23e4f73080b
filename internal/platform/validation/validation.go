// Package validation adapts go-playground/validator to echo and renders
// failures as {"error":"Invalid data","details":[{"message":...}]}.
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const InvalidDataMessage = "Invalid data"

// Detail is one failed field rule.
type Detail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error is returned by Validate when a struct fails its tags.
type Error struct {
	Details []Detail
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Message
	}
	return "invalid data: " + strings.Join(msgs, "; ")
}

func (e *Error) StatusCode() int { return http.StatusBadRequest }

// Body is the JSON response for validation failures.
func (e *Error) Body() map[string]any {
	return map[string]any{
		"error":   InvalidDataMessage,
		"details": e.Details,
	}
}

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Details: []Detail{{Message: err.Error()}}}
	}

	out := &Error{Details: make([]Detail, 0, len(verrs))}
	for _, fe := range verrs {
		out.Details = append(out.Details, Detail{
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "email":
		return fmt.Sprintf("%s must be a valid email", f)
	case "e164":
		return fmt.Sprintf("%s must be a valid phone number", f)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", f)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s length must be at least %s characters long", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s length must be less than or equal to %s characters long", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", f)
	default:
		return fmt.Sprintf("%s is invalid", f)
	}
}

// Fail builds an Error carrying a single message.
func Fail(message string) *Error {
	return &Error{Details: []Detail{{Message: message}}}
}
