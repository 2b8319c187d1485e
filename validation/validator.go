// Package validation wraps go-playground/validator with the rules and error
// formatting shared by configuration loading and service call requests.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with custom validation rules.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom rules registered.
// Field names in errors are taken from koanf tags when present so they match
// configuration paths.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return tagName(f.Tag.Get("koanf"), f.Name)
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("httpmethod", validateHTTPMethod)
	_ = v.RegisterValidation("locale", validateLocale)

	return &Validator{validate: v}
}

// Struct validates s and returns a *ValidationError when any rule fails.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError collects field errors produced by a single validation run.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError describes one failed rule.
type FieldError struct {
	// Field is the dotted path without the root struct name, e.g. "http.timeoutwindow".
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// NewValidationError converts go-playground/validator errors into a ValidationError.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldPath(err.Namespace()),
			Tag:     err.Tag(),
			Message: errorMessage(err),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}

	return &ValidationError{Errors: fieldErrors}
}

func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}

	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	}

	msgs := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		msgs = append(msgs, fe.Message)
	}
	return fmt.Sprintf("validation failed: %d errors: %s", len(ve.Errors), strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func errorMessage(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "httpmethod":
		return fmt.Sprintf("%s must be a valid HTTP method", field)
	case "locale":
		return fmt.Sprintf("%s must be a valid BCP 47 language tag", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
