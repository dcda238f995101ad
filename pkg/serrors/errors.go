package serrors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Base is implemented by every structured error of the application.
type Base interface {
	error
	ErrorCode() string
	LocaleKey() string
}

// BaseError carries a stable machine code next to the human message.
type BaseError struct {
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	Locale       string            `json:"locale_key,omitempty"`
	TemplateData map[string]string `json:"-"`
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Locale:  localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) ErrorCode() string {
	return e.Code
}

func (e *BaseError) LocaleKey() string {
	return e.Locale
}

// Is matches any BaseError with the same code so sentinel values work with errors.Is.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithTemplateData returns a copy of the error carrying interpolation data.
func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	clone := *e
	clone.TemplateData = make(map[string]string, len(data))
	for k, v := range data {
		clone.TemplateData[k] = v
	}
	return &clone
}

// ValidationErrors maps a field name to a human readable reason.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(v))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v[field]))
	}
	return strings.Join(parts, "; ")
}

// ProcessValidatorErrors flattens validator output into ValidationErrors keyed by field name.
func ProcessValidatorErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "is required"
		case "oneof":
			out[fe.Field()] = fmt.Sprintf("must be one of [%s]", fe.Param())
		case "max":
			out[fe.Field()] = fmt.Sprintf("must be at most %s characters", fe.Param())
		case "min":
			out[fe.Field()] = fmt.Sprintf("must be at least %s characters", fe.Param())
		case "email":
			out[fe.Field()] = "must be a valid email address"
		default:
			out[fe.Field()] = fmt.Sprintf("failed on %q", fe.Tag())
		}
	}
	return out
}
