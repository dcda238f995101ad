package serrors

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeAccessDenied = "ACCESS_DENIED"
)

// Sentinels for errors.Is; every typed error below matches its sentinel by code.
var (
	ErrValidation   = NewError(CodeValidation, "validation failed", "Errors.Validation")
	ErrNotFound     = NewError(CodeNotFound, "not found", "Errors.NotFound")
	ErrAccessDenied = NewError(CodeAccessDenied, "access denied", "Errors.AccessDenied")
)

// ValidationError reports malformed input. Fields is keyed by struct field.
type ValidationError struct {
	BaseError
	Fields ValidationErrors
}

func NewValidationError(fields ValidationErrors) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Code:    CodeValidation,
			Message: "validation failed: " + fields.Error(),
			Locale:  ErrValidation.Locale,
		},
		Fields: fields,
	}
}

// Invalid is a one-field shorthand for NewValidationError.
func Invalid(field, reason string) *ValidationError {
	return NewValidationError(ValidationErrors{field: reason})
}

type NotFoundError struct {
	BaseError
	Entity string
	ID     string
}

func NewNotFoundError(entity string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{
		BaseError: BaseError{
			Code:    CodeNotFound,
			Message: fmt.Sprintf("%s %s not found", entity, id),
			Locale:  ErrNotFound.Locale,
		},
		Entity: entity,
		ID:     id.String(),
	}
}

// AccessDeniedError never says whether the target exists.
type AccessDeniedError struct {
	BaseError
	ActorID  uuid.UUID
	TargetID uuid.UUID
	Reason   string
}

func NewAccessDeniedError(actorID, targetID uuid.UUID, reason string) *AccessDeniedError {
	return &AccessDeniedError{
		BaseError: BaseError{
			Code:    CodeAccessDenied,
			Message: "access denied",
			Locale:  ErrAccessDenied.Locale,
		},
		ActorID:  actorID,
		TargetID: targetID,
		Reason:   reason,
	}
}
