package establishment

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ipsco/fleet/pkg/serrors"
)

const (
	CodeDuplicateCode = "ESTABLISHMENT_CODE_CONFLICT"
	CodeCycle         = "ESTABLISHMENT_CYCLE"
	CodeHasDependents = "ESTABLISHMENT_HAS_DEPENDENTS"
)

var (
	ErrDuplicateCode = serrors.NewError(CodeDuplicateCode, "code already exists", "Establishment.Errors.CodeTaken")
	ErrCycle         = serrors.NewError(CodeCycle, "move would create a cycle", "Establishment.Errors.Cycle")
	ErrHasDependents = serrors.NewError(CodeHasDependents, "establishment has dependents", "Establishment.Errors.HasDependents")
)

type DuplicateCodeError struct {
	serrors.BaseError
	Value string
}

func NewDuplicateCodeError(code string) *DuplicateCodeError {
	return &DuplicateCodeError{
		BaseError: serrors.BaseError{
			Code:    CodeDuplicateCode,
			Message: fmt.Sprintf("code %q already exists", code),
			Locale:  ErrDuplicateCode.Locale,
		},
		Value: code,
	}
}

// CycleError is returned when a node would become its own ancestor.
type CycleError struct {
	serrors.BaseError
	NodeID      uuid.UUID
	NewParentID uuid.UUID
}

func NewCycleError(nodeID, newParentID uuid.UUID) *CycleError {
	return &CycleError{
		BaseError: serrors.BaseError{
			Code:    CodeCycle,
			Message: fmt.Sprintf("moving %s under %s would create a cycle", nodeID, newParentID),
			Locale:  ErrCycle.Locale,
		},
		NodeID:      nodeID,
		NewParentID: newParentID,
	}
}

type HasDependentsError struct {
	serrors.BaseError
	NodeID   uuid.UUID
	Actors   int
	Children int
}

func NewHasDependentsError(nodeID uuid.UUID, actors, children int) *HasDependentsError {
	return &HasDependentsError{
		BaseError: serrors.BaseError{
			Code:    CodeHasDependents,
			Message: fmt.Sprintf("establishment %s has %d actor(s) and %d child node(s)", nodeID, actors, children),
			Locale:  ErrHasDependents.Locale,
		},
		NodeID:   nodeID,
		Actors:   actors,
		Children: children,
	}
}

func NotFound(id uuid.UUID) *serrors.NotFoundError {
	return serrors.NewNotFoundError("establishment", id)
}
