package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	id := uuid.New()

	nf := fmt.Errorf("load: %w", NewNotFoundError("establishment", id))
	require.ErrorIs(t, nf, ErrNotFound)
	require.NotErrorIs(t, nf, ErrAccessDenied)

	var typed *NotFoundError
	require.True(t, errors.As(nf, &typed))
	require.Equal(t, id.String(), typed.ID)

	var base Base
	require.True(t, errors.As(nf, &base))
	require.Equal(t, CodeNotFound, base.ErrorCode())

	denied := NewAccessDeniedError(uuid.New(), id, "outside subtree")
	require.ErrorIs(t, denied, ErrAccessDenied)
	require.Equal(t, "access denied", denied.Error())

	v := Invalid("Name", "is required")
	require.ErrorIs(t, v, ErrValidation)
	require.Equal(t, "validation failed: Name: is required", v.Error())
}
