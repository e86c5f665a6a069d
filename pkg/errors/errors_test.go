package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageFormatting(t *testing.T) {
	err := New("OFFER_INVALID", "offer rejected", http.StatusConflict)
	require.Equal(t, "offer rejected", err.Error())

	inner := stderrors.New("row not found")
	wrapped := err.WithInternal(inner)
	require.Equal(t, "offer rejected: row not found", wrapped.Error())
	require.ErrorIs(t, wrapped, inner)

	// WithInternal must not mutate the shared sentinel.
	require.Nil(t, err.Internal)
}

func TestFromErrorPassesThroughAppErrors(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrInvalidTransition)
	require.Equal(t, ErrInvalidTransition.Code, appErr.Code)

	generic := FromError(stderrors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.Equal(t, http.StatusInternalServerError, generic.StatusCode)
}

func TestWithMessageCopies(t *testing.T) {
	specific := ErrValidation.WithMessage("offer amount too low")
	require.Equal(t, "offer amount too low", specific.Message)
	require.Equal(t, ErrValidation.Code, specific.Code)
	require.Equal(t, "Request failed validation", ErrValidation.Message)
}

func TestWrapKeepsInternal(t *testing.T) {
	inner := stderrors.New("dial tcp: refused")
	err := Wrap(inner, "could not reach payment provider")
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.ErrorIs(t, err, inner)
}
