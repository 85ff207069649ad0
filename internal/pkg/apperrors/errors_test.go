package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGuardViolation(t *testing.T) {
	assert.True(t, IsGuardViolation(ErrLoanClosed))
	assert.True(t, IsGuardViolation(fmt.Errorf("%w: loan GL-2024-X", ErrNotReadyForAuction)))
	assert.False(t, IsGuardViolation(ErrNotFound))
	assert.False(t, IsGuardViolation(ErrValidation))
	assert.False(t, IsGuardViolation(nil))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("amount", "must be positive")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "amount")
	assert.Contains(t, err.Error(), "must be positive")

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "amount", ve.Field)
}

func TestWrapDatabaseError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapDatabaseError(cause, "failed to load loan")

	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DB_ERROR")
}
