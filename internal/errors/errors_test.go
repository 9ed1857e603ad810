package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/studyflow/internal/errors"
)

func TestTransientStoreError_WrapsCause(t *testing.T) {
	cause := stderrors.New("database is locked")
	err := errors.NewTransientStoreError("set", cause)

	assert.Equal(t, 503, err.Status)
	assert.True(t, err.Retryable())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestCodeHelpers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("complete item: %w", errors.NewInvariantViolation("item %s not queued", "ANA_1"))

	assert.True(t, errors.IsInvariantViolation(wrapped))
	assert.False(t, errors.IsTransient(wrapped))
	assert.False(t, errors.IsNotFound(wrapped))
	assert.Equal(t, errors.ErrCodeInvariantViolation, errors.CodeOf(wrapped))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, "", errors.CodeOf(stderrors.New("boom")))
	assert.False(t, errors.NewNotFoundError("item", "x").Retryable())
}
