package torcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf_TypedAndUntyped(t *testing.T) {
	assert.Equal(t, NotFound, CodeOf(NewNotFound("workflow %d", 1)))
	assert.Equal(t, Conflict, CodeOf(NewConflict("dup")))
	assert.Equal(t, Internal, CodeOf(errors.New("plain error")))
}

func TestCodeOf_UnwrapsWrappedError(t *testing.T) {
	base := NewInvalidDag("cycle among %v", []int64{1, 2})
	wrapped := fmt.Errorf("initialize workflow: %w", base)
	assert.Equal(t, InvalidDag, CodeOf(wrapped))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("bbolt tx failed")
	err := NewInternal(cause, "claim jobs for workflow %d", 5)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "claim jobs for workflow 5")
}

func TestNewRetryableConflict(t *testing.T) {
	cause := errors.New("conflict")
	err := NewRetryableConflict(cause)
	assert.Equal(t, RetryableConflict, err.Code)
	assert.ErrorIs(t, err, cause)
}
