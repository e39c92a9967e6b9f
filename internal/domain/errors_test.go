package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

func TestIsInvariantViolation(t *testing.T) {
	assert.True(t, domain.IsInvariantViolation(domain.ErrBatchAlreadyExists))
	assert.True(t, domain.IsInvariantViolation(domain.ErrInvalidStatusTransition))
	assert.True(t, domain.IsInvariantViolation(domain.ErrInsufficientQuantity))
	assert.True(t, domain.IsInvariantViolation(domain.ErrUnknownParent))
	assert.True(t, domain.IsInvariantViolation(domain.ErrBatchNotFound))

	// Wrapped errors are still recognized
	assert.True(t, domain.IsInvariantViolation(
		fmt.Errorf("batch 7: %w", domain.ErrUnknownParent)))

	assert.False(t, domain.IsInvariantViolation(domain.ErrUnknownEvent))
	assert.False(t, domain.IsInvariantViolation(errors.New("connection reset")))
	assert.False(t, domain.IsInvariantViolation(nil))
}

func TestIsTerminalEventError(t *testing.T) {
	assert.True(t, domain.IsTerminalEventError(domain.ErrUnknownEvent))
	assert.True(t, domain.IsTerminalEventError(domain.ErrInvalidStatusTransition))

	// Infrastructure errors stay retryable
	assert.False(t, domain.IsTerminalEventError(errors.New("connection reset")))
	assert.False(t, domain.IsTerminalEventError(domain.ErrDuplicateEvent))
}
