package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeOf(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, ErrCodeUnspecific, ErrorCodeOf(plain))

	coded := NewBusinessError(ErrCodePartyUnreachable, plain)
	assert.Equal(t, ErrCodePartyUnreachable, ErrorCodeOf(coded))

	// The code survives wrapping and the cause stays reachable.
	wrapped := fmt.Errorf("handling failed: %w", coded)
	assert.Equal(t, ErrCodePartyUnreachable, ErrorCodeOf(wrapped))
	assert.ErrorIs(t, wrapped, plain)
}
