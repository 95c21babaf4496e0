// internal/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("outline: %w", NewProviderError("generation failed", cause))

	assert.True(t, IsProviderError(err))
	assert.False(t, IsValidationError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeProvider, TypeOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestMissingCredential(t *testing.T) {
	assert.True(t, IsMissingCredential(ErrMissingCredential))
	err := NewMissingCredentialError("set an API key")
	assert.True(t, IsMissingCredential(err))
	assert.Equal(t, "API_KEY_MISSING", err.Code)
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, "INVALID_TRANSITION", CodeFor(ErrorTypeInvalidTransition))
	assert.Equal(t, "UNKNOWN_ERROR", CodeFor("nope"))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}
