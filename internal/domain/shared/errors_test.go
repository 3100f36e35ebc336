package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("run report: %w", ErrAccessDenied)

	assert.ErrorIs(t, wrapped, ErrAccessDenied)
	assert.NotErrorIs(t, wrapped, ErrForbidden)

	// a fresh error with the same code matches the sentinel
	assert.ErrorIs(t, NewDomainError("NOT_FOUND", "Agreement not found"), ErrNotFound)
	assert.False(t, errors.Is(errors.New("NOT_FOUND"), ErrNotFound))
}

func TestDomainError_As(t *testing.T) {
	var de *DomainError
	err := fmt.Errorf("query: %w", ErrDataSourceFailure)

	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "DATA_SOURCE_ERROR", de.Code)
	assert.Equal(t, "Sales history could not be read", de.Error())
}
