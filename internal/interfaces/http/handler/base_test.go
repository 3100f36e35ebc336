package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/salesops/backend/internal/domain/agreement"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestErrorInfo(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{
			name:    "wrapped deadline",
			err:     fmt.Errorf("query archive: %w", context.DeadlineExceeded),
			code:    dto.ErrCodeDataSource,
			message: shared.ErrDataSourceFailure.Message,
		},
		{
			name:    "domain error keeps code",
			err:     fmt.Errorf("lookup: %w", shared.ErrNotFound),
			code:    dto.ErrCodeNotFound,
			message: shared.ErrNotFound.Message,
		},
		{
			name:    "input error carries reason",
			err:     fmt.Errorf("%w: trailing years must be >= 0", shared.ErrInvalidInput),
			code:    dto.ErrCodeInvalidInput,
			message: "Invalid input provided: trailing years must be >= 0",
		},
		{
			name: "invalid state",
			err:  agreement.ErrInvalidTransition,
			code: dto.ErrCodeInvalidState,
		},
		{
			name:    "plain error hidden",
			err:     errors.New("pq: relation does not exist"),
			code:    dto.ErrCodeInternal,
			message: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := errorInfo(tt.err, "req-1")
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, "req-1", info.RequestID)
			if tt.message != "" {
				assert.Equal(t, tt.message, info.Message)
			}
		})
	}
}
