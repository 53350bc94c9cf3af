package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantStatus int
	}{
		{
			name:       "app error passes through",
			err:        NewNotFoundError("Houseguest not found"),
			wantType:   ErrorTypeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wrapped app error is unwrapped",
			err:        fmt.Errorf("update picks: %w", NewConflictError("Picks already submitted")),
			wantType:   ErrorTypeConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "plain error becomes internal",
			err:        fmt.Errorf("connection reset"),
			wantType:   ErrorTypeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromError(tt.err)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
		})
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationError("bad", nil))
	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeValidation))
}

func TestAppError_ErrorIncludesInternal(t *testing.T) {
	err := NewInternalError("Failed to load weeks", fmt.Errorf("timeout"))
	assert.Equal(t, "internal: Failed to load weeks (timeout)", err.Error())
	assert.EqualError(t, err.Unwrap(), "timeout")
}
