package alpaca

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		value   int
		name    string
		defined bool
	}{
		{Success, 0, "Success", false},
		{NotImplemented, 0x400, "NotImplemented", false},
		{InvalidValue, 0x401, "InvalidValue", false},
		{NotConnected, 0x407, "NotConnected", false},
		{InvalidOperation, 0x40B, "InvalidOperation", false},
		{UnspecifiedError, 0x4FF, "UnspecifiedError", false},
		{NotSupported, 0x500, "NotSupported", true},
		{CameraBusy, 0x503, "CameraBusy", true},
		{InternalError, 0x507, "InternalError", true},
		{FailedUnknown, 0x508, "FailedUnknown", true},
		{ErrorCode(0x9FF), 0x9FF, "ErrorCode(0x9FF)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.value, int(tt.code))
			assert.Equal(t, tt.name, tt.code.String())
			assert.Equal(t, tt.defined, tt.code.DriverDefined())
		})
	}
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	plain := AsError(errors.New("disk on fire"))
	assert.Equal(t, UnspecifiedError, plain.Code)
	assert.Equal(t, "disk on fire", plain.Message)
	assert.Equal(t, http.StatusOK, plain.HTTPStatus())

	wrapped := fmt.Errorf("moving: %w", NewError(InvalidValue, "Position %d out of range", 400))
	aerr := AsError(wrapped)
	assert.Equal(t, InvalidValue, aerr.Code)
	assert.Equal(t, "Position 400 out of range", aerr.Message)
}

func TestErrorIs(t *testing.T) {
	err := NewError(NotConnected, "Rotator is not connected")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotErrorIs(t, err, ErrInvalidValue)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrNotConnected)
	assert.Equal(t, "NotConnected (0x407): Rotator is not connected", err.Error())
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"device error", NewError(InvalidValue, "bad"), http.StatusOK},
		{"driver error", ErrCameraBusy, http.StatusOK},
		{"request error", NewRequestError(InvalidValue, "Keyword '%s' not specified", "Position"), http.StatusBadRequest},
		{"plain error", errors.New("x"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusCode(tt.err))
		})
	}
}
