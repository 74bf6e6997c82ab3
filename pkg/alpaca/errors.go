package alpaca

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is an ASCOM status code as carried in the ErrorNumber field.
type ErrorCode int

// Standard ASCOM range.
const (
	Success              ErrorCode = 0
	NotImplemented       ErrorCode = 0x400
	InvalidValue         ErrorCode = 0x401
	ValueNotSet          ErrorCode = 0x402
	NotConnected         ErrorCode = 0x407
	InvalidWhileParked   ErrorCode = 0x408
	InvalidWhileSlaved   ErrorCode = 0x409
	InvalidOperation     ErrorCode = 0x40B
	ActionNotImplemented ErrorCode = 0x40C
	UnspecifiedError     ErrorCode = 0x4FF
)

// Driver-defined range (0x500 - 0xFFF).
const (
	NotSupported        ErrorCode = 0x500
	FailedToTakePicture ErrorCode = 0x501
	CameraDriverError   ErrorCode = 0x502
	CameraBusy          ErrorCode = 0x503
	DataFailure         ErrorCode = 0x504
	UnknownError        ErrorCode = 0x505
	RequestFormatError  ErrorCode = 0x506
	InternalError       ErrorCode = 0x507
	FailedUnknown       ErrorCode = 0x508
)

var errorCodeNames = map[ErrorCode]string{
	Success:              "Success",
	NotImplemented:       "NotImplemented",
	InvalidValue:         "InvalidValue",
	ValueNotSet:          "ValueNotSet",
	NotConnected:         "NotConnected",
	InvalidWhileParked:   "InvalidWhileParked",
	InvalidWhileSlaved:   "InvalidWhileSlaved",
	InvalidOperation:     "InvalidOperation",
	ActionNotImplemented: "ActionNotImplemented",
	UnspecifiedError:     "UnspecifiedError",
	NotSupported:         "NotSupported",
	FailedToTakePicture:  "FailedToTakePicture",
	CameraDriverError:    "CameraDriverError",
	CameraBusy:           "CameraBusy",
	DataFailure:          "DataFailure",
	UnknownError:         "UnknownError",
	RequestFormatError:   "RequestFormatError",
	InternalError:        "InternalError",
	FailedUnknown:        "FailedUnknown",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(0x%X)", int(c))
}

// DriverDefined reports whether the code lies in the driver-specific range.
func (c ErrorCode) DriverDefined() bool {
	return c >= 0x500 && c <= 0xFFF
}

// Error is an ASCOM error: a taxonomy code plus a human readable message.
// A non-zero status marks requests that could not be framed at all
// (missing keywords, unparsable values) and are answered with that HTTP status.
type Error struct {
	Code    ErrorCode
	Message string
	status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (0x%X): %s", e.Code, int(e.Code), e.Message)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus is the status line used when this error answers a request.
func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	return http.StatusOK
}

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewRequestError creates an Error for a malformed request, answered with 400.
func NewRequestError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), status: http.StatusBadRequest}
}

var (
	ErrNotImplemented         = &Error{Code: NotImplemented, Message: "Command not implemented"}
	ErrPropertyNotImplemented = &Error{Code: NotImplemented, Message: "Property not implemented"}
	ErrMethodNotImplemented   = &Error{Code: NotImplemented, Message: "Method not implemented"}
	ErrActionNotImplemented   = &Error{Code: ActionNotImplemented, Message: "Action not implemented"}
	ErrInvalidValue           = &Error{Code: InvalidValue, Message: "Invalid value"}
	ErrValueNotSet            = &Error{Code: ValueNotSet, Message: "Value not set"}
	ErrNotConnected           = &Error{Code: NotConnected, Message: "Device not connected"}
	ErrInvalidOperation       = &Error{Code: InvalidOperation, Message: "Invalid operation"}
	ErrCameraBusy             = &Error{Code: CameraBusy, Message: "Camera is busy"}
)

// AsError maps any error onto the taxonomy. Errors that are not already an
// *Error are reported as UnspecifiedError with their text as message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: UnspecifiedError, Message: err.Error()}
}

// StatusCode returns the HTTP status for the result of a command.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsError(err).HTTPStatus()
}
