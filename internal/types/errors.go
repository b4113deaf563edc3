package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the power, wakeout and registry code paths.
var (
	ErrNotFound      = errors.New("not found")
	ErrNoMapping     = fmt.Errorf("no port mapping: %w", ErrNotFound)
	ErrUnsupported   = errors.New("operation not supported on this interface")
	ErrMisuse        = errors.New("misuse")
	ErrHardwareFault = errors.New("hardware fault")
	ErrInvalidLength = errors.New("invalid length")
)

// HardwareFaultError reports a line write or read that did not complete.
type HardwareFaultError struct {
	Op   string
	GPIO uint32
	Err  error
}

func (e *HardwareFaultError) Error() string {
	return fmt.Sprintf("hardware fault: %s gpio %d: %v", e.Op, e.GPIO, e.Err)
}

func (e *HardwareFaultError) Unwrap() error {
	return e.Err
}

func (e *HardwareFaultError) Is(target error) bool {
	return target == ErrHardwareFault
}

// NewHardwareFault wraps a driver error for the given operation and line.
func NewHardwareFault(op string, gpio uint32, err error) *HardwareFaultError {
	return &HardwareFaultError{Op: op, GPIO: gpio, Err: err}
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
