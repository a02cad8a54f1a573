package devfs

import (
	"errors"
	"fmt"
)

// Error types represent different categories of errors

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IOError represents a failed device operation
type IOError struct {
	Operation string // "read", "write", "open", "close", ...
	Path      string // Device node name
	Offset    int64  // Session offset, -1 if not applicable
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" && e.Offset >= 0 {
		return fmt.Sprintf("io error: %s %s at offset %d: %s", e.Operation, e.Path, e.Offset, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	// ErrOutOfSpace is returned by writes that start at or past the capacity
	ErrOutOfSpace = errors.New("no space left on device")
	// ErrNoMemory is returned when a scratch region cannot be acquired
	ErrNoMemory = errors.New("cannot allocate scratch memory")
	// ErrTransferFault is returned when the caller side of a copy fails
	ErrTransferFault = errors.New("transfer fault")

	ErrSessionClosed        = errors.New("session is closed")
	ErrDeviceClosed         = errors.New("device is shut down")
	ErrNegativeOffset       = errors.New("negative offset not allowed")
	ErrInvalidSize          = errors.New("invalid size parameter")
	ErrUnsupportedTransform = errors.New("unsupported transform")
	ErrNilConfig            = errors.New("config cannot be nil")
	ErrNilKeyProvider       = errors.New("key provider cannot be nil")
	ErrNotSupported         = errors.New("operation not supported by device")
)

// Helper functions for creating structured errors

// NewIOError creates a new I/O error
func NewIOError(operation, path string, offset int64, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Offset:    offset,
		Message:   err.Error(),
		Err:       err,
	}
}

// newTransferFault wraps a caller-side failure so it matches both
// ErrTransferFault and the underlying cause
func newTransferFault(cause error) error {
	return fmt.Errorf("%w: %w", ErrTransferFault, cause)
}

// Error checking helpers

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// IsOutOfSpace reports whether err means the device is full at the offset
func IsOutOfSpace(err error) bool {
	return errors.Is(err, ErrOutOfSpace)
}
