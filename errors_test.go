package devfs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &ValidationError{
				Field:   "capacity",
				Value:   0,
				Message: "must be between 1 and 1073741824",
			},
			wantMsg: "validation error: capacity: must be between 1 and 1073741824",
		},
		{
			name: "without field",
			err: &ValidationError{
				Message: "invalid configuration",
			},
			wantMsg: "validation error: invalid configuration",
		},
		{
			name: "with wrapped error",
			err: &ValidationError{
				Field:   "offset",
				Message: "offset cannot be negative",
				Err:     ErrNegativeOffset,
			},
			wantMsg: "validation error: offset: offset cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}

			// Test Unwrap
			if tt.err.Err != nil {
				if unwrapped := tt.err.Unwrap(); unwrapped != tt.err.Err {
					t.Errorf("ValidationError.Unwrap() = %v, want %v", unwrapped, tt.err.Err)
				}
			}
		})
	}
}

func TestIOError(t *testing.T) {
	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name: "with path and offset",
			err: &IOError{
				Operation: "write",
				Path:      "my_device",
				Offset:    1024,
				Message:   ErrOutOfSpace.Error(),
				Err:       ErrOutOfSpace,
			},
			wantMsg: "io error: write my_device at offset 1024: no space left on device",
		},
		{
			name: "with path only",
			err: &IOError{
				Operation: "close",
				Path:      "my_device",
				Offset:    -1,
				Message:   "session is closed",
			},
			wantMsg: "io error: close my_device: session is closed",
		},
		{
			name: "minimal",
			err: &IOError{
				Operation: "open",
				Offset:    -1,
				Message:   "device is shut down",
			},
			wantMsg: "io error: open: device is shut down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("IOError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNewIOError(t *testing.T) {
	err := NewIOError("write", "my_device", 8, ErrOutOfSpace)

	if !IsIOError(err) {
		t.Error("NewIOError() should produce an IOError")
	}
	if !errors.Is(err, ErrOutOfSpace) {
		t.Error("NewIOError() should wrap the cause")
	}
	if !IsOutOfSpace(err) {
		t.Error("IsOutOfSpace() should see through IOError")
	}

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatal("errors.As failed")
	}
	if ioErr.Offset != 8 || ioErr.Path != "my_device" {
		t.Errorf("IOError = %+v, want offset 8 on my_device", ioErr)
	}
}

func TestTransferFault(t *testing.T) {
	err := newTransferFault(io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrTransferFault) {
		t.Error("transfer fault should match ErrTransferFault")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("transfer fault should match its cause")
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		isValidation bool
		isIO         bool
		isOutOfSpace bool
	}{
		{"nil", nil, false, false, false},
		{"validation", &ValidationError{Message: "bad"}, true, false, false},
		{"wrapped validation", fmt.Errorf("invalid config: %w", &ValidationError{Message: "bad"}), true, false, false},
		{"io", NewIOError("read", "my_device", 0, ErrNoMemory), false, true, false},
		{"out of space", ErrOutOfSpace, false, false, true},
		{"plain", errors.New("boom"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.isValidation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.isValidation)
			}
			if got := IsIOError(tt.err); got != tt.isIO {
				t.Errorf("IsIOError() = %v, want %v", got, tt.isIO)
			}
			if got := IsOutOfSpace(tt.err); got != tt.isOutOfSpace {
				t.Errorf("IsOutOfSpace() = %v, want %v", got, tt.isOutOfSpace)
			}
		})
	}
}
