package devfs

import (
	"fmt"
)

// Input validation helpers shared by the buffer, sessions and key setup

// ValidateOffset checks if a device offset is valid
func ValidateOffset(offset int64, name string) error {
	if offset < 0 {
		return &ValidationError{
			Field:   name,
			Value:   offset,
			Message: "offset cannot be negative",
			Err:     ErrNegativeOffset,
		}
	}
	return nil
}

// ValidateSize checks if a transfer length is valid
func ValidateSize(size int, name string) error {
	if size < 0 {
		return &ValidationError{
			Field:   name,
			Value:   size,
			Message: "size cannot be negative",
			Err:     ErrInvalidSize,
		}
	}
	return nil
}

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
		}
	}

	if len(key) != expectedSize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), expectedSize),
		}
	}

	return nil
}

// ValidateTransfer checks common preconditions for read/write operations
func ValidateTransfer(offset int64, length int) error {
	if err := ValidateOffset(offset, "offset"); err != nil {
		return err
	}
	return ValidateSize(length, "length")
}
