package devfs

import (
	"fmt"
	"sync"
)

// Buffer is the fixed-capacity storage region behind a device. It only
// ever holds the transformed representation of the data written to it,
// and its backing slice never leaves the package.
type Buffer struct {
	mu        sync.Mutex
	data      []byte // nil after free
	capacity  int64
	transform Transform
	scratch   *scratchPool
}

// NewBuffer allocates a buffer of the given capacity. Fresh contents read
// back as zero bytes.
func NewBuffer(capacity int64, t Transform, scratchLimit int64) (*Buffer, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, &ValidationError{
			Field:   "capacity",
			Value:   capacity,
			Message: "out of range",
			Err:     ErrInvalidSize,
		}
	}
	if t == nil {
		return nil, &ValidationError{Field: "transform", Message: "transform cannot be nil"}
	}

	data := make([]byte, capacity)
	t.Apply(data, data, 0)

	return &Buffer{
		data:      data,
		capacity:  capacity,
		transform: t,
		scratch:   newScratchPool(scratchLimit),
	}, nil
}

// Capacity returns the fixed buffer size
func (b *Buffer) Capacity() int64 {
	return b.capacity
}

// clamp returns how many of length bytes fit at off
func (b *Buffer) clamp(off int64, length int) int {
	if remaining := b.capacity - off; int64(length) > remaining {
		return int(remaining)
	}
	return length
}

// ReadAt decodes up to length bytes starting at off and hands them to
// deliver. It returns the number of bytes delivered.
//
// An offset at or past the capacity is end of data: (0, nil). A request
// crossing the end is truncated. The buffer lock covers only the decode
// into scratch; deliver runs after it is released. If the scratch region
// cannot be acquired the result is ErrNoMemory; if deliver fails the
// result wraps ErrTransferFault. In both cases nothing is delivered.
func (b *Buffer) ReadAt(off int64, length int, deliver func(p []byte) error) (int, error) {
	if err := ValidateTransfer(off, length); err != nil {
		return 0, err
	}
	if off >= b.capacity {
		return 0, nil
	}
	n := b.clamp(off, length)

	scratch, err := b.scratch.acquire(n)
	if err != nil {
		return 0, err
	}
	defer b.scratch.release(scratch)

	b.mu.Lock()
	if b.data == nil {
		b.mu.Unlock()
		return 0, ErrDeviceClosed
	}
	b.transform.Apply(scratch, b.data[off:off+int64(n)], off)
	b.mu.Unlock()

	if err := runCallback(deliver, scratch); err != nil {
		return 0, newTransferFault(err)
	}
	return n, nil
}

// WriteAt asks fill for up to length caller bytes, encodes them and
// stores them starting at off. It returns the number of bytes stored.
//
// An offset at or past the capacity fails with ErrOutOfSpace. A request
// crossing the end is truncated and the short count returned without
// error. fill runs before the buffer lock is taken; only the encode into
// storage is locked. Scratch exhaustion (ErrNoMemory) and fill failures
// (ErrTransferFault) leave the buffer untouched.
func (b *Buffer) WriteAt(off int64, length int, fill func(p []byte) error) (int, error) {
	if err := ValidateTransfer(off, length); err != nil {
		return 0, err
	}
	if off >= b.capacity {
		return 0, ErrOutOfSpace
	}
	n := b.clamp(off, length)

	scratch, err := b.scratch.acquire(n)
	if err != nil {
		return 0, err
	}
	defer b.scratch.release(scratch)

	if err := runCallback(fill, scratch); err != nil {
		return 0, newTransferFault(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return 0, ErrDeviceClosed
	}
	b.transform.Apply(b.data[off:off+int64(n)], scratch, off)
	return n, nil
}

// runCallback calls fn on p and turns a panic into an error. Callbacks
// run outside the buffer lock, so a panic cannot leave it held.
func runCallback(fn func([]byte) error, p []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transfer callback: %v", r)
		}
	}()
	return fn(p)
}

// Raw copies the stored (transformed) bytes at off into dst
func (b *Buffer) Raw(dst []byte, off int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil || off < 0 || off >= b.capacity {
		return 0
	}
	return copy(dst, b.data[off:])
}

// free wipes and drops the storage; later operations fail with
// ErrDeviceClosed
func (b *Buffer) free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.data)
	b.data = nil
}
