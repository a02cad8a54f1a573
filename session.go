package devfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// copyChunkSize bounds each step of ReadFrom and WriteTo
const copyChunkSize = 32 * 1024

// Session is one open-to-close interaction with a device. It owns an
// offset cursor and satisfies absfs.File, io.ReaderFrom and io.WriterTo.
//
// A Session may be shared between goroutines; its cursor is guarded by
// its own lock.
type Session struct {
	dev   *Device
	id    uuid.UUID
	start time.Time

	// readable and writable come from the open flags and never change
	readable bool
	writable bool

	mu     sync.Mutex
	offset int64
	closed bool
}

// ID returns the session's unique identifier
func (s *Session) ID() uuid.UUID { return s.id }

// Started returns the time the session was opened
func (s *Session) Started() time.Time { return s.start }

// Offset returns the current cursor position
func (s *Session) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Name returns the path of the device node
func (s *Session) Name() string {
	return "/" + s.dev.Name()
}

// transfer runs op at the cursor and advances it by the bytes moved
func (s *Session) transfer(op string, fn func(off int64) (int, error)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewIOError(op, s.dev.Name(), s.offset, ErrSessionClosed)
	}
	if err := s.access(op); err != nil {
		return 0, err
	}

	n, err := fn(s.offset)
	if err != nil {
		return 0, NewIOError(op, s.dev.Name(), s.offset, err)
	}
	s.offset += int64(n)
	return n, nil
}

// access fails with EBADF when the open mode does not allow op
func (s *Session) access(op string) error {
	if (op == "read" && !s.readable) || (op == "write" && !s.writable) {
		return &os.PathError{Op: op, Path: s.Name(), Err: syscall.EBADF}
	}
	return nil
}

// checkOpen returns ErrSessionClosed wrapped for op if the session ended
func (s *Session) checkOpen(op string, off int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewIOError(op, s.dev.Name(), off, ErrSessionClosed)
	}
	return nil
}

// Read reads from the cursor. It returns io.EOF once the cursor is at or
// past the capacity.
func (s *Session) Read(p []byte) (int, error) {
	n, err := s.transfer("read", func(off int64) (int, error) {
		return s.dev.readAt(off, len(p), copyInto(p))
	})
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes at the cursor. A write cut short by the capacity returns
// the stored count together with io.ErrShortWrite.
func (s *Session) Write(p []byte) (int, error) {
	n, err := s.transfer("write", func(off int64) (int, error) {
		return s.dev.writeAt(off, len(p), copyFrom(p))
	})
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// WriteString writes a string at the cursor
func (s *Session) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// ReadAt reads from off without moving the cursor
func (s *Session) ReadAt(b []byte, off int64) (int, error) {
	if err := s.checkOpen("read", off); err != nil {
		return 0, err
	}
	if err := s.access("read"); err != nil {
		return 0, err
	}

	n, err := s.dev.readAt(off, len(b), copyInto(b))
	if err != nil {
		return 0, NewIOError("read", s.dev.Name(), off, err)
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes at off without moving the cursor
func (s *Session) WriteAt(b []byte, off int64) (int, error) {
	if err := s.checkOpen("write", off); err != nil {
		return 0, err
	}
	if err := s.access("write"); err != nil {
		return 0, err
	}

	n, err := s.dev.writeAt(off, len(b), copyFrom(b))
	if err != nil {
		return 0, NewIOError("write", s.dev.Name(), off, err)
	}
	if n < len(b) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek sets the cursor for the next Read or Write. io.SeekEnd is relative
// to the capacity.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewIOError("seek", s.dev.Name(), s.offset, ErrSessionClosed)
	}

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = s.offset + offset
	case io.SeekEnd:
		next = s.dev.Capacity() + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}

	if err := ValidateOffset(next, "offset"); err != nil {
		return 0, err
	}

	s.offset = next
	return s.offset, nil
}

// ReadFrom copies r into the device from the cursor until r is drained.
// Running out of device space fails with ErrOutOfSpace; a failing r
// surfaces as ErrTransferFault and leaves that chunk unwritten.
func (s *Session) ReadFrom(r io.Reader) (int64, error) {
	if err := s.access("write"); err != nil {
		return 0, err
	}
	chunk := make([]byte, min(int64(copyChunkSize), s.dev.Capacity()))

	var total int64
	for {
		nr, rerr := r.Read(chunk)
		if nr > 0 {
			nw, err := s.transfer("write", func(off int64) (int, error) {
				return s.dev.writeAt(off, nr, copyFrom(chunk[:nr]))
			})
			total += int64(nw)
			if err != nil {
				return total, err
			}
			if nw < nr {
				return total, NewIOError("write", s.dev.Name(), s.Offset(), ErrOutOfSpace)
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, NewIOError("write", s.dev.Name(), s.Offset(), newTransferFault(rerr))
		}
	}
}

// WriteTo copies the device from the cursor to the end into w. A failing
// w surfaces as ErrTransferFault; the chunk it rejected is neither counted
// nor consumed.
func (s *Session) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		n, err := s.transfer("read", func(off int64) (int, error) {
			return s.dev.readAt(off, copyChunkSize, func(p []byte) error {
				_, werr := w.Write(p)
				return werr
			})
		})
		total += int64(n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// Close ends the session and folds its open time into the device total
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewIOError("close", s.dev.Name(), -1, ErrSessionClosed)
	}
	s.closed = true

	elapsed := s.dev.clock.Now().Sub(s.start)
	s.dev.counters.Closed(elapsed)
	s.dev.logger.Debug("session closed", "session", s.id, "duration", elapsed)
	return nil
}

// Sync is a no-op; the device has no backing store
func (s *Session) Sync() error {
	return s.checkOpen("sync", -1)
}

// Stat describes the device node
func (s *Session) Stat() (os.FileInfo, error) {
	if err := s.checkOpen("stat", -1); err != nil {
		return nil, err
	}
	return s.dev.nodeInfo(), nil
}

// Truncate is not supported; the capacity is fixed
func (s *Session) Truncate(size int64) error {
	return &os.PathError{Op: "truncate", Path: s.Name(), Err: ErrNotSupported}
}

// Readdir fails; a device is not a directory
func (s *Session) Readdir(n int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: s.Name(), Err: syscall.ENOTDIR}
}

// Readdirnames fails; a device is not a directory
func (s *Session) Readdirnames(n int) ([]string, error) {
	return nil, &os.PathError{Op: "readdirnames", Path: s.Name(), Err: syscall.ENOTDIR}
}

// ReadDir fails; a device is not a directory
func (s *Session) ReadDir(n int) ([]fs.DirEntry, error) {
	return nil, &os.PathError{Op: "readdir", Path: s.Name(), Err: syscall.ENOTDIR}
}
