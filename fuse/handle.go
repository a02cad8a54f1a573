package fuse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"syscall"

	"github.com/absfs/devfs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// deviceHandle is one open file on the device node, backed by one
// session. The kernel supplies the offset of every call; the handle
// positions the session there and runs one device read or write.
type deviceHandle struct {
	dev     *devfs.Device
	session *devfs.Session
	logger  *slog.Logger

	// mu keeps the seek and the transfer that follows it together when
	// the kernel issues concurrent calls on one handle.
	mu sync.Mutex
}

var _ gofuse.FileHandle = (*deviceHandle)(nil)
var _ gofuse.FileReader = (*deviceHandle)(nil)
var _ gofuse.FileWriter = (*deviceHandle)(nil)
var _ gofuse.FileFsyncer = (*deviceHandle)(nil)
var _ gofuse.FileReleaser = (*deviceHandle)(nil)

func newDeviceHandle(dev *devfs.Device, session *devfs.Session, logger *slog.Logger) *deviceHandle {
	return &deviceHandle{
		dev:     dev,
		session: session,
		logger:  logger.With("session", session.ID()),
	}
}

func (h *deviceHandle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.session.Seek(off, io.SeekStart); err != nil {
		return nil, h.fail("read", off, err)
	}
	data, err := h.dev.Read(h.session, len(dest))
	if err != nil {
		return nil, h.fail("read", off, err)
	}
	return fuse.ReadResultData(data), 0
}

func (h *deviceHandle) Write(_ context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.session.Seek(off, io.SeekStart); err != nil {
		return 0, h.fail("write", off, err)
	}
	n, err := h.dev.Write(h.session, data)
	if err != nil {
		return 0, h.fail("write", off, err)
	}
	return uint32(n), 0
}

func (h *deviceHandle) Fsync(_ context.Context, _ uint32) syscall.Errno {
	return Errno(h.session.Sync())
}

func (h *deviceHandle) Release(_ context.Context) syscall.Errno {
	if err := h.dev.Close(h.session); err != nil {
		return h.fail("release", -1, err)
	}
	return 0
}

// fail logs err and returns its errno. Out of space is the normal end of
// a sequential write and is not logged as an error.
func (h *deviceHandle) fail(op string, off int64, err error) syscall.Errno {
	errno := Errno(err)
	if errno == syscall.ENOSPC {
		h.logger.Debug(op+" past capacity", "offset", off)
	} else {
		h.logger.Error(op+" failed", "offset", off, "errno", errno, "error", err)
	}
	return errno
}

// statsHandle serves one rendered copy of the usage report.
type statsHandle struct {
	text []byte
}

var _ gofuse.FileHandle = (*statsHandle)(nil)
var _ gofuse.FileReader = (*statsHandle)(nil)

func (h *statsHandle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= int64(len(h.text)) {
		return fuse.ReadResultData(nil), 0
	}
	end := min(off+int64(len(dest)), int64(len(h.text)))
	return fuse.ReadResultData(h.text[off:end]), 0
}

// Errno maps a device error to the errno a kernel driver would return.
// A nil error maps to 0.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, devfs.ErrOutOfSpace):
		return syscall.ENOSPC
	case errors.Is(err, devfs.ErrNoMemory):
		return syscall.ENOMEM
	case errors.Is(err, devfs.ErrTransferFault):
		return syscall.EFAULT
	case errors.Is(err, devfs.ErrSessionClosed), errors.Is(err, devfs.ErrDeviceClosed):
		return syscall.EBADF
	case errors.Is(err, devfs.ErrNotSupported):
		return syscall.ENOTSUP
	case devfs.IsValidationError(err):
		return syscall.EINVAL
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
