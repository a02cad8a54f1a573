package fuse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/absfs/devfs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"out of space", devfs.ErrOutOfSpace, syscall.ENOSPC},
		{"wrapped out of space", devfs.NewIOError("write", "my_device", 8, devfs.ErrOutOfSpace), syscall.ENOSPC},
		{"no memory", devfs.ErrNoMemory, syscall.ENOMEM},
		{"transfer fault", fmt.Errorf("%w: %w", devfs.ErrTransferFault, io.ErrUnexpectedEOF), syscall.EFAULT},
		{"session closed", devfs.NewIOError("read", "my_device", 0, devfs.ErrSessionClosed), syscall.EBADF},
		{"device closed", devfs.ErrDeviceClosed, syscall.EBADF},
		{"not supported", devfs.ErrNotSupported, syscall.ENOTSUP},
		{"validation", devfs.ValidateOffset(-1, "offset"), syscall.EINVAL},
		{"raw errno", fmt.Errorf("wrapped: %w", syscall.EPERM), syscall.EPERM},
		{"other", errors.New("boom"), syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Errno(tt.err); got != tt.want {
				t.Errorf("Errno(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func newTestDevice(t *testing.T, capacity int64) *devfs.Device {
	t.Helper()
	cfg := devfs.DefaultConfig()
	cfg.Capacity = capacity
	dev, err := devfs.New(cfg)
	if err != nil {
		t.Fatalf("failed to create device: %v", err)
	}
	t.Cleanup(func() { dev.Shutdown() })
	return dev
}

func openHandle(t *testing.T, dev *devfs.Device) *deviceHandle {
	t.Helper()
	session, err := dev.Open()
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	return newDeviceHandle(dev, session, slog.New(slog.DiscardHandler))
}

func readAll(t *testing.T, h *deviceHandle, off int64, n int) []byte {
	t.Helper()
	res, errno := h.Read(context.Background(), make([]byte, n), off)
	if errno != 0 {
		t.Fatalf("Read at %d: %v", off, errno)
	}
	data, status := res.Bytes(make([]byte, n))
	if !status.Ok() {
		t.Fatalf("ReadResult.Bytes: %v", status)
	}
	return data
}

func TestDeviceHandleOffsets(t *testing.T) {
	dev := newTestDevice(t, 8)
	h := openHandle(t, dev)
	ctx := context.Background()

	n, errno := h.Write(ctx, []byte("ABCDEFGHIJ"), 0)
	if errno != 0 {
		t.Fatalf("Write: %v", errno)
	}
	if n != 8 {
		t.Errorf("Write stored %d bytes, want 8", n)
	}

	// The kernel continues a short write at the returned offset.
	if _, errno := h.Write(ctx, []byte("IJ"), 8); errno != syscall.ENOSPC {
		t.Errorf("Write at capacity: errno %v, want ENOSPC", errno)
	}

	if got := readAll(t, h, 2, 4); !bytes.Equal(got, []byte("CDEF")) {
		t.Errorf("Read at 2 = %q, want %q", got, "CDEF")
	}
	if got := readAll(t, h, 6, 16); !bytes.Equal(got, []byte("GH")) {
		t.Errorf("Read at 6 = %q, want %q", got, "GH")
	}
	if got := readAll(t, h, 8, 16); len(got) != 0 {
		t.Errorf("Read at capacity returned %d bytes, want 0", len(got))
	}

	if errno := h.Release(ctx); errno != 0 {
		t.Fatalf("Release: %v", errno)
	}

	stats := dev.Stats()
	if stats.Opens != 1 || stats.Writes != 1 || stats.Reads != 3 {
		t.Errorf("stats = %+v, want 1 open, 1 write, 3 reads", stats)
	}

	if _, errno := h.Read(ctx, make([]byte, 1), 0); errno != syscall.EBADF {
		t.Errorf("Read after release: errno %v, want EBADF", errno)
	}
	if errno := h.Release(ctx); errno != syscall.EBADF {
		t.Errorf("second Release: errno %v, want EBADF", errno)
	}
}

func TestStatsHandle(t *testing.T) {
	dev := newTestDevice(t, 16)
	node := &statsNode{options: &Options{Device: dev}}

	fh, flags, errno := node.Open(context.Background(), syscall.O_RDONLY)
	if errno != 0 {
		t.Fatalf("Open: %v", errno)
	}
	if flags&fuse.FOPEN_DIRECT_IO == 0 {
		t.Errorf("Open flags = %#x, want direct I/O", flags)
	}

	h := fh.(*statsHandle)
	want := "Open count: 0\nWrite count: 0\nRead count: 0\nOpen time: 0 milliseconds\n"
	if string(h.text) != want {
		t.Errorf("report = %q, want %q", h.text, want)
	}

	res, errno := h.Read(context.Background(), make([]byte, 5), 5)
	if errno != 0 {
		t.Fatalf("Read: %v", errno)
	}
	got, _ := res.Bytes(nil)
	if string(got) != "count" {
		t.Errorf("Read at 5 = %q, want %q", got, "count")
	}

	if _, _, errno := node.Open(context.Background(), syscall.O_WRONLY); errno != syscall.EACCES {
		t.Errorf("Open for write: errno %v, want EACCES", errno)
	}
}

func TestDeviceNodeOpenModes(t *testing.T) {
	dev := newTestDevice(t, 8)
	node := &deviceNode{options: &Options{Device: dev, Logger: slog.New(slog.DiscardHandler)}}
	ctx := context.Background()

	fh, _, errno := node.Open(ctx, syscall.O_RDONLY)
	if errno != 0 {
		t.Fatalf("Open read-only: %v", errno)
	}
	ro := fh.(*deviceHandle)
	defer ro.Release(ctx)
	if _, errno := ro.Write(ctx, []byte("XY"), 0); errno != syscall.EBADF {
		t.Errorf("Write on read-only handle: errno %v, want EBADF", errno)
	}

	fh, _, errno = node.Open(ctx, syscall.O_WRONLY)
	if errno != 0 {
		t.Fatalf("Open write-only: %v", errno)
	}
	wo := fh.(*deviceHandle)
	defer wo.Release(ctx)
	if _, errno := wo.Read(ctx, make([]byte, 2), 0); errno != syscall.EBADF {
		t.Errorf("Read on write-only handle: errno %v, want EBADF", errno)
	}

	if stats := dev.Stats(); stats.Reads != 0 || stats.Writes != 0 {
		t.Errorf("stats = %+v, want denied transfers uncounted", stats)
	}
}
