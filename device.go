package devfs

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Device is a virtual storage device: one fixed buffer, the transform
// applied to everything stored in it, and usage counters. It is safe for
// concurrent use by any number of sessions.
type Device struct {
	config   Config
	buf      *Buffer
	counters Counters
	clock    Clock
	logger   *slog.Logger
	created  time.Time
	shutdown atomic.Bool
}

// New allocates a device from config
func New(config *Config) (*Device, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	cfg := *config
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t, err := NewTransform(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform: %w", err)
	}

	buf, err := NewBuffer(cfg.Capacity, t, cfg.ScratchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate buffer: %w", err)
	}

	d := &Device{
		config:  cfg,
		buf:     buf,
		clock:   cfg.Clock,
		logger:  cfg.Logger.With("device", cfg.DeviceName),
		created: cfg.Clock.Now(),
	}
	d.logger.Debug("device initialized",
		"capacity", cfg.Capacity,
		"transform", t.Name(),
	)
	return d, nil
}

// Name returns the device node name
func (d *Device) Name() string { return d.config.DeviceName }

// StatsDir returns the directory holding the statistics node
func (d *Device) StatsDir() string { return d.config.StatsDir }

// StatsName returns the statistics node name
func (d *Device) StatsName() string { return d.config.StatsName }

// Capacity returns the fixed buffer size in bytes
func (d *Device) Capacity() int64 { return d.buf.Capacity() }

// Open starts a new read-write session with its offset at zero
func (d *Device) Open() (*Session, error) {
	return d.OpenFile(os.O_RDWR)
}

// OpenFile starts a new session whose access mode comes from the
// O_RDONLY, O_WRONLY or O_RDWR bits of flag. Transfers the mode does not
// allow fail with EBADF and are not counted.
func (d *Device) OpenFile(flag int) (*Session, error) {
	if d.shutdown.Load() {
		return nil, NewIOError("open", d.Name(), -1, ErrDeviceClosed)
	}

	mode := flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR)
	s := &Session{
		dev:      d,
		id:       uuid.New(),
		start:    d.clock.Now(),
		readable: mode != os.O_WRONLY,
		writable: mode != os.O_RDONLY,
	}
	d.counters.Opened()
	d.logger.Debug("session opened", "session", s.id)
	return s, nil
}

// Close ends a session and adds its open time to the total
func (d *Device) Close(s *Session) error {
	if s == nil {
		return NewIOError("close", d.Name(), -1, ErrSessionClosed)
	}
	return s.Close()
}

// Read returns up to length bytes from the session's offset and advances
// it. At or past the capacity the result is empty with a nil error.
func (d *Device) Read(s *Session, length int) ([]byte, error) {
	if s == nil {
		return nil, NewIOError("read", d.Name(), -1, ErrSessionClosed)
	}
	var out []byte
	_, err := s.transfer("read", func(off int64) (int, error) {
		return d.readAt(off, length, func(p []byte) error {
			out = append([]byte(nil), p...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Write stores p at the session's offset and advances it. A write
// crossing the capacity is truncated and the short count returned with a
// nil error; a write starting at the capacity fails with ErrOutOfSpace.
func (d *Device) Write(s *Session, p []byte) (int, error) {
	if s == nil {
		return 0, NewIOError("write", d.Name(), -1, ErrSessionClosed)
	}
	return s.transfer("write", func(off int64) (int, error) {
		return d.writeAt(off, len(p), copyFrom(p))
	})
}

// Stats returns a snapshot of the usage counters
func (d *Device) Stats() Stats {
	return d.counters.Snapshot()
}

// Report renders the usage counters as text
func (d *Device) Report() string {
	return d.Stats().String()
}

// Raw copies the stored, transformed bytes at off into dst
func (d *Device) Raw(dst []byte, off int64) int {
	return d.buf.Raw(dst, off)
}

// Shutdown releases the buffer. Open sessions fail with ErrDeviceClosed
// afterwards; closing them still accounts their open time.
func (d *Device) Shutdown() error {
	if d.shutdown.Swap(true) {
		return nil
	}
	d.buf.free()
	d.logger.Debug("device shut down")
	return nil
}

// readAt runs one counted read against the buffer
func (d *Device) readAt(off int64, length int, deliver func([]byte) error) (int, error) {
	if d.shutdown.Load() {
		return 0, ErrDeviceClosed
	}
	n, err := d.buf.ReadAt(off, length, deliver)
	if err != nil {
		d.logger.Debug("read aborted", "offset", off, "length", length, "error", err)
		return 0, err
	}
	d.counters.Read()
	return n, nil
}

// writeAt runs one counted write against the buffer
func (d *Device) writeAt(off int64, length int, fill func([]byte) error) (int, error) {
	if d.shutdown.Load() {
		return 0, ErrDeviceClosed
	}
	n, err := d.buf.WriteAt(off, length, fill)
	if err != nil {
		d.logger.Debug("write aborted", "offset", off, "length", length, "error", err)
		return 0, err
	}
	d.counters.Wrote()
	return n, nil
}

// copyFrom returns a fill function copying from p
func copyFrom(p []byte) func([]byte) error {
	return func(dst []byte) error {
		copy(dst, p)
		return nil
	}
}

// copyInto returns a deliver function copying into p
func copyInto(p []byte) func([]byte) error {
	return func(src []byte) error {
		copy(p, src)
		return nil
	}
}
