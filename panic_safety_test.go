package devfs

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// panickingWriter panics on the first Write
type panickingWriter struct{ message string }

func (w panickingWriter) Write([]byte) (int, error) { panic(w.message) }

// panickingReader panics on the first Read
type panickingReader struct{ message string }

func (r panickingReader) Read([]byte) (int, error) { panic(r.message) }

// TestDeliverPanicRecovery tests that a panic while handing data to the
// caller becomes a transfer fault
func TestDeliverPanicRecovery(t *testing.T) {
	b := newTestBuffer(t, 16, 16)

	n, err := b.ReadAt(0, 16, func([]byte) error { panic("test panic in deliver") })
	if n != 0 {
		t.Errorf("ReadAt() = %d, want 0", n)
	}
	if !errors.Is(err, ErrTransferFault) {
		t.Fatalf("ReadAt() error = %v, want ErrTransferFault", err)
	}
	if !strings.Contains(err.Error(), "test panic in deliver") {
		t.Errorf("error %q should carry the panic value", err)
	}

	// The lock and the whole scratch budget are available again.
	if got := readBuffer(t, b, 0, 16); len(got) != 16 {
		t.Errorf("ReadAt() after panic delivered %d bytes, want 16", len(got))
	}
}

// TestFillPanicRecovery tests that a panic while collecting caller data
// leaves the buffer untouched
func TestFillPanicRecovery(t *testing.T) {
	b := newTestBuffer(t, 8, 0)
	if _, err := writeBuffer(b, 0, []byte("ABCDEFGH")); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}

	_, err := b.WriteAt(0, 8, func(p []byte) error {
		copy(p, "XXXXXXXX")
		panic("test panic in fill")
	})
	if !errors.Is(err, ErrTransferFault) {
		t.Fatalf("WriteAt() error = %v, want ErrTransferFault", err)
	}

	if got := readBuffer(t, b, 0, 8); !bytes.Equal(got, []byte("ABCDEFGH")) {
		t.Errorf("buffer = %q after failed fill, want %q", got, "ABCDEFGH")
	}
}

// TestSessionPanicRecovery tests that panicking readers and writers
// passed to a session surface as transfer faults and are not counted
func TestSessionPanicRecovery(t *testing.T) {
	dev, _ := newTestDevice(t, 32)
	s := openSession(t, dev)

	if _, err := s.WriteTo(panickingWriter{"writer exploded"}); !errors.Is(err, ErrTransferFault) {
		t.Errorf("WriteTo() error = %v, want ErrTransferFault", err)
	}
	if got := dev.Stats().Reads; got != 0 {
		t.Errorf("read count = %d, want 0", got)
	}

	// ReadFrom reads from the caller outside any callback, so the panic
	// propagates to the caller.
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected ReadFrom() to propagate the reader's panic")
			}
		}()
		s.ReadFrom(panickingReader{"reader exploded"})
	}()

	// The session is still usable.
	if _, err := s.Write([]byte("ok")); err != nil {
		t.Errorf("Write() after panics error = %v", err)
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	buf := make([]byte, 2)
	if _, err := s.Read(buf); err != nil || string(buf) != "ok" {
		t.Errorf("Read() = %q, %v", buf, err)
	}
}
