package devfs

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"sync"
	"syscall"
	"time"
)

// nodeInfo implements os.FileInfo for the fixed nodes of a device
type nodeInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (i *nodeInfo) Name() string       { return i.name }
func (i *nodeInfo) Size() int64        { return i.size }
func (i *nodeInfo) Mode() os.FileMode  { return i.mode }
func (i *nodeInfo) ModTime() time.Time { return i.modTime }
func (i *nodeInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *nodeInfo) Sys() any           { return nil }

// nodeInfo describes the device node
func (d *Device) nodeInfo() *nodeInfo {
	return &nodeInfo{
		name:    d.Name(),
		size:    d.Capacity(),
		mode:    os.ModeDevice | os.ModeCharDevice | 0o666,
		modTime: d.created,
	}
}

// statsInfo describes the statistics node. Like a proc entry it reports
// size zero; the text is produced on open.
func (d *Device) statsInfo() *nodeInfo {
	return &nodeInfo{
		name:    d.StatsName(),
		mode:    0o444,
		modTime: d.clock.Now(),
	}
}

func (d *Device) dirInfo(name string) *nodeInfo {
	return &nodeInfo{
		name:    name,
		mode:    os.ModeDir | 0o555,
		modTime: d.created,
	}
}

// nodeFile is a read-only absfs.File over either a rendered text
// snapshot or a directory listing
type nodeFile struct {
	path    string
	info    *nodeInfo
	content *bytes.Reader // nil for directories
	entries []os.FileInfo // nil for regular nodes

	mu     sync.Mutex
	dirPos int
	closed bool
}

func newTextFile(path string, info *nodeInfo, text string) *nodeFile {
	return &nodeFile{path: path, info: info, content: bytes.NewReader([]byte(text))}
}

func newDirFile(path string, info *nodeInfo, entries []os.FileInfo) *nodeFile {
	if entries == nil {
		entries = []os.FileInfo{}
	}
	return &nodeFile{path: path, info: info, entries: entries}
}

func (f *nodeFile) pathError(op string, err error) error {
	return &os.PathError{Op: op, Path: f.path, Err: err}
}

// check returns an error when the handle is closed or is a directory
func (f *nodeFile) check(op string) error {
	if f.closed {
		return f.pathError(op, os.ErrClosed)
	}
	if f.content == nil {
		return f.pathError(op, syscall.EISDIR)
	}
	return nil
}

func (f *nodeFile) Name() string { return f.path }

func (f *nodeFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("read"); err != nil {
		return 0, err
	}
	return f.content.Read(p)
}

func (f *nodeFile) ReadAt(b []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("read"); err != nil {
		return 0, err
	}
	return f.content.ReadAt(b, off)
}

func (f *nodeFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, f.pathError("seek", os.ErrClosed)
	}
	if f.content == nil {
		if offset == 0 && whence == io.SeekStart {
			f.dirPos = 0
			return 0, nil
		}
		return 0, f.pathError("seek", syscall.EISDIR)
	}
	return f.content.Seek(offset, whence)
}

func (f *nodeFile) Write(p []byte) (int, error) {
	return 0, f.pathError("write", syscall.EBADF)
}

func (f *nodeFile) WriteAt(b []byte, off int64) (int, error) {
	return 0, f.pathError("write", syscall.EBADF)
}

func (f *nodeFile) WriteString(s string) (int, error) {
	return 0, f.pathError("write", syscall.EBADF)
}

func (f *nodeFile) Truncate(size int64) error {
	return f.pathError("truncate", os.ErrPermission)
}

func (f *nodeFile) Sync() error { return nil }

func (f *nodeFile) Stat() (os.FileInfo, error) {
	return f.info, nil
}

func (f *nodeFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return f.pathError("close", os.ErrClosed)
	}
	f.closed = true
	return nil
}

// Readdir returns up to n entries, or all remaining entries if n <= 0
func (f *nodeFile) Readdir(n int) ([]os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, f.pathError("readdir", os.ErrClosed)
	}
	if f.entries == nil {
		return nil, f.pathError("readdir", syscall.ENOTDIR)
	}

	rest := f.entries[f.dirPos:]
	if n <= 0 {
		f.dirPos = len(f.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	f.dirPos += n
	return rest[:n], nil
}

func (f *nodeFile) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, err
}

func (f *nodeFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := f.Readdir(n)
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, err
}
