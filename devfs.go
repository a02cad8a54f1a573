package devfs

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"syscall"
	"sync"
	"time"

	"github.com/absfs/absfs"
)

// FS implements absfs.FileSystem over a single device. The namespace is
// fixed:
//
//	/                     directory
//	/<device>             the device; every open starts a Session
//	/<statsdir>/          directory
//	/<statsdir>/<stats>   read-only usage report, rendered on open
//
// Operations that would change the namespace fail with os.ErrPermission.
type FS struct {
	dev *Device

	mu  sync.Mutex
	cwd string
}

var _ absfs.FileSystem = (*FS)(nil)

// NewFS creates a filesystem view of dev
func NewFS(dev *Device) *FS {
	return &FS{dev: dev, cwd: "/"}
}

// Device returns the device behind the filesystem
func (f *FS) Device() *Device { return f.dev }

type nodeKind int

const (
	kindNone nodeKind = iota
	kindRoot
	kindDevice
	kindStatsDir
	kindStats
)

// resolve cleans name against the working directory and classifies it
func (f *FS) resolve(name string) (string, nodeKind) {
	f.mu.Lock()
	cwd := f.cwd
	f.mu.Unlock()

	p := name
	if !path.IsAbs(p) {
		p = path.Join(cwd, p)
	}
	p = path.Clean("/" + p)

	switch p {
	case "/":
		return p, kindRoot
	case "/" + f.dev.Name():
		return p, kindDevice
	case "/" + f.dev.StatsDir():
		return p, kindStatsDir
	case "/" + f.dev.StatsDir() + "/" + f.dev.StatsName():
		return p, kindStats
	}
	return p, kindNone
}

func (f *FS) info(p string, kind nodeKind) os.FileInfo {
	switch kind {
	case kindRoot:
		return f.dev.dirInfo("/")
	case kindDevice:
		return f.dev.nodeInfo()
	case kindStatsDir:
		return f.dev.dirInfo(f.dev.StatsDir())
	case kindStats:
		return f.dev.statsInfo()
	}
	return nil
}

func (f *FS) listing(kind nodeKind) []os.FileInfo {
	var entries []os.FileInfo
	switch kind {
	case kindRoot:
		entries = []os.FileInfo{f.dev.nodeInfo(), f.dev.dirInfo(f.dev.StatsDir())}
	case kindStatsDir:
		entries = []os.FileInfo{f.dev.statsInfo()}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries
}

// Separator returns the path separator
func (f *FS) Separator() uint8 {
	return '/'
}

// ListSeparator returns the list separator
func (f *FS) ListSeparator() uint8 {
	return ':'
}

// Chdir changes the current working directory
func (f *FS) Chdir(dir string) error {
	p, kind := f.resolve(dir)
	switch kind {
	case kindRoot, kindStatsDir:
		f.mu.Lock()
		f.cwd = p
		f.mu.Unlock()
		return nil
	case kindNone:
		return &os.PathError{Op: "chdir", Path: dir, Err: os.ErrNotExist}
	}
	return &os.PathError{Op: "chdir", Path: dir, Err: syscall.ENOTDIR}
}

// Getwd returns the current working directory
func (f *FS) Getwd() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cwd, nil
}

// TempDir returns the temporary directory path; the namespace has none
// that is writable, so this is the root
func (f *FS) TempDir() string {
	return "/"
}

// Open opens a node for reading
func (f *FS) Open(name string) (absfs.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

// Create opens the device for writing. The device cannot be truncated,
// so existing contents are kept.
func (f *FS) Create(name string) (absfs.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens a node. Opening the device starts a new Session;
// opening the statistics node snapshots the current report.
func (f *FS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	p, kind := f.resolve(name)
	writable := flag&(os.O_WRONLY|os.O_RDWR) != 0

	switch kind {
	case kindDevice:
		s, err := f.dev.OpenFile(flag)
		if err != nil {
			return nil, err
		}
		if flag&os.O_APPEND != 0 {
			s.Seek(0, io.SeekEnd)
		}
		return s, nil

	case kindStats:
		if writable {
			return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
		}
		return newTextFile(p, f.dev.statsInfo(), f.dev.Report()), nil

	case kindRoot, kindStatsDir:
		if writable {
			return nil, &os.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
		}
		return newDirFile(p, f.info(p, kind).(*nodeInfo), f.listing(kind)), nil
	}

	if flag&os.O_CREATE != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
}

// Stat returns node information
func (f *FS) Stat(name string) (os.FileInfo, error) {
	p, kind := f.resolve(name)
	if kind == kindNone {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return f.info(p, kind), nil
}

// ReadDir lists a directory node sorted by name
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	_, kind := f.resolve(name)
	switch kind {
	case kindRoot, kindStatsDir:
	case kindNone:
		return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrNotExist}
	default:
		return nil, &os.PathError{Op: "readdir", Path: name, Err: syscall.ENOTDIR}
	}

	infos := f.listing(kind)
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

// ReadFile opens name, reads it to the end and closes it. For the device
// this is one full session.
func (f *FS) ReadFile(name string) ([]byte, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var b bytes.Buffer
	if _, err := io.Copy(&b, file); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (f *FS) denied(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrPermission}
}

// Mkdir fails; the namespace is fixed
func (f *FS) Mkdir(name string, perm os.FileMode) error {
	return f.denied("mkdir", name)
}

// MkdirAll succeeds only for directories that already exist
func (f *FS) MkdirAll(name string, perm os.FileMode) error {
	if _, kind := f.resolve(name); kind == kindRoot || kind == kindStatsDir {
		return nil
	}
	return f.denied("mkdir", name)
}

// Remove fails; the namespace is fixed
func (f *FS) Remove(name string) error {
	return f.denied("remove", name)
}

// RemoveAll fails; the namespace is fixed
func (f *FS) RemoveAll(path string) error {
	return f.denied("removeall", path)
}

// Rename fails; the namespace is fixed
func (f *FS) Rename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrPermission}
}

// Chmod fails; node modes are fixed
func (f *FS) Chmod(name string, mode os.FileMode) error {
	return f.denied("chmod", name)
}

// Chtimes fails; node times are fixed
func (f *FS) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return f.denied("chtimes", name)
}

// Chown fails; node owners are fixed
func (f *FS) Chown(name string, uid, gid int) error {
	return f.denied("chown", name)
}

// Truncate fails; the device capacity is fixed
func (f *FS) Truncate(name string, size int64) error {
	if _, kind := f.resolve(name); kind == kindDevice {
		return &os.PathError{Op: "truncate", Path: name, Err: ErrNotSupported}
	}
	return f.denied("truncate", name)
}
