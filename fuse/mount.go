package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/absfs/devfs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Device is the device to expose.
	Device *devfs.Device

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors go to stderr.
	Logger *slog.Logger
}

// Mount mounts the device at the configured mountpoint. The caller must
// call Unmount on the returned Server when done. The mountpoint
// directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Device == nil {
		return nil, fmt.Errorf("device is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &rootNode{options: &options}

	// Attributes never change after mount; only the statistics text
	// does, and it is served with direct I/O.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.Device.Name(),
			Name:       "devfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("device mounted",
		"mountpoint", options.Mountpoint,
		"device", options.Device.Name(),
		"capacity", options.Device.Capacity(),
	)
	return server, nil
}

// rootNode is the filesystem root. It has two children: the device node
// and the statistics directory.
type rootNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeOnAdder = (*rootNode)(nil)
var _ gofuse.NodeGetattrer = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	dev := r.options.Device

	device := r.NewPersistentInode(ctx, &deviceNode{options: r.options}, gofuse.StableAttr{Mode: syscall.S_IFREG})
	r.AddChild(dev.Name(), device, true)

	statsDir := r.NewPersistentInode(ctx, &dirNode{}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
	r.AddChild(dev.StatsDir(), statsDir, true)

	stats := statsDir.NewPersistentInode(ctx, &statsNode{options: r.options}, gofuse.StableAttr{Mode: syscall.S_IFREG})
	statsDir.AddChild(dev.StatsName(), stats, true)
}

func (r *rootNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	return 0
}

// dirNode is a read-only directory listing its fixed children.
type dirNode struct {
	gofuse.Inode
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)

func (d *dirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	return 0
}

// deviceNode is the device. Its size is the capacity and cannot change.
type deviceNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*deviceNode)(nil)
var _ gofuse.NodeGetattrer = (*deviceNode)(nil)
var _ gofuse.NodeSetattrer = (*deviceNode)(nil)
var _ gofuse.NodeOpener = (*deviceNode)(nil)

func (n *deviceNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o666
	out.Size = uint64(n.options.Device.Capacity())
	return 0
}

// Setattr accepts and ignores attribute changes so O_TRUNC opens and
// shell redirections succeed; the contents and size stay as they are.
func (n *deviceNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return n.Getattr(ctx, f, out)
}

func (n *deviceNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	dev := n.options.Device
	session, err := dev.OpenFile(int(flags))
	if err != nil {
		n.options.Logger.Error("open failed", "device", dev.Name(), "error", err)
		return nil, 0, Errno(err)
	}
	return newDeviceHandle(dev, session, n.options.Logger), fuse.FOPEN_DIRECT_IO, 0
}

// statsNode is the read-only usage report.
type statsNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*statsNode)(nil)
var _ gofuse.NodeGetattrer = (*statsNode)(nil)
var _ gofuse.NodeOpener = (*statsNode)(nil)

func (n *statsNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o444
	return 0
}

func (n *statsNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EACCES
	}
	return &statsHandle{text: []byte(n.options.Device.Report())}, fuse.FOPEN_DIRECT_IO, 0
}
