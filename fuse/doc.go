// Package fuse exposes a devfs.Device as a FUSE filesystem, the
// userspace counterpart of registering a character device and a proc
// entry.
//
// The mount contains two nodes:
//
//   - <device> (default my_device), read-write. Every open file handle
//     is one devfs.Session; reads and writes go through the device at
//     the kernel-supplied offset and the session is closed on release.
//     Handles use direct I/O so every read and write reaches the device
//     and is counted.
//
//   - <statsdir>/<stats> (default my_proc_dir/my_proc), read-only. The
//     usage report is rendered once per open.
//
// Device errors map to errnos with Errno: out of space is ENOSPC, a
// failed scratch allocation is ENOMEM, and a transfer fault is EFAULT.
package fuse
