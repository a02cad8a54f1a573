// Package devfs provides a virtual, fixed-size, byte-addressable storage
// device for the AbsFs filesystem abstraction. Every byte stored on the
// device is passed through a reversible obfuscation transform, and the
// device keeps usage statistics that can be read back as text.
//
// # Overview
//
// A Device owns a single flat buffer whose capacity is fixed when the
// device is created (1024 bytes by default). Callers interact with it
// through sessions:
//
//	dev, err := devfs.New(devfs.DefaultConfig())
//	if err != nil {
//	    panic(err)
//	}
//	defer dev.Shutdown()
//
//	s, _ := dev.Open()
//	s.Write([]byte("hello"))
//	s.Seek(0, io.SeekStart)
//	buf := make([]byte, 5)
//	s.Read(buf)
//	s.Close()
//
//	fmt.Print(dev.Report())
//
// Each session has its own offset cursor starting at zero. Any number of
// sessions may be open at the same time; they all share the one buffer.
//
// # Bounds
//
// Reads at or past the capacity return no data and no error (end of
// data). Writes at or past the capacity fail with ErrOutOfSpace. Requests
// that straddle the end are truncated to the bytes that remain.
//
// # Transforms
//
// The buffer never holds the bytes callers hand in. Two transforms are
// available:
//   - xor: every byte is XORed with a one-byte key (0x55 by default).
//   - keystream: every byte is XORed with a ChaCha20 keystream positioned
//     at its offset. The key comes from a KeyProvider.
//
// Both are self-inverse and neither provides confidentiality or integrity.
// They are obfuscation layers, not encryption.
//
// # Statistics
//
// The device counts opens, reads and writes and accumulates the time
// sessions stayed open. Report renders them as:
//
//	Open count: 3
//	Write count: 5
//	Read count: 2
//	Open time: 120 milliseconds
//
// # Filesystem View
//
// FS exposes a device through the absfs.FileSystem interface with two
// nodes: the device itself (/my_device by default) and a read-only
// statistics file (/my_proc_dir/my_proc). The fuse subpackage mounts the
// same view on the host.
package devfs
