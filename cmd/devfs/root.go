package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/absfs/devfs"
	"github.com/absfs/devfs/fuse"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=1.1.0"
var version = "1.0.0"

// options holds the parsed command line
type options struct {
	configPath   string
	capacity     int64
	transform    string
	key          string
	passphrase   string
	kdf          string
	salt         string
	scratchLimit int64
	allowOther   bool
	jsonReport   bool
	verbose      int
	showVersion  bool
	showHelp     bool
	mountpoint   string
}

// Execute parses args, mounts the device and serves it until ctx is done.
func Execute(ctx context.Context, args []string) error {
	fs, opts := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.showHelp {
		printUsage(fs)
		return nil
	}
	if opts.showVersion {
		fmt.Printf("devfs %s\n", version)
		return nil
	}

	switch fs.NArg() {
	case 0:
		return fmt.Errorf("mountpoint required (use --help for usage)")
	case 1:
		opts.mountpoint = fs.Arg(0)
	default:
		return fmt.Errorf("too many arguments")
	}

	cfg, err := buildConfig(fs, opts)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, opts.verbose)
	cfg.Logger = logger

	dev, err := devfs.New(cfg)
	if err != nil {
		return err
	}
	defer dev.Shutdown()

	server, err := fuse.Mount(fuse.Options{
		Mountpoint: opts.mountpoint,
		Device:     dev,
		AllowOther: opts.allowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	if err := server.Unmount(); err != nil {
		return fmt.Errorf("unmounting %s: %w", opts.mountpoint, err)
	}
	server.Wait()

	stats := dev.Stats()
	logger.Info("device unmounted",
		"mountpoint", opts.mountpoint,
		"open_count", stats.Opens,
		"write_count", stats.Writes,
		"read_count", stats.Reads,
		"open_time", stats.OpenTime,
	)
	if opts.jsonReport {
		fmt.Println(stats.JSON())
	} else {
		fmt.Print(stats.String())
	}
	return nil
}

func newFlagSet() (*flag.FlagSet, *options) {
	opts := &options{}
	fs := flag.NewFlagSet("devfs", flag.ContinueOnError)

	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	fs.Int64Var(&opts.capacity, "capacity", devfs.DefaultCapacity, "Device capacity in bytes")
	fs.StringVarP(&opts.transform, "transform", "t", devfs.TransformXOR, "Transform: xor or keystream")
	fs.StringVarP(&opts.key, "key", "k", "0x55", "XOR key byte (decimal or 0x hex)")
	fs.StringVar(&opts.passphrase, "passphrase", "", "Passphrase for the keystream transform")
	fs.StringVar(&opts.kdf, "kdf", devfs.KDFArgon2id, "Passphrase derivation: argon2id or pbkdf2")
	fs.StringVar(&opts.salt, "salt", "", "Salt for the passphrase derivation (default derived from the device name)")
	fs.Int64Var(&opts.scratchLimit, "scratch-limit", 0, "Scratch bytes allowed in flight (0 = unlimited)")
	fs.BoolVar(&opts.allowOther, "allow-other", false, "Allow other users to access the mount")
	fs.BoolVar(&opts.jsonReport, "json", false, "Print the final report as JSON")
	fs.CountVarP(&opts.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }
	return fs, opts
}

// buildConfig resolves flags > env > config file > defaults
func buildConfig(fs *flag.FlagSet, opts *options) (*devfs.Config, error) {
	cfg := devfs.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := devfs.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	devfs.LoadFromEnv(cfg)

	if fs.Changed("capacity") {
		cfg.Capacity = opts.capacity
	}
	if fs.Changed("transform") {
		cfg.Transform = opts.transform
	}
	if fs.Changed("key") {
		key, err := strconv.ParseUint(opts.key, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("key %q: must be a byte value", opts.key)
		}
		cfg.Key = uint8(key)
	}
	if fs.Changed("passphrase") {
		cfg.Passphrase = opts.passphrase
	}
	if fs.Changed("kdf") {
		cfg.KDF = opts.kdf
	}
	if fs.Changed("salt") {
		cfg.Salt = opts.salt
	}
	if fs.Changed("scratch-limit") {
		cfg.ScratchLimit = opts.scratchLimit
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger maps the -v count to a level: warnings by default, info at
// -v, debug at -vv
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `devfs v%s

Mounts a fixed-size virtual device whose contents are stored obfuscated,
with a read-only usage report next to it.

Usage:
  devfs [options] <mountpoint>

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  DEVFS_CAPACITY, DEVFS_TRANSFORM, DEVFS_KEY, DEVFS_PASSPHRASE,
  DEVFS_SCRATCH_LIMIT, DEVFS_DEVICE_NAME, DEVFS_STATS_DIR, DEVFS_STATS_NAME

Examples:
  devfs /mnt/dev                              1024 bytes, XOR 0x55
  devfs --capacity 4096 -k 0x2a /mnt/dev      Custom size and key
  devfs -t keystream --passphrase s3cret /mnt/dev
  echo hello > /mnt/dev/my_device && cat /mnt/dev/my_proc_dir/my_proc
`)
}
