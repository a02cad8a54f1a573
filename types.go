package devfs

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultCapacity is the buffer size used when Config.Capacity is zero
	DefaultCapacity = 1024

	// MaxCapacity bounds the buffer so keystream counters never wrap
	MaxCapacity = 1 << 30

	// DefaultKey is the XOR key used when Config.Key is zero
	DefaultKey = 0x55

	// DefaultDeviceName is the device node name
	DefaultDeviceName = "my_device"

	// DefaultStatsDir is the directory holding the statistics node
	DefaultStatsDir = "my_proc_dir"

	// DefaultStatsName is the statistics node name
	DefaultStatsName = "my_proc"
)

// Transform names accepted in Config.Transform
const (
	TransformXOR       = "xor"
	TransformKeystream = "keystream"
)

// Key derivation functions accepted in Config.KDF
const (
	KDFArgon2id = "argon2id"
	KDFPBKDF2   = "pbkdf2"
)

// Clock supplies the current time for session accounting
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config contains configuration for a virtual device
type Config struct {
	// Capacity is the fixed buffer size in bytes
	Capacity int64 `yaml:"capacity"`

	// Transform selects the obfuscation transform by name
	Transform string `yaml:"transform"`

	// Key is the XOR key for the xor transform
	Key uint8 `yaml:"key"`

	// Passphrase feeds a password key provider for the keystream
	// transform when KeyProvider is nil
	Passphrase string `yaml:"passphrase"`

	// KDF picks the passphrase derivation: argon2id (default) or pbkdf2
	KDF string `yaml:"kdf"`

	// Salt is mixed into the passphrase derivation. Empty derives the
	// salt from DeviceName, so a passphrase always yields the same image.
	Salt string `yaml:"salt"`

	// ScratchLimit caps the scratch bytes held by in-flight operations.
	// Zero means unlimited.
	ScratchLimit int64 `yaml:"scratch_limit"`

	// DeviceName, StatsDir and StatsName name the filesystem nodes
	DeviceName string `yaml:"device_name"`
	StatsDir   string `yaml:"stats_dir"`
	StatsName  string `yaml:"stats_name"`

	// KeyProvider supplies the keystream key
	KeyProvider KeyProvider `yaml:"-"`

	// Clock times sessions. Nil uses the wall clock.
	Clock Clock `yaml:"-"`

	// Logger receives debug records for sessions and aborted operations.
	// Nil discards them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the reference configuration: 1024 bytes, XOR 0x55
func DefaultConfig() *Config {
	return &Config{
		Capacity:   DefaultCapacity,
		Transform:  TransformXOR,
		Key:        DefaultKey,
		DeviceName: DefaultDeviceName,
		StatsDir:   DefaultStatsDir,
		StatsName:  DefaultStatsName,
	}
}

// applyDefaults fills zero fields with their defaults
func (c *Config) applyDefaults() {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Transform == "" {
		c.Transform = TransformXOR
	}
	if c.Key == 0 {
		c.Key = DefaultKey
	}
	if c.DeviceName == "" {
		c.DeviceName = DefaultDeviceName
	}
	if c.StatsDir == "" {
		c.StatsDir = DefaultStatsDir
	}
	if c.StatsName == "" {
		c.StatsName = DefaultStatsName
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.KDF == "" {
		c.KDF = KDFArgon2id
	}
	if c.KeyProvider == nil && c.Passphrase != "" {
		switch c.KDF {
		case KDFArgon2id:
			c.KeyProvider = NewPasswordKeyProvider([]byte(c.Passphrase), Argon2idParams{})
		case KDFPBKDF2:
			c.KeyProvider = NewPasswordKeyProviderPBKDF2([]byte(c.Passphrase), PBKDF2Params{HashFunc: SHA256})
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.Capacity <= 0 || c.Capacity > MaxCapacity {
		return &ValidationError{
			Field:   "capacity",
			Value:   c.Capacity,
			Message: fmt.Sprintf("must be between 1 and %d", MaxCapacity),
		}
	}
	if c.ScratchLimit < 0 {
		return &ValidationError{
			Field:   "scratch_limit",
			Value:   c.ScratchLimit,
			Message: "cannot be negative",
		}
	}
	switch c.Transform {
	case TransformXOR:
		if c.Key == 0 {
			return &ValidationError{
				Field:   "key",
				Value:   c.Key,
				Message: "a zero key would store plaintext",
			}
		}
	case TransformKeystream:
		if c.KeyProvider == nil && c.Passphrase == "" {
			return &ValidationError{
				Field:   "key_provider",
				Message: "keystream transform needs a key provider or passphrase",
				Err:     ErrNilKeyProvider,
			}
		}
	default:
		return &ValidationError{
			Field:   "transform",
			Value:   c.Transform,
			Message: "unknown transform",
			Err:     ErrUnsupportedTransform,
		}
	}
	switch c.KDF {
	case "", KDFArgon2id, KDFPBKDF2:
	default:
		return &ValidationError{
			Field:   "kdf",
			Value:   c.KDF,
			Message: "must be argon2id or pbkdf2",
		}
	}
	for field, name := range map[string]string{
		"device_name": c.DeviceName,
		"stats_dir":   c.StatsDir,
		"stats_name":  c.StatsName,
	} {
		if err := validateNodeName(field, name); err != nil {
			return err
		}
	}
	if c.DeviceName == c.StatsDir {
		return &ValidationError{
			Field:   "stats_dir",
			Value:   c.StatsDir,
			Message: "collides with device_name",
		}
	}
	return nil
}

// keystreamSalt returns the salt for passphrase derivation
func (c *Config) keystreamSalt() []byte {
	if c.Salt != "" {
		return []byte(c.Salt)
	}
	return []byte("devfs/" + c.DeviceName)
}

func validateNodeName(field, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return &ValidationError{
			Field:   field,
			Value:   name,
			Message: "must be a single path element",
		}
	}
	return nil
}
