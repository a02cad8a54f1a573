package devfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration loading.
//
// Precedence order (highest wins):
//  1. CLI flags (cmd/devfs)
//  2. Environment variables (LoadFromEnv)
//  3. Config file (LoadConfig)
//  4. Defaults (DefaultConfig)

// LoadConfig reads a YAML config file on top of DefaultConfig. Fields
// missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv overlays DEVFS_* environment variables onto cfg. Only
// non-empty, well-formed values override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := envInt64("DEVFS_CAPACITY"); v > 0 {
		cfg.Capacity = v
	}
	if v := os.Getenv("DEVFS_TRANSFORM"); v != "" {
		cfg.Transform = strings.ToLower(v)
	}
	if v, ok := envByte("DEVFS_KEY"); ok {
		cfg.Key = v
	}
	if v := os.Getenv("DEVFS_PASSPHRASE"); v != "" {
		cfg.Passphrase = v
	}
	if v := os.Getenv("DEVFS_KDF"); v != "" {
		cfg.KDF = strings.ToLower(v)
	}
	if v := os.Getenv("DEVFS_SALT"); v != "" {
		cfg.Salt = v
	}
	if v := envInt64("DEVFS_SCRATCH_LIMIT"); v > 0 {
		cfg.ScratchLimit = v
	}
	if v := os.Getenv("DEVFS_DEVICE_NAME"); v != "" {
		cfg.DeviceName = v
	}
	if v := os.Getenv("DEVFS_STATS_DIR"); v != "" {
		cfg.StatsDir = v
	}
	if v := os.Getenv("DEVFS_STATS_NAME"); v != "" {
		cfg.StatsName = v
	}
}

func envInt64(key string) int64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0
	}
	return n
}

// envByte accepts decimal, 0x hex or 0o octal
func envByte(key string) (uint8, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 0, 8)
	if err != nil {
		return 0, false
	}
	return uint8(n), true
}
