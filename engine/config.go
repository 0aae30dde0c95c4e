package engine

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the shared environment configuration. Engines read the fields
// that apply to them and ignore the rest (the memory engine has no Path,
// the bolt engine has no Backend choice).
type Config struct {
	// Path of the database file. Durable engines only.
	Path string `yaml:"path"`

	// MapSize is the environment's data budget in bytes. 0 means the
	// default (1 GiB).
	MapSize int64 `yaml:"map_size"`

	// MaxReaders caps concurrent read transactions. 0 means the default
	// (126, same as the usual engine default).
	MaxReaders int `yaml:"max_readers"`

	// Backend selects the memory engine's committed store: "skipmap"
	// (default) or "trie".
	Backend string `yaml:"backend"`

	// Checksums enables xxh3 framing of stored values. Bolt engine only.
	Checksums bool `yaml:"checksums"`

	// Compression is "" or "snappy". Bolt engine only.
	Compression string `yaml:"compression"`

	// Logger receives Debug-level engine events. Nil means slog.Default.
	Logger *slog.Logger `yaml:"-"`
}

const (
	DefaultMapSize    = 1 << 30
	DefaultMaxReaders = 126
)

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MapSize == 0 {
		c.MapSize = DefaultMapSize
	}
	if c.MaxReaders == 0 {
		c.MaxReaders = DefaultMaxReaders
	}
	if c.Backend == "" {
		c.Backend = "skipmap"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate rejects values no engine can honor.
func (c Config) Validate() error {
	if c.MapSize < 0 {
		return fmt.Errorf("config: negative map_size %d", c.MapSize)
	}
	if c.MaxReaders < 0 {
		return fmt.Errorf("config: negative max_readers %d", c.MaxReaders)
	}
	switch c.Backend {
	case "", "skipmap", "trie":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Compression {
	case "", "snappy":
	default:
		return fmt.Errorf("config: unknown compression %q", c.Compression)
	}
	return nil
}

// LoadConfig reads a yaml config file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}
