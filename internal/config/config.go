// Package config manages YAML-based configuration, environment overrides and validation.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CageChen/marktree/internal/logging"
	"github.com/CageChen/marktree/internal/source"
	"github.com/CageChen/marktree/internal/vfs"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MARKTREE_PORT.
const EnvPrefix = "MARKTREE"

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" json:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" json:"development" envconfig:"DEV"`
}

// Config holds all configuration options for marktree.
type Config struct {
	Sources []source.Location `yaml:"sources,omitempty" json:"sources" ignored:"true"`

	Host       string       `yaml:"host" json:"host" envconfig:"HOST"`
	Port       int          `yaml:"port" json:"port" envconfig:"PORT"`
	Watch      bool         `yaml:"watch" json:"watch" envconfig:"WATCH"`
	Open       bool         `yaml:"open" json:"open" envconfig:"OPEN"`
	Extensions []string     `yaml:"extensions" json:"extensions" envconfig:"EXTENSIONS"`
	Exclude    []string     `yaml:"exclude" json:"exclude" envconfig:"EXCLUDE"`
	SortMode   vfs.SortMode `yaml:"sort_mode" json:"sortMode" envconfig:"SORT_MODE"`

	// Quick-move slot targets; empty strings are unset slots.
	QuickMove []string `yaml:"quick_move,omitempty" json:"quickMove" ignored:"true"`

	// Where the virtual layout is persisted. Empty disables persistence.
	StatePath string `yaml:"state_path" json:"statePath" envconfig:"STATE_PATH"`

	Log LogConfig `yaml:"log" json:"log" envconfig:"LOG"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Host:       "localhost",
		Port:       8080,
		Watch:      true,
		Open:       false,
		Extensions: []string{".md", ".markdown"},
		Exclude:    []string{"node_modules", ".git", ".svn"},
		SortMode:   vfs.FoldersFirst,
		StatePath:  filepath.Join(GetConfigDir(), "state.yaml"),
		Log:        LogConfig{Level: "info"},
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/marktree"
	}
	return filepath.Join(home, ".config", "marktree")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load builds the configuration: defaults, then the config file, then .env
// and MARKTREE_* environment variables. An explicit file must exist; the
// implicit candidates (~/.config/marktree/config.yaml, ./marktree.yaml) are
// optional.
func Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	cfgPath := explicit
	if cfgPath == "" {
		if _, err := os.Stat(GetConfigPath()); err == nil {
			cfgPath = GetConfigPath()
		} else if _, err := os.Stat("marktree.yaml"); err == nil {
			cfgPath = "marktree.yaml"
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil {
			if explicit != "" || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
			}
		}
		cfg.configPath = cfgPath
	} else {
		cfg.configPath = GetConfigPath()
	}

	// A missing .env file is normal.
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.normalizeSources()
	return cfg, nil
}

// ApplyEnv overlays MARKTREE_* environment variables onto c. Unset variables
// leave the current values alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// normalizeSources resolves every source path to an absolute path.
func (c *Config) normalizeSources() {
	for i := range c.Sources {
		if absPath, err := filepath.Abs(c.Sources[i].Path); err == nil {
			c.Sources[i].Path = absPath
		}
	}
}

// UseSingleSource replaces the configured sources with one local directory.
// The CLI --path flag uses it.
func (c *Config) UseSingleSource(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	c.Sources = []source.Location{{Path: absPath}}
	return nil
}

// AddSource adds a new source. Adding a path/ref/sub-path that is already
// configured is a no-op.
func (c *Config) AddSource(loc source.Location) error {
	absPath, err := filepath.Abs(loc.Path)
	if err != nil {
		return err
	}
	loc.Path = absPath

	for _, s := range c.Sources {
		if s.Path == loc.Path && s.GitRef == loc.GitRef && s.SubPath == loc.SubPath {
			return nil
		}
	}
	c.Sources = append(c.Sources, loc)
	return nil
}

// RemoveSource removes the source with the given name.
func (c *Config) RemoveSource(name string) bool {
	for i, s := range c.Sources {
		if s.Name() == name {
			c.Sources = append(c.Sources[:i], c.Sources[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Sources, validation.Required, validation.Each(validation.By(validateLocation))),
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.By(validateExtension))),
		validation.Field(&c.SortMode, validation.By(func(v interface{}) error {
			if mode, ok := v.(vfs.SortMode); ok && !mode.Valid() {
				return errors.New("unknown sort mode")
			}
			return nil
		})),
		validation.Field(&c.Log, validation.By(func(v interface{}) error {
			_, err := logging.ParseLevel(v.(LogConfig).Level)
			return err
		})),
	)
}

func validateLocation(v interface{}) error {
	loc, ok := v.(source.Location)
	if !ok {
		return errors.New("invalid source")
	}
	return validation.ValidateStruct(&loc,
		validation.Field(&loc.Path, validation.Required),
		validation.Field(&loc.Alias, validation.By(func(interface{}) error {
			if strings.Contains(loc.Alias, "/") {
				return errors.New("must not contain '/'")
			}
			return nil
		})),
	)
}

func validateExtension(v interface{}) error {
	ext, _ := v.(string)
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return fmt.Errorf("extension %q must start with '.'", ext)
	}
	return nil
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0644)
}

// SetConfigFilePath changes where Save writes.
func (c *Config) SetConfigFilePath(path string) { c.configPath = path }

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// Scanner builds the document scanner for the configured extensions and excludes.
func (c *Config) Scanner(logger *zap.Logger) *source.Scanner {
	return &source.Scanner{
		Extensions: c.Extensions,
		Exclude:    c.Exclude,
		Logger:     logger,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Development: c.Log.Development}
}
