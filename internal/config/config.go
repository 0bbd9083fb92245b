// ABOUTME: Application configuration via viper (TOML) with XDG default paths
// ABOUTME: Selects the transport mode and provides factories for the store and remote API

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/newsling/newsling/internal/remote"
	"github.com/newsling/newsling/internal/storage"
	"github.com/spf13/viper"
)

// Config stores newsling configuration.
type Config struct {
	Account  AccountConfig  `mapstructure:"account"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
}

// AccountConfig selects the transport mode and carries the credentials for
// the remote modes. Exactly one mode is active per process.
type AccountConfig struct {
	Mode     string `mapstructure:"mode"` // "session", "basic" or "standalone"
	Server   string `mapstructure:"server"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DatabaseConfig locates the local cache.
type DatabaseConfig struct {
	Path         string `mapstructure:"path"`
	EnclosureDir string `mapstructure:"enclosure_dir"`
}

// SyncConfig tunes sync behavior.
type SyncConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfigPath returns the XDG config file location.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "newsling", "config.toml")
}

// defaultDataDir returns the XDG data directory for newsling.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "newsling")
}

// Load reads configuration from the given path (or the default location when
// empty). A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("account.mode", string(remote.ModeStandalone))
	v.SetDefault("database.path", filepath.Join(defaultDataDir(), "newsling.db"))
	v.SetDefault("database.enclosure_dir", filepath.Join(defaultDataDir(), "enclosures"))
	v.SetDefault("sync.page_size", 200)
	v.SetDefault("log.level", "warn")

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch remote.Mode(c.Account.Mode) {
	case remote.ModeStandalone:
		return nil
	case remote.ModeSession, remote.ModeBasic:
		if c.Account.Server == "" {
			return fmt.Errorf("account.server is required for mode %q", c.Account.Mode)
		}
		if c.Account.Username == "" {
			return fmt.Errorf("account.username is required for mode %q", c.Account.Mode)
		}
		return nil
	default:
		return fmt.Errorf("unknown account.mode: %q", c.Account.Mode)
	}
}

// OpenStorage creates the local cache at the configured path.
func (c *Config) OpenStorage() (storage.Store, error) {
	return storage.NewSQLiteStore(c.Database.Path)
}

// NewRemote builds the active transport variant. Called once at startup;
// variants are never mixed mid-sync.
func (c *Config) NewRemote(store remote.StandaloneStore) (remote.API, error) {
	switch remote.Mode(c.Account.Mode) {
	case remote.ModeStandalone:
		return remote.NewStandalone(store), nil
	case remote.ModeBasic:
		return remote.NewBasic(c.Account.Server, c.Account.Username, c.Account.Password), nil
	case remote.ModeSession:
		return remote.NewSession(c.Account.Server, c.Account.Username, c.Account.Password)
	default:
		return nil, fmt.Errorf("unknown account.mode: %q", c.Account.Mode)
	}
}
