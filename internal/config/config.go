package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const appName = "lazyweave"

// Config holds all application configuration
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	UI          UIConfig          `mapstructure:"ui"`
	Data        DataConfig        `mapstructure:"data"`
	Polling     PollingConfig     `mapstructure:"polling"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Log         LogConfig         `mapstructure:"log"`
}

type GeneralConfig struct {
	ConfirmDestructiveOps bool `mapstructure:"confirm_destructive_ops"`
}

type UIConfig struct {
	Theme           string `mapstructure:"theme"`
	MouseEnabled    bool   `mapstructure:"mouse_enabled"`
	PanelWidthRatio int    `mapstructure:"panel_width_ratio"`
	NotificationTTL int    `mapstructure:"notification_ttl"`
}

type DataConfig struct {
	DefaultPageSize      int   `mapstructure:"default_page_size"`
	PageSizes            []int `mapstructure:"page_sizes"`
	SearchLimit          int   `mapstructure:"search_limit"`
	MaxCellDisplayLength int   `mapstructure:"max_cell_display_length"`
	CountCacheSize       int   `mapstructure:"count_cache_size"`
	CountCacheTTL        int   `mapstructure:"count_cache_ttl"`
}

type PollingConfig struct {
	StatusInterval   int `mapstructure:"status_interval"`
	ViewInterval     int `mapstructure:"view_interval"`
	FailureThreshold int `mapstructure:"failure_threshold"`
}

type PerformanceConfig struct {
	RequestTimeout int `mapstructure:"request_timeout"`
}

type StorageConfig struct {
	Path           string `mapstructure:"path"`
	KeyringService string `mapstructure:"keyring_service"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		General: GeneralConfig{
			ConfirmDestructiveOps: true,
		},
		UI: UIConfig{
			Theme:           "default",
			MouseEnabled:    true,
			PanelWidthRatio: 25,
			NotificationTTL: 6,
		},
		Data: DataConfig{
			DefaultPageSize:      25,
			PageSizes:            []int{10, 25, 50, 75, 100},
			SearchLimit:          100,
			MaxCellDisplayLength: 60,
			CountCacheSize:       256,
			CountCacheTTL:        300,
		},
		Polling: PollingConfig{
			StatusInterval:   30,
			ViewInterval:     120,
			FailureThreshold: 1,
		},
		Performance: PerformanceConfig{
			RequestTimeout: 10000,
		},
		Storage: StorageConfig{
			KeyringService: appName,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("general.confirm_destructive_ops", d.General.ConfirmDestructiveOps)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.mouse_enabled", d.UI.MouseEnabled)
	v.SetDefault("ui.panel_width_ratio", d.UI.PanelWidthRatio)
	v.SetDefault("ui.notification_ttl", d.UI.NotificationTTL)
	v.SetDefault("data.default_page_size", d.Data.DefaultPageSize)
	v.SetDefault("data.page_sizes", d.Data.PageSizes)
	v.SetDefault("data.search_limit", d.Data.SearchLimit)
	v.SetDefault("data.max_cell_display_length", d.Data.MaxCellDisplayLength)
	v.SetDefault("data.count_cache_size", d.Data.CountCacheSize)
	v.SetDefault("data.count_cache_ttl", d.Data.CountCacheTTL)
	v.SetDefault("polling.status_interval", d.Polling.StatusInterval)
	v.SetDefault("polling.view_interval", d.Polling.ViewInterval)
	v.SetDefault("polling.failure_threshold", d.Polling.FailureThreshold)
	v.SetDefault("performance.request_timeout", d.Performance.RequestTimeout)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.keyring_service", d.Storage.KeyringService)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
}

func newViper(explicit string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if explicit != "" {
		v.SetConfigFile(explicit)
		return v
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config paths in priority order
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, appName))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return v
}

// Load loads configuration from the default search paths
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or from the default search paths
// when path is empty. A missing file in the search paths is not an error.
func LoadFile(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize replaces out-of-range values with defaults
func (c *Config) normalize() {
	d := GetDefaults()
	if len(c.Data.PageSizes) == 0 {
		c.Data.PageSizes = d.Data.PageSizes
	}
	valid := false
	for _, s := range c.Data.PageSizes {
		if s == c.Data.DefaultPageSize {
			valid = true
			break
		}
	}
	if !valid {
		c.Data.DefaultPageSize = c.Data.PageSizes[0]
	}
	if c.Data.SearchLimit < 0 {
		c.Data.SearchLimit = d.Data.SearchLimit
	}
	if c.UI.PanelWidthRatio <= 0 || c.UI.PanelWidthRatio >= 100 {
		c.UI.PanelWidthRatio = d.UI.PanelWidthRatio
	}
	if c.Polling.FailureThreshold < 1 {
		c.Polling.FailureThreshold = 1
	}
	if c.Performance.RequestTimeout <= 0 {
		c.Performance.RequestTimeout = d.Performance.RequestTimeout
	}
}

// Watch reloads the config file on change and hands the result to onChange.
// It returns false when no config file was found to watch.
func Watch(path string, onChange func(*Config, error)) bool {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return false
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
	return true
}

// RequestTimeout returns the per-request timeout for remote calls
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Performance.RequestTimeout) * time.Millisecond
}

// StatusInterval returns how often connected instances are live-checked
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Polling.StatusInterval) * time.Second
}

// ViewInterval returns how often an open view refreshes itself
func (c *Config) ViewInterval() time.Duration {
	return time.Duration(c.Polling.ViewInterval) * time.Second
}

// NotificationTTL returns how long a notification stays visible
func (c *Config) NotificationTTL() time.Duration {
	return time.Duration(c.UI.NotificationTTL) * time.Second
}

// CountCacheTTL returns how long a total count stays cached
func (c *Config) CountCacheTTL() time.Duration {
	return time.Duration(c.Data.CountCacheTTL) * time.Second
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// DataDir returns the directory holding the connection database and logs
func (c *Config) DataDir() (string, error) {
	if c.Storage.Path != "" {
		return filepath.Dir(c.Storage.Path), nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// DatabasePath returns where connection records are stored
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".db"), nil
}

// LogPath returns the log file location
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}
