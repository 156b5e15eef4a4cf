// Package config loads palmtask settings.
//
// Settings come from, in increasing priority: built-in defaults, the TOML
// file ($HOME/.palmtask/config.toml unless overridden) and environment
// variables prefixed PALMTASK_ with dots replaced by underscores
// (PALMTASK_SYNC_AVATAR_CONCURRENCY=8).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/palmtask/palmtask/internal/feed"
	"github.com/palmtask/palmtask/internal/sync"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PALMTASK"

// Config is the full palmtask configuration.
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Feeds FeedsConfig `mapstructure:"feeds"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	Sync  SyncConfig  `mapstructure:"sync"`
	Watch WatchConfig `mapstructure:"watch"`
	Log   LogConfig   `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// FeedsConfig locates the published feeds. An empty gid selects the base
// resource.
type FeedsConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	TasksGid         string `mapstructure:"tasks_gid"`
	NonBuyersGid     string `mapstructure:"non_buyers_gid"`
	SkuMapGid        string `mapstructure:"sku_map_gid"`
	ProductImagesGid string `mapstructure:"product_images_gid"`
	ConsultantsGid   string `mapstructure:"consultants_gid"`
}

type HTTPConfig struct {
	UserAgent string `mapstructure:"user_agent"`

	// Timeout bounds each request; 0 leaves the transport defaults.
	Timeout time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	ReachabilityTimeout time.Duration `mapstructure:"reachability_timeout"`
	AvatarConcurrency   int           `mapstructure:"avatar_concurrency"`
}

// WatchConfig configures the directory import daemon.
type WatchConfig struct {
	Dir      string        `mapstructure:"dir"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`

	// Verbose echoes component logs to stderr.
	Verbose bool `mapstructure:"verbose"`
}

// Dir returns the palmtask home directory ($HOME/.palmtask).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".palmtask")
}

// DefaultFile returns the default config file path.
func DefaultFile() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() Config {
	fc := feed.DefaultConfig()
	dir := Dir()
	return Config{
		Store: StoreConfig{Path: filepath.Join(dir, "palmtask.db")},
		Feeds: FeedsConfig{
			BaseURL:          fc.BaseURL,
			NonBuyersGid:     fc.Gids[feed.NonBuyers],
			SkuMapGid:        fc.Gids[feed.SkuMap],
			ProductImagesGid: fc.Gids[feed.ProductImages],
			ConsultantsGid:   fc.Gids[feed.Consultants],
		},
		HTTP: HTTPConfig{UserAgent: fc.UserAgent},
		Sync: SyncConfig{
			ReachabilityTimeout: fc.ReachabilityTimeout,
			AvatarConcurrency:   sync.DefaultOptions().AvatarConcurrency,
		},
		Watch: WatchConfig{
			Dir:      filepath.Join(dir, "inbox"),
			Debounce: 2 * time.Second,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// setDefaults registers every key so env overrides apply to all of them.
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("store.path", c.Store.Path)
	v.SetDefault("feeds.base_url", c.Feeds.BaseURL)
	v.SetDefault("feeds.tasks_gid", c.Feeds.TasksGid)
	v.SetDefault("feeds.non_buyers_gid", c.Feeds.NonBuyersGid)
	v.SetDefault("feeds.sku_map_gid", c.Feeds.SkuMapGid)
	v.SetDefault("feeds.product_images_gid", c.Feeds.ProductImagesGid)
	v.SetDefault("feeds.consultants_gid", c.Feeds.ConsultantsGid)
	v.SetDefault("http.user_agent", c.HTTP.UserAgent)
	v.SetDefault("http.timeout", c.HTTP.Timeout)
	v.SetDefault("sync.reachability_timeout", c.Sync.ReachabilityTimeout)
	v.SetDefault("sync.avatar_concurrency", c.Sync.AvatarConcurrency)
	v.SetDefault("watch.dir", c.Watch.Dir)
	v.SetDefault("watch.debounce", c.Watch.Debounce)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("log.max_size_mb", c.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
	v.SetDefault("log.max_age_days", c.Log.MaxAgeDays)
	v.SetDefault("log.verbose", c.Log.Verbose)
}

// Load reads the configuration. An empty path means DefaultFile; a missing
// default file is not an error, a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	file := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if !missing || explicit {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		file = ""
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	c.File = file

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Store.Path == "":
		return fmt.Errorf("store.path is required")
	case c.Feeds.BaseURL == "":
		return fmt.Errorf("feeds.base_url is required")
	case c.Sync.AvatarConcurrency < 1:
		return fmt.Errorf("sync.avatar_concurrency must be >= 1 (got %d)", c.Sync.AvatarConcurrency)
	case c.HTTP.Timeout < 0:
		return fmt.Errorf("http.timeout must be >= 0 (got %v)", c.HTTP.Timeout)
	case c.Watch.Debounce < 0:
		return fmt.Errorf("watch.debounce must be >= 0 (got %v)", c.Watch.Debounce)
	}
	return nil
}

// FeedConfig returns the HTTP source configuration.
func (c Config) FeedConfig() feed.Config {
	gids := map[feed.Feed]string{
		feed.Tasks:         c.Feeds.TasksGid,
		feed.NonBuyers:     c.Feeds.NonBuyersGid,
		feed.SkuMap:        c.Feeds.SkuMapGid,
		feed.ProductImages: c.Feeds.ProductImagesGid,
		feed.Consultants:   c.Feeds.ConsultantsGid,
	}
	return feed.Config{
		BaseURL:             c.Feeds.BaseURL,
		Gids:                gids,
		UserAgent:           c.HTTP.UserAgent,
		Timeout:             c.HTTP.Timeout,
		ReachabilityTimeout: c.Sync.ReachabilityTimeout,
	}
}

// SyncOptions returns the orchestrator options.
func (c Config) SyncOptions() sync.Options {
	opts := sync.DefaultOptions()
	opts.AvatarConcurrency = c.Sync.AvatarConcurrency
	return opts
}
