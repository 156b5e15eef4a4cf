package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrExists is returned by WriteFile when the file exists and force is off.
var ErrExists = errors.New("config file already exists")

// WriteFile writes c as TOML to path. Durations are written as strings
// ("2s") so the file stays hand-editable.
func WriteFile(path string, c Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, c); err != nil {
		return err
	}
	return f.Close()
}

// Encode writes c to w in the config file format.
func Encode(w io.Writer, c Config) error {
	if err := toml.NewEncoder(w).Encode(document(c)); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func document(c Config) map[string]any {
	return map[string]any{
		"store": map[string]any{
			"path": c.Store.Path,
		},
		"feeds": map[string]any{
			"base_url":           c.Feeds.BaseURL,
			"tasks_gid":          c.Feeds.TasksGid,
			"non_buyers_gid":     c.Feeds.NonBuyersGid,
			"sku_map_gid":        c.Feeds.SkuMapGid,
			"product_images_gid": c.Feeds.ProductImagesGid,
			"consultants_gid":    c.Feeds.ConsultantsGid,
		},
		"http": map[string]any{
			"user_agent": c.HTTP.UserAgent,
			"timeout":    c.HTTP.Timeout.String(),
		},
		"sync": map[string]any{
			"reachability_timeout": c.Sync.ReachabilityTimeout.String(),
			"avatar_concurrency":   c.Sync.AvatarConcurrency,
		},
		"watch": map[string]any{
			"dir":      c.Watch.Dir,
			"debounce": c.Watch.Debounce.String(),
		},
		"log": map[string]any{
			"file":         c.Log.File,
			"max_size_mb":  c.Log.MaxSizeMB,
			"max_backups":  c.Log.MaxBackups,
			"max_age_days": c.Log.MaxAgeDays,
			"verbose":      c.Log.Verbose,
		},
	}
}
