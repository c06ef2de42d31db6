// Package config loads and persists the downloader settings from a YAML
// file, creating it with defaults on first run.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is the settings file used when no --config flag is given.
const DefaultPath = "config.yaml"

// Settings holds all configuration options.
type Settings struct {
	Account  AccountSettings  `mapstructure:"account"`
	Download DownloadSettings `mapstructure:"download"`
	Cookie   CookieSettings   `mapstructure:"cookie"`
	Log      LogSettings      `mapstructure:"log"`
}

// AccountSettings carries the site credentials used by the login
// handshake.
type AccountSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DownloadSettings tunes the engine and the output policy.
type DownloadSettings struct {
	// Dir is the base output directory.
	Dir string `mapstructure:"dir"`

	// Format selects the output container: "epub" or "txt".
	Format string `mapstructure:"format"`

	// NamingMode selects output filenames: "book_name" or "number"
	// (the numeric id from the book URL).
	NamingMode string `mapstructure:"naming_mode"`

	// UseBookDir nests each book's output under a per-book directory.
	UseBookDir bool `mapstructure:"use_book_dir"`

	// MaxThreads is the engine worker pool size.
	MaxThreads int `mapstructure:"max_threads"`

	// TimeoutSeconds bounds a single task execution.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// RetryAttempts is the per-task retry budget.
	RetryAttempts int `mapstructure:"retry_attempts"`

	// RetryDelays is the retry delay table, in seconds.
	RetryDelays []int `mapstructure:"retry_delays"`

	// MinFreeMB is the disk gate threshold in MiB.
	MinFreeMB int `mapstructure:"min_free_mb"`

	// Images toggles embedded image downloads.
	Images bool `mapstructure:"images"`

	// DebugDir receives dumps of failed HTTP exchanges.
	DebugDir string `mapstructure:"debug_dir"`
}

// CookieSettings locates the persisted session cookies.
type CookieSettings struct {
	Path string `mapstructure:"path"`
}

// LogSettings configures the slog setup.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TaskTimeout returns the per-task timeout as a duration.
func (d DownloadSettings) TaskTimeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// RetryDelayTable returns the delay table as durations.
func (d DownloadSettings) RetryDelayTable() []time.Duration {
	out := make([]time.Duration, 0, len(d.RetryDelays))
	for _, s := range d.RetryDelays {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// MinFreeBytes returns the disk gate threshold in bytes.
func (d DownloadSettings) MinFreeBytes() uint64 {
	return uint64(d.MinFreeMB) << 20
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("account.username", "")
	v.SetDefault("account.password", "")

	v.SetDefault("download.dir", "downloads")
	v.SetDefault("download.format", "epub")
	v.SetDefault("download.naming_mode", "book_name")
	v.SetDefault("download.use_book_dir", false)
	v.SetDefault("download.max_threads", 5)
	v.SetDefault("download.timeout_seconds", 180)
	v.SetDefault("download.retry_attempts", 2)
	v.SetDefault("download.retry_delays", []int{30, 60})
	v.SetDefault("download.min_free_mb", 200)
	v.SetDefault("download.images", true)
	v.SetDefault("download.debug_dir", "debug_dump")

	v.SetDefault("cookie.path", "cookies.yaml")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads settings from path, writing a default file first when none
// exists. The returned viper instance is kept for Save.
func Load(path string) (*Settings, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := v.WriteConfigAs(path); err != nil {
			return nil, nil, fmt.Errorf("write default config: %w", err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	return &s, v, nil
}

// Save writes the current viper state back to its config file.
func Save(v *viper.Viper) error {
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Validate rejects settings the downloader cannot act on.
func (s *Settings) Validate() error {
	switch s.Download.Format {
	case "epub", "txt":
	default:
		return fmt.Errorf("unsupported download format %q (want epub or txt)", s.Download.Format)
	}
	switch s.Download.NamingMode {
	case "book_name", "number":
	default:
		return fmt.Errorf("unsupported naming mode %q (want book_name or number)", s.Download.NamingMode)
	}
	if s.Download.MaxThreads < 1 {
		return fmt.Errorf("download.max_threads must be at least 1")
	}
	return nil
}
