package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for tagflow.
type Config struct {
	InstanceID string          `toml:"instance_id"`
	BaseDir    string          `toml:"base_dir"`
	LogDir     string          `toml:"log_dir"`
	Database   DatabaseConfig  `toml:"database"`
	Cache      CacheConfig     `toml:"cache"`
	Worker     WorkerConfig    `toml:"worker"`
	Thumbnail  ThumbnailConfig `toml:"thumbnail"`
	Scan       ScanConfig      `toml:"scan"`
	Secrets    SecretsConfig   `toml:"secrets"`
	Log        LogConfig       `toml:"log"`
	Libraries  []LibraryConfig `toml:"libraries"`
}

// DatabaseConfig represents configuration for the catalog database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CacheConfig locates derived artifacts such as thumbnails.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// WorkerConfig tunes the background task worker.
type WorkerConfig struct {
	PollInterval       Duration `toml:"poll_interval"`
	ErrorRetryInterval Duration `toml:"error_retry_interval"`
	HandlerTimeout     Duration `toml:"handler_timeout"`
	HeartbeatInterval  Duration `toml:"heartbeat_interval"`
	LeaseTimeout       Duration `toml:"lease_timeout"`
}

// ThumbnailConfig controls the ffmpeg based thumbnail generator.
type ThumbnailConfig struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	Size       int    `toml:"size"`
	Quality    int    `toml:"quality"`
	Extension  string `toml:"extension"`
}

// ScanConfig controls library scans.
type ScanConfig struct {
	Interval            Duration `toml:"interval"` // zero disables scheduled scans
	Ignore              []string `toml:"ignore"`
	ThumbnailExtensions []string `toml:"thumbnail_extensions"`
	ThumbnailPriority   int64    `toml:"thumbnail_priority"`
}

// SecretsConfig points at the age identity used to unseal library options.
type SecretsConfig struct {
	IdentityPath string `toml:"identity_path"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level      string `toml:"level"` // debug, info, warn, error
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// LibraryConfig declares a storage source to catalog.
// This uses a tagged union pattern - Protocol determines how BasePath and Options are read.
type LibraryConfig struct {
	Name     string            `toml:"name"`
	Protocol string            `toml:"protocol"` // "local", "s3", "memory" or "webdav"
	BasePath string            `toml:"base_path"`
	Options  map[string]string `toml:"options,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// DefaultThumbnailExtensions lists the file extensions that get a thumbnail
// task when first catalogued.
var DefaultThumbnailExtensions = []string{
	"jpg", "jpeg", "png", "gif", "webp", "bmp",
	"mp4", "mov", "mkv", "avi", "webm",
}

// NewConfig creates a new Config rooted at baseDir with all defaults applied.
func NewConfig(instanceID, baseDir string) *Config {
	cfg := &Config{
		InstanceID: instanceID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Secrets: SecretsConfig{
			IdentityPath: filepath.Join(baseDir, "keys", "tagflow.key"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued settings.
func (c *Config) ApplyDefaults() {
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DataDir == "" && c.BaseDir != "" {
		c.Database.DataDir = filepath.Join(c.BaseDir, "db")
	}
	if c.Cache.Dir == "" && c.BaseDir != "" {
		c.Cache.Dir = filepath.Join(c.BaseDir, "cache")
	}

	setDuration(&c.Worker.PollInterval, 5*time.Second)
	setDuration(&c.Worker.ErrorRetryInterval, 5*time.Second)
	setDuration(&c.Worker.HandlerTimeout, 5*time.Minute)
	setDuration(&c.Worker.HeartbeatInterval, 30*time.Second)
	setDuration(&c.Worker.LeaseTimeout, 10*time.Minute)

	if c.Thumbnail.FFmpegPath == "" {
		c.Thumbnail.FFmpegPath = "ffmpeg"
	}
	if c.Thumbnail.Size == 0 {
		c.Thumbnail.Size = 256
	}
	if c.Thumbnail.Quality == 0 {
		c.Thumbnail.Quality = 80
	}
	if c.Thumbnail.Extension == "" {
		c.Thumbnail.Extension = "webp"
	}

	if c.Scan.ThumbnailExtensions == nil {
		c.Scan.ThumbnailExtensions = append([]string(nil), DefaultThumbnailExtensions...)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration == 0 {
		d.Duration = def
	}
}

// Validate rejects configurations the application cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.DataDir == "" {
			return fmt.Errorf("database.data_dir required for sqlite database")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database type: %s", c.Database.Type)
	}

	durations := map[string]Duration{
		"scan.interval":               c.Scan.Interval,
		"worker.poll_interval":        c.Worker.PollInterval,
		"worker.error_retry_interval": c.Worker.ErrorRetryInterval,
		"worker.handler_timeout":      c.Worker.HandlerTimeout,
		"worker.heartbeat_interval":   c.Worker.HeartbeatInterval,
		"worker.lease_timeout":        c.Worker.LeaseTimeout,
	}
	for name, d := range durations {
		if d.Duration < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Worker.LeaseTimeout.Duration > 0 && c.Worker.LeaseTimeout.Duration <= c.Worker.HeartbeatInterval.Duration {
		return fmt.Errorf("worker.lease_timeout must exceed worker.heartbeat_interval")
	}

	if c.Thumbnail.Size < 0 || c.Thumbnail.Quality < 0 {
		return fmt.Errorf("thumbnail size and quality must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Log.Level)
	}

	seen := make(map[string]bool, len(c.Libraries))
	for i, lib := range c.Libraries {
		if lib.Name == "" {
			return fmt.Errorf("libraries[%d]: name is required", i)
		}
		if seen[lib.Name] {
			return fmt.Errorf("duplicate library name: %s", lib.Name)
		}
		seen[lib.Name] = true
		if lib.Protocol == "" {
			return fmt.Errorf("library %s: protocol is required", lib.Name)
		}
		if lib.BasePath == "" {
			return fmt.Errorf("library %s: base_path is required", lib.Name)
		}
	}
	return nil
}

// Library returns the library with the given name, or nil.
func (c *Config) Library(name string) *LibraryConfig {
	for i := range c.Libraries {
		if c.Libraries[i].Name == name {
			return &c.Libraries[i]
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
