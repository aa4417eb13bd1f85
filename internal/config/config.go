package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Source contains configuration for the Google Drive image source.
type Source struct {
	FolderID     string `toml:"folder_id"`
	FolderPrefix string `toml:"folder_prefix"`
	ItemPrefix   string `toml:"item_prefix"`
	APIToken     string `toml:"api_token"`
	BaseURL      string `toml:"base_url"`
}

// Paths contains local directory configuration.
type Paths struct {
	VideosDir string `toml:"videos_dir"`
	DailyDir  string `toml:"daily_dir"`
	LogDir    string `toml:"log_dir"`
	// CatalogPath is the SQLite run journal location.
	CatalogPath string `toml:"catalog_path"`
}

// Remote contains configuration for the S3-compatible durable store.
type Remote struct {
	Enabled         bool   `toml:"enabled"`
	EndpointURL     string `toml:"endpoint_url"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
}

// Video contains ffmpeg encoding settings for daily videos.
type Video struct {
	FPS      int       `toml:"fps"`
	Codec    string    `toml:"codec"`
	Preset   string    `toml:"preset"`
	CRF      int       `toml:"crf"`
	MaxWidth int       `toml:"max_width"`
	Full     FullVideo `toml:"full"`
}

// FullVideo contains the higher-compression profile used for the full
// timelapse concatenation.
type FullVideo struct {
	CRF      int `toml:"crf"`
	MaxWidth int `toml:"max_width"`
	FPS      int `toml:"fps"`
}

// Download contains worker-pool sizing for image fetches.
type Download struct {
	Workers int `toml:"workers"`
}

// Retention contains eviction configuration for local daily artifacts.
type Retention struct {
	Enabled bool `toml:"enabled"`
	// Days is the minimum age before a local daily video becomes evictable.
	Days int `toml:"days"`
	// FreeSpaceFloor is the free-space ratio below which an alert is logged.
	FreeSpaceFloor float64 `toml:"free_space_floor"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
	OnFailure      bool   `toml:"on_failure"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the timelapse pipeline.
type Config struct {
	Source        Source        `toml:"source"`
	Paths         Paths         `toml:"paths"`
	Remote        Remote        `toml:"remote"`
	Video         Video         `toml:"video"`
	Download      Download      `toml:"download"`
	Retention     Retention     `toml:"retention"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/timelapse/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("timelapse.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
