package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeRemote()
	c.normalizeVideo()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.VideosDir) == "" {
		c.Paths.VideosDir = defaultVideosDir
	}
	if c.Paths.VideosDir, err = expandPath(c.Paths.VideosDir); err != nil {
		return fmt.Errorf("paths.videos_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DailyDir) == "" {
		c.Paths.DailyDir = filepath.Join(c.Paths.VideosDir, "daily")
	}
	if c.Paths.DailyDir, err = expandPath(c.Paths.DailyDir); err != nil {
		return fmt.Errorf("paths.daily_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		c.Paths.CatalogPath = defaultCatalogPath
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.FolderID = strings.TrimSpace(c.Source.FolderID)
	c.Source.APIToken = strings.TrimSpace(c.Source.APIToken)
	if strings.TrimSpace(c.Source.FolderPrefix) == "" {
		c.Source.FolderPrefix = defaultFolderPrefix
	}
	if strings.TrimSpace(c.Source.ItemPrefix) == "" {
		c.Source.ItemPrefix = defaultItemPrefix
	}
	if strings.TrimSpace(c.Source.BaseURL) == "" {
		c.Source.BaseURL = defaultDriveBaseURL
	}
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
}

func (c *Config) normalizeRemote() {
	c.Remote.EndpointURL = strings.TrimRight(strings.TrimSpace(c.Remote.EndpointURL), "/")
	c.Remote.Bucket = strings.TrimSpace(c.Remote.Bucket)
	if strings.TrimSpace(c.Remote.Region) == "" {
		c.Remote.Region = defaultRemoteRegion
	}
}

func (c *Config) normalizeVideo() {
	if c.Video.FPS <= 0 {
		c.Video.FPS = defaultVideoFPS
	}
	if strings.TrimSpace(c.Video.Codec) == "" {
		c.Video.Codec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Video.Preset) == "" {
		c.Video.Preset = defaultVideoPreset
	}
	if c.Video.CRF <= 0 {
		c.Video.CRF = defaultVideoCRF
	}
	if c.Video.Full.CRF <= 0 {
		c.Video.Full.CRF = defaultFullCRF
	}
	if c.Video.Full.FPS <= 0 {
		c.Video.Full.FPS = defaultFullFPS
	}
	if c.Download.Workers <= 0 {
		c.Download.Workers = defaultDownloadWorker
	}
	if c.Retention.Days <= 0 {
		c.Retention.Days = defaultRetentionDays
	}
	if c.Retention.FreeSpaceFloor <= 0 || c.Retention.FreeSpaceFloor >= 1 {
		c.Retention.FreeSpaceFloor = defaultFreeSpaceFloor
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}
