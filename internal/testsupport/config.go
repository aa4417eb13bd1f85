package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/wipash/northgrove-timelapse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Source.FolderID = "test-root"
	cfgVal.Source.APIToken = "test-token"
	cfgVal.Paths.VideosDir = filepath.Join(base, "videos")
	cfgVal.Paths.DailyDir = filepath.Join(base, "videos", "daily")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "logs", "catalog.db")
	cfgVal.Remote.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRemote enables the remote tier with the given endpoint and bucket.
func WithRemote(endpoint, bucket string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.Enabled = true
		b.cfg.Remote.EndpointURL = endpoint
		b.cfg.Remote.Bucket = bucket
		b.cfg.Remote.AccessKeyID = "test-access"
		b.cfg.Remote.SecretAccessKey = "test-secret"
	}
}

// WithRetention configures the eviction policy on the test config.
func WithRetention(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retention.Enabled = true
		b.cfg.Retention.Days = days
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.VideosDir)
}
