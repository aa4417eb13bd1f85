package config

import (
	"strings"

	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Validate checks cross-field constraints after normalization.
func (c *Config) Validate() error {
	if c.Source.FolderID == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "source.folder_id is required", nil)
	}
	if c.Remote.Enabled {
		switch {
		case c.Remote.EndpointURL == "":
			return services.Wrap(services.ErrConfiguration, "config", "validate", "remote.endpoint_url is required when remote is enabled", nil)
		case !strings.HasPrefix(c.Remote.EndpointURL, "http://") && !strings.HasPrefix(c.Remote.EndpointURL, "https://"):
			return services.Wrap(services.ErrConfiguration, "config", "validate", "remote.endpoint_url must be an http(s) URL", nil)
		case c.Remote.Bucket == "":
			return services.Wrap(services.ErrConfiguration, "config", "validate", "remote.bucket is required when remote is enabled", nil)
		case c.Remote.AccessKeyID == "" || c.Remote.SecretAccessKey == "":
			return services.Wrap(services.ErrConfiguration, "config", "validate", "remote credentials are required when remote is enabled", nil)
		}
	}
	if c.Video.CRF > 51 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "video.crf must be 51 or lower", nil)
	}
	return nil
}
