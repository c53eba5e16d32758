package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents an imagesources.yaml configuration file.
type Config struct {
	Database      string        `yaml:"database"`
	Uploads       UploadsConfig `yaml:"uploads"`
	FilterContent *bool         `yaml:"filter_content"`
	PostTypes     []string      `yaml:"post_types"`
	Cache         CacheConfig   `yaml:"cache"`
	Storage       StorageConfig `yaml:"storage"`
	Adapter       AdapterConfig `yaml:"adapter"`
}

// UploadsConfig locates the uploads directory on disk and on the web.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
	URL string `yaml:"url"`
}

// CacheConfig sizes the attachment metadata cache.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// StorageConfig selects where run reports are stored.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig selects where batch completion events are published.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Storage backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Adapter types.
const (
	AdapterRedis   = "redis"
	AdapterWebhook = "webhook"
)

// DefaultRetries is used when adapter.retries is absent.
const DefaultRetries = 3

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// FilterContentEnabled reports whether rendered content goes through the
// WebP-aware filter. Defaults to true.
func (c *Config) FilterContentEnabled() bool {
	return c.FilterContent == nil || *c.FilterContent
}

// AdapterRetries returns the configured retry count or DefaultRetries.
func (c *Config) AdapterRetries() int {
	if c.Adapter.Retries == nil {
		return DefaultRetries
	}
	return *c.Adapter.Retries
}

// Validate checks required fields and enumerated values.
func (c *Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if c.Uploads.Dir == "" {
		errs = append(errs, errors.New("uploads.dir is required"))
	}
	if c.Uploads.URL == "" {
		errs = append(errs, errors.New("uploads.url is required"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size must be >= 0, got %d", c.Cache.Size))
	}

	switch c.Storage.Backend {
	case "":
	case BackendFS, BackendS3:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for backend %q", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q (want fs or s3)", c.Storage.Backend))
	}

	switch c.Adapter.Type {
	case "":
	case AdapterRedis, AdapterWebhook:
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for adapter %q", c.Adapter.Type))
		}
		if c.AdapterRetries() < 0 {
			errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", c.AdapterRetries()))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown adapter.type %q (want redis or webhook)", c.Adapter.Type))
	}

	return errors.Join(errs...)
}
