package models

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Database backends
const (
	BackendRPM      = "rpm"
	BackendHeaders  = "headers"
	BackendSnapshot = "snapshot"
)

// Fedora defaults
const (
	DefaultReleaseFile        = "/etc/fedora-release"
	DefaultReleaseMarker      = "Rawhide"
	DefaultVendor             = "Red Hat, Inc."
	DefaultDistributionPrefix = "Red Hat"
)

// DefaultOfficialKeyIDs are the ids of keys used by the Fedora project to sign
// its packages.
var DefaultOfficialKeyIDs = []string{"30c9ecf8", "4f2a6fd2", "897da07a", "1ac70ce6"}

// Config contains configuration for provenance queries
type Config struct {
	// Trust policy
	OfficialKeyIDs   []string      `yaml:"official_key_ids"`
	OfficialKeyrings []string      `yaml:"official_keyrings"` // armored or binary OpenPGP public keyrings
	RollingVendor    RollingVendor `yaml:"rolling_vendor"`

	// Rolling-release detection
	ReleaseFile   string `yaml:"release_file"`
	ReleaseMarker string `yaml:"release_marker"`

	// Architecture overrides the detected system architecture when set
	Architecture string `yaml:"architecture"`

	Database DatabaseConfig `yaml:"database"`
}

// RollingVendor is the vendor/distribution pattern trusted on unsigned
// rolling-release builds.
type RollingVendor struct {
	Vendor             string `yaml:"vendor"`
	DistributionPrefix string `yaml:"distribution_prefix"`
}

// DatabaseConfig selects and tunes the package database backend
type DatabaseConfig struct {
	Backend   string `yaml:"backend"`    // rpm, headers or snapshot
	Path      string `yaml:"path"`       // package directory or snapshot file
	CacheSize int64  `yaml:"cache_size"` // number of cached lookups, 0 disables caching
}

// DefaultConfig returns the Fedora configuration
func DefaultConfig() Config {
	return Config{
		OfficialKeyIDs: append([]string(nil), DefaultOfficialKeyIDs...),
		RollingVendor: RollingVendor{
			Vendor:             DefaultVendor,
			DistributionPrefix: DefaultDistributionPrefix,
		},
		ReleaseFile:   DefaultReleaseFile,
		ReleaseMarker: DefaultReleaseMarker,
		Database: DatabaseConfig{
			Backend: BackendRPM,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig. Keys
// missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &ProvenanceError{
			Type: ErrInvalidConfig,
			Err:  fmt.Errorf("failed to read config: %w", err),
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, &ProvenanceError{
			Type: ErrInvalidConfig,
			Err:  fmt.Errorf("failed to parse config %s: %w", path, err),
		}
	}

	return cfg, nil
}

// Validate fills in empty fields and rejects unusable values
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "":
		c.Database.Backend = BackendRPM
	case BackendRPM:
	case BackendHeaders, BackendSnapshot:
		if c.Database.Path == "" {
			return &ProvenanceError{
				Type: ErrInvalidConfig,
				Err:  fmt.Errorf("database path is required for the %s backend", c.Database.Backend),
			}
		}
	default:
		return &ProvenanceError{
			Type: ErrInvalidConfig,
			Err:  fmt.Errorf("unknown database backend %q", c.Database.Backend),
		}
	}

	if c.Database.CacheSize < 0 {
		return &ProvenanceError{
			Type: ErrInvalidConfig,
			Err:  fmt.Errorf("cache size must not be negative"),
		}
	}

	if c.ReleaseFile == "" {
		c.ReleaseFile = DefaultReleaseFile
	}
	if c.ReleaseMarker == "" {
		c.ReleaseMarker = DefaultReleaseMarker
	}

	return nil
}
