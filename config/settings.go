// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Path derivation from the data directory

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable, e.g. ZIMSHELF_DATA_DIR.
const EnvPrefix = "ZIMSHELF"

// Settings holds all application configuration.
type Settings struct {
	// DataDir holds the database when DBPath is not set
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// DBPath overrides the recent search database location
	DBPath string `envconfig:"DB_PATH" default:""`

	// LegacyPath points at the legacy bbolt store to import once, if any
	LegacyPath string `envconfig:"LEGACY_PATH" default:""`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// New creates settings, loading values from environment variables.
// Returns an error if environment variables contain invalid values.
func New() (Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := s.ResolveDefaults(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ResolveDefaults validates the log level and derives DBPath from DataDir
// when it is empty.
func (s *Settings) ResolveDefaults() error {
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", s.LogLevel, err)
	}

	if s.DBPath == "" {
		if s.DataDir == "" {
			s.DataDir = "./data"
		}
		s.DBPath = filepath.Join(s.DataDir, "zimshelf.db")
	}
	return nil
}

// Level returns the parsed log level.
func (s Settings) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
