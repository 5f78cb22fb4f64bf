// Package config provides configuration types and defaults for dandiatlas.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds all configuration for dandiatlas.
type Config struct {
	Data        DataConfig        `yaml:"data" mapstructure:"data"`
	Mesh        MeshConfig        `yaml:"mesh" mapstructure:"mesh"`
	Titles      TitlesConfig      `yaml:"titles" mapstructure:"titles"`
	Panel       PanelConfig       `yaml:"panel" mapstructure:"panel"`
	Render      RenderConfig      `yaml:"render" mapstructure:"render"`
	Links       LinksConfig       `yaml:"links" mapstructure:"links"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// DataConfig locates the atlas documents.
type DataConfig struct {
	Source  string        `yaml:"source" mapstructure:"source"`   // Directory or http(s) base URL
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per-request timeout for http sources
}

// MeshConfig holds region geometry loading settings.
type MeshConfig struct {
	ChunkSize   int `yaml:"chunk_size" mapstructure:"chunk_size"`   // Meshes per loader chunk
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // Parallel fetches within a chunk
}

// TitlesConfig holds the dandiset title lookup settings.
type TitlesConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PanelConfig holds detail panel settings.
type PanelConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// RenderConfig holds scene projection settings.
type RenderConfig struct {
	Width      int    `yaml:"width" mapstructure:"width"`   // Snapshot width in pixels
	Height     int    `yaml:"height" mapstructure:"height"` // Snapshot height in pixels
	Plane      string `yaml:"plane" mapstructure:"plane"`   // "sagittal", "coronal" or "horizontal"
	Background string `yaml:"background" mapstructure:"background"`
}

// LinksConfig holds the link templates the browser copies to the clipboard.
type LinksConfig struct {
	Dandiset string `yaml:"dandiset" mapstructure:"dandiset"` // Archive page of a dandiset
	View     string `yaml:"view" mapstructure:"view"`         // Current view; prefix with the site URL to share
}

// PathsConfig holds file paths for logs and saved state.
type PathsConfig struct {
	EventLog string `yaml:"event_log" mapstructure:"event_log"`
	State    string `yaml:"state" mapstructure:"state"`
	DebugLog string `yaml:"debug_log" mapstructure:"debug_log"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default link templates.
const (
	DefaultDandisetLink = "https://dandiarchive.org/dandiset/{{.DandisetID}}"
	DefaultViewLink     = "#{{.Hash}}"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Source:  "./data",
			Timeout: 30 * time.Second,
		},
		Mesh: MeshConfig{
			ChunkSize:   20,
			Concurrency: 8,
		},
		Titles: TitlesConfig{
			Enabled:   true,
			Endpoint:  "https://api.dandiarchive.org/api",
			BatchSize: 10,
			Timeout:   10 * time.Second,
		},
		Panel: PanelConfig{
			PageSize: 20,
		},
		Render: RenderConfig{
			Width:      1200,
			Height:     800,
			Plane:      "sagittal",
			Background: "#1a1b26",
		},
		Links: LinksConfig{
			Dandiset: DefaultDandisetLink,
			View:     DefaultViewLink,
		},
		Paths: PathsConfig{
			EventLog: ".dandiatlas/events.log",
			State:    ".dandiatlas/view.json",
			DebugLog: ".dandiatlas/debug.log",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

var planes = []string{"sagittal", "coronal", "horizontal"}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Data.Source) == "" {
		errs = append(errs, errors.New("data.source is required"))
	}
	if c.Mesh.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("mesh.chunk_size must be positive, got %d", c.Mesh.ChunkSize))
	}
	if c.Mesh.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("mesh.concurrency must be positive, got %d", c.Mesh.Concurrency))
	}
	if c.Titles.Enabled && c.Titles.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("titles.batch_size must be positive, got %d", c.Titles.BatchSize))
	}
	if c.Panel.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("panel.page_size must be positive, got %d", c.Panel.PageSize))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	known := false
	for _, p := range planes {
		if strings.EqualFold(c.Render.Plane, p) {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("render.plane %q is not one of %s", c.Render.Plane, strings.Join(planes, ", ")))
	}
	return errors.Join(errs...)
}
