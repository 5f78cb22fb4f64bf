package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestDefaultDataConfig(t *testing.T) {
	cfg := Default()

	if cfg.Data.Source != "./data" {
		t.Errorf("Data.Source = %q, want %q", cfg.Data.Source, "./data")
	}
	if cfg.Data.Timeout != 30*time.Second {
		t.Errorf("Data.Timeout = %v, want %v", cfg.Data.Timeout, 30*time.Second)
	}
}

func TestDefaultMeshAndPanel(t *testing.T) {
	cfg := Default()

	if cfg.Mesh.ChunkSize != 20 {
		t.Errorf("Mesh.ChunkSize = %d, want 20", cfg.Mesh.ChunkSize)
	}
	if cfg.Mesh.Concurrency != 8 {
		t.Errorf("Mesh.Concurrency = %d, want 8", cfg.Mesh.Concurrency)
	}
	if cfg.Panel.PageSize != 20 {
		t.Errorf("Panel.PageSize = %d, want 20", cfg.Panel.PageSize)
	}
}

func TestDefaultTitlesConfig(t *testing.T) {
	cfg := Default()

	if !cfg.Titles.Enabled {
		t.Error("Titles.Enabled = false, want true")
	}
	if cfg.Titles.Endpoint != "https://api.dandiarchive.org/api" {
		t.Errorf("Titles.Endpoint = %q", cfg.Titles.Endpoint)
	}
	if cfg.Titles.BatchSize != 10 {
		t.Errorf("Titles.BatchSize = %d, want 10", cfg.Titles.BatchSize)
	}
}

func TestDefaultPathsConfig(t *testing.T) {
	cfg := Default()

	paths := []struct {
		name string
		got  string
		want string
	}{
		{"EventLog", cfg.Paths.EventLog, ".dandiatlas/events.log"},
		{"State", cfg.Paths.State, ".dandiatlas/view.json"},
		{"DebugLog", cfg.Paths.DebugLog, ".dandiatlas/debug.log"},
	}

	for _, p := range paths {
		if p.got != p.want {
			t.Errorf("Paths.%s = %q, want %q", p.name, p.got, p.want)
		}
	}
}

func TestDefaultLogRotationConfig(t *testing.T) {
	cfg := Default()

	if cfg.LogRotation.MaxSizeMB != 10 {
		t.Errorf("LogRotation.MaxSizeMB = %d, want 10", cfg.LogRotation.MaxSizeMB)
	}
	if cfg.LogRotation.MaxBackups != 3 {
		t.Errorf("LogRotation.MaxBackups = %d, want 3", cfg.LogRotation.MaxBackups)
	}
	if !cfg.LogRotation.Compress {
		t.Error("LogRotation.Compress = false, want true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"empty source", func(c *Config) { c.Data.Source = " " }, "data.source"},
		{"zero chunk", func(c *Config) { c.Mesh.ChunkSize = 0 }, "mesh.chunk_size"},
		{"zero concurrency", func(c *Config) { c.Mesh.Concurrency = 0 }, "mesh.concurrency"},
		{"zero batch", func(c *Config) { c.Titles.BatchSize = 0 }, "titles.batch_size"},
		{"negative page", func(c *Config) { c.Panel.PageSize = -1 }, "panel.page_size"},
		{"zero size", func(c *Config) { c.Render.Width = 0 }, "render size"},
		{"bad plane", func(c *Config) { c.Render.Plane = "oblique" }, "render.plane"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}

	t.Run("disabled titles skip batch check", func(t *testing.T) {
		cfg := Default()
		cfg.Titles.Enabled = false
		cfg.Titles.BatchSize = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("plane is case insensitive", func(t *testing.T) {
		cfg := Default()
		cfg.Render.Plane = "Coronal"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})
}
