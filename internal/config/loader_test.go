package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// inTempDir runs the test from an empty directory so no project config is
// picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	return tmpDir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Data.Timeout != 30*time.Second {
		t.Errorf("Data.Timeout = %v, want %v", cfg.Data.Timeout, 30*time.Second)
	}
	if cfg.Render.Plane != "sagittal" {
		t.Errorf("Render.Plane = %q, want sagittal", cfg.Render.Plane)
	}
}

func TestLoadConfig_ProjectFile(t *testing.T) {
	inTempDir(t)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
data:
  source: https://atlas.test/data
  timeout: 5s
mesh:
  chunk_size: 50
  concurrency: 2
titles:
  enabled: false
`)

	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Data.Source != "https://atlas.test/data" {
		t.Errorf("Data.Source = %q", cfg.Data.Source)
	}
	if cfg.Data.Timeout != 5*time.Second {
		t.Errorf("Data.Timeout = %v, want 5s", cfg.Data.Timeout)
	}
	if cfg.Mesh.ChunkSize != 50 || cfg.Mesh.Concurrency != 2 {
		t.Errorf("Mesh = %+v", cfg.Mesh)
	}
	if cfg.Titles.Enabled {
		t.Error("Titles.Enabled = true, want false")
	}
	// Untouched sections keep their defaults.
	if cfg.Panel.PageSize != 20 {
		t.Errorf("Panel.PageSize = %d, want 20", cfg.Panel.PageSize)
	}
}

func TestLoadConfig_GlobalThenProject(t *testing.T) {
	dir := inTempDir(t)
	writeConfig(t, filepath.Join(dir, "xdg", GlobalConfigDir, GlobalConfigFile), `
panel:
  page_size: 5
render:
  plane: coronal
`)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
panel:
  page_size: 7
`)

	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Panel.PageSize != 7 {
		t.Errorf("Panel.PageSize = %d, want project value 7", cfg.Panel.PageSize)
	}
	if cfg.Render.Plane != "coronal" {
		t.Errorf("Render.Plane = %q, want global value coronal", cfg.Render.Plane)
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	configPath := filepath.Join(dir, "custom-config.yaml")
	writeConfig(t, configPath, `
render:
  width: 640
  height: 480
links:
  view: "https://atlas.test/#{{.Hash}}"
`)

	v := viper.New()
	v.Set("config", configPath)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Render.Width != 640 || cfg.Render.Height != 480 {
		t.Errorf("Render = %dx%d, want 640x480", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Links.View != "https://atlas.test/#{{.Hash}}" {
		t.Errorf("Links.View = %q", cfg.Links.View)
	}
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	inTempDir(t)
	v := viper.New()
	v.Set("config", "/nonexistent/path/config.yaml")

	if _, err := LoadConfig(v); err == nil {
		t.Error("LoadConfig should fail for missing explicit config")
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := inTempDir(t)
	configPath := filepath.Join(dir, "bad.yaml")
	writeConfig(t, configPath, "data: [unclosed")

	v := viper.New()
	v.Set("config", configPath)
	if _, err := LoadConfig(v); err == nil {
		t.Error("LoadConfig should fail for malformed YAML")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := inTempDir(t)
	configPath := filepath.Join(dir, "bad-values.yaml")
	writeConfig(t, configPath, "render:\n  plane: oblique\n")

	v := viper.New()
	v.Set("config", configPath)
	if _, err := LoadConfig(v); err == nil {
		t.Error("LoadConfig should reject an unknown plane")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	inTempDir(t)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
data:
  source: ./from-file
panel:
  page_size: 7
`)
	t.Setenv("DANDIATLAS_DATA_SOURCE", "./from-env")
	t.Setenv("DANDIATLAS_PANEL_PAGE_SIZE", "12")

	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Data.Source != "./from-env" {
		t.Errorf("Data.Source = %q, want %q", cfg.Data.Source, "./from-env")
	}
	if cfg.Panel.PageSize != 12 {
		t.Errorf("Panel.PageSize = %d, want 12", cfg.Panel.PageSize)
	}
}

func TestLoadConfig_FlagOverride(t *testing.T) {
	inTempDir(t)
	t.Setenv("DANDIATLAS_RENDER_PLANE", "coronal")

	v := viper.New()
	// Changed flags are bound by the CLI as explicit settings.
	v.Set("render.plane", "horizontal")

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Render.Plane != "horizontal" {
		t.Errorf("Render.Plane = %q, want horizontal", cfg.Render.Plane)
	}
}

func TestLoadConfig_DurationParsing(t *testing.T) {
	dir := inTempDir(t)

	tests := []struct {
		name    string
		yaml    string
		wantDur time.Duration
		field   string
	}{
		{"seconds", "data:\n  timeout: 45s", 45 * time.Second, "data.timeout"},
		{"minutes", "data:\n  timeout: 2m", 2 * time.Minute, "data.timeout"},
		{"combined", "titles:\n  timeout: 1m30s", 90 * time.Second, "titles.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(dir, tt.name+".yaml")
			writeConfig(t, configPath, tt.yaml)

			v := viper.New()
			v.Set("config", configPath)

			cfg, err := LoadConfig(v)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}

			var got time.Duration
			switch tt.field {
			case "data.timeout":
				got = cfg.Data.Timeout
			case "titles.timeout":
				got = cfg.Titles.Timeout
			}
			if got != tt.wantDur {
				t.Errorf("got %v, want %v", got, tt.wantDur)
			}
		})
	}
}

func TestStructToMap(t *testing.T) {
	m, err := structToMap(Default())
	if err != nil {
		t.Fatalf("structToMap failed: %v", err)
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatalf("data section = %T", m["data"])
	}
	if data["source"] != "./data" {
		t.Errorf("data.source = %v, want ./data", data["source"])
	}
	if _, ok := m["log_rotation"]; !ok {
		t.Error("log_rotation section missing")
	}
}

func TestConfigPathsMissing(t *testing.T) {
	inTempDir(t)
	if p := globalConfigPath(); p != "" {
		t.Errorf("globalConfigPath() = %q, want empty", p)
	}
	if p := projectConfigPath(); p != "" {
		t.Errorf("projectConfigPath() = %q, want empty", p)
	}
}

func TestGlobalConfigLocation_XDG(t *testing.T) {
	dir := inTempDir(t)

	path, err := GlobalConfigLocation()
	if err != nil {
		t.Fatalf("GlobalConfigLocation failed: %v", err)
	}
	want := filepath.Join(dir, "xdg", GlobalConfigDir, GlobalConfigFile)
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestFiles_Order(t *testing.T) {
	dir := inTempDir(t)
	global := filepath.Join(dir, "xdg", GlobalConfigDir, GlobalConfigFile)
	writeConfig(t, global, "panel:\n  page_size: 5\n")
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), "panel:\n  page_size: 6\n")
	explicit := filepath.Join(dir, "extra.yaml")
	writeConfig(t, explicit, "panel:\n  page_size: 7\n")

	v := viper.New()
	v.Set("config", explicit)
	files, err := Files(v)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	want := []string{global, filepath.Join(ProjectConfigDir, ProjectConfigFile), explicit}
	if len(files) != len(want) {
		t.Fatalf("Files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestFiles_NoneFound(t *testing.T) {
	inTempDir(t)

	files, err := Files(viper.New())
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Files = %v, want none", files)
	}
}
