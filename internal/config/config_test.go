package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/textract/internal/export"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
extract:
  max_file_size: 1024
  html_include_hidden: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Extract.MaxFileSize != 1024 || !cfg.Extract.HTMLIncludeHidden {
		t.Errorf("unexpected extract config: %+v", cfg.Extract)
	}
	if cfg.Export != export.DefaultLayout() {
		t.Errorf("export layout should default when unset: %+v", cfg.Export)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_exportLayoutOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
export:
  top: 700
  line_height: 20
  max_chars: 80
  font_family: "Courier"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	l := cfg.Export
	if l.Top != 700 || l.LineHeight != 20 || l.MaxChars != 80 || l.FontFamily != "Courier" {
		t.Errorf("overrides not applied: %+v", l)
	}
	if l.Bottom != 50 || l.Left != 30 || l.FontSize != 12 || l.PageWidth != 612 {
		t.Errorf("unset fields should default: %+v", l)
	}
	if err := l.Validate(); err != nil {
		t.Errorf("layout should validate: %v", err)
	}
}

func TestLoad_searchOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
search:
  fuzziness: 1
  suggest_max_distance: 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := SearchConfig{LabelBoost: 2, Fuzziness: 1, SuggestMaxDistance: 3}
	if cfg.Search != want {
		t.Errorf("search: got %+v, want %+v", cfg.Search, want)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
watch:
  directories: ["./inbox", "/abs/inbox"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Watch.Directories) != 2 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "inbox")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
	if cfg.Watch.Directories[1] != "/abs/inbox" {
		t.Errorf("absolute directory changed: %s", cfg.Watch.Directories[1])
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing_file_uses_defaults", func(t *testing.T) {
		cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != 8080 || cfg.Extract.MaxFileSize != DefaultMaxFileSize {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})
	t.Run("parse_error_is_returned", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("debug: [x"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadOrDefault(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Extract.MaxFileSize != 100<<20 {
		t.Errorf("default max file size: got %d", cfg.Extract.MaxFileSize)
	}
	if cfg.Extract.HTMLIncludeHidden {
		t.Error("hidden HTML text should be excluded by default")
	}
	if cfg.Export != export.DefaultLayout() {
		t.Errorf("default layout: got %+v", cfg.Export)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
	want := SearchConfig{LabelBoost: 2, Fuzziness: 2, SuggestMaxDistance: 2}
	if cfg.Search != want {
		t.Errorf("default search: got %+v, want %+v", cfg.Search, want)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Recursive: &v}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server: ServerConfig{Host: "localhost", Port: 9090},
		Watch:  WatchConfig{Directories: []string{"/tmp/inbox"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/tmp/inbox" {
		t.Errorf("loaded directories: got %v", loaded.Watch.Directories)
	}
}
