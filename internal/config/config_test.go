package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(*cfg, Default) {
		t.Errorf("Load() = %+v, want %+v", *cfg, Default)
	}
}

func TestLoadFromDefaultDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir := filepath.Join(xdg, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("concurrency: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	cfg, err := l.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if l.Used() == "" {
		t.Error("Used() is empty after reading a config file")
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
filter: "*.txt"
exclude:
  - "*.tmp"
  - ".git/*"
concurrency: 2
workers: 4
log-format: json
watch-debounce: 2s
`)

	tests := []struct {
		name  string
		env   map[string]string
		flags []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "file values",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Filter != "*.txt" || cfg.Concurrency != 2 || cfg.Workers != 4 || cfg.LogFormat != "json" {
					t.Errorf("cfg = %+v", cfg)
				}
				if !reflect.DeepEqual(cfg.Excludes, []string{"*.tmp", ".git/*"}) {
					t.Errorf("Excludes = %v", cfg.Excludes)
				}
				if cfg.WatchDebounce != 2*time.Second {
					t.Errorf("WatchDebounce = %v, want 2s", cfg.WatchDebounce)
				}
			},
		},
		{
			name: "environment overrides file",
			env:  map[string]string{"STRICT_FS_SYNC_CONCURRENCY": "8", "STRICT_FS_SYNC_SHOW_PROGRESS": "true"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Concurrency != 8 || !cfg.ShowProgress {
					t.Errorf("cfg = %+v, want concurrency 8 and show-progress", cfg)
				}
			},
		},
		{
			name:  "flags override environment",
			env:   map[string]string{"STRICT_FS_SYNC_CONCURRENCY": "8"},
			flags: []string{"--concurrency=5"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Concurrency != 5 {
					t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
				}
			},
		},
		{
			name: "unset flags keep file values",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Workers != 4 {
					t.Errorf("Workers = %d, want 4", cfg.Workers)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.Int("concurrency", 1, "")
			flags.Int("workers", 16, "")
			if err := flags.Parse(tt.flags); err != nil {
				t.Fatal(err)
			}

			l := NewLoader()
			if err := l.BindFlags(flags); err != nil {
				t.Fatal(err)
			}
			cfg, err := l.Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"explicit file missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"invalid yaml", func(t *testing.T) string { return writeConfig(t, "concurrency: [\n") }},
		{"zero concurrency", func(t *testing.T) string { return writeConfig(t, "concurrency: 0\n") }},
		{"unknown log format", func(t *testing.T) string { return writeConfig(t, "log-format: xml\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLoader().Load(tt.path(t)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}
