package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
seed: jane doe
max_hops: 2
pool_size: 3
store_path: /tmp/crawl.db
delay:
  mu: 0.5
  sigma: 0.2
  divisor: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Seed != "jane doe" || cfg.MaxHops != 2 || cfg.PoolSize != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.StorePath != "/tmp/crawl.db" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}
	if cfg.Delay.Divisor != 5 {
		t.Errorf("Delay = %+v", cfg.Delay)
	}

	// Unset fields keep their defaults.
	if cfg.MaxSearchPages != Default().MaxSearchPages {
		t.Errorf("MaxSearchPages = %d, want default", cfg.MaxSearchPages)
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent default dropped")
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "seed: [unclosed"},
		{"zero pool", "pool_size: 0"},
		{"negative hops", "max_hops: -1"},
		{"zero divisor", "delay:\n  divisor: -2"},
		{"zero rate", "requests_per_second: 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, "seed: x")
		if got := Find(path); got != path {
			t.Errorf("Find = %q, want %q", got, path)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		if got := Find(filepath.Join(t.TempDir(), "nope.yml")); got != "" {
			t.Errorf("Find = %q, want empty", got)
		}
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("seed: x"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)
		got := Find("")
		// Path comparison via EvalSymlinks: TempDir may be symlinked.
		want, _ := filepath.EvalSymlinks(path)
		resolved, _ := filepath.EvalSymlinks(got)
		if resolved != want {
			t.Errorf("Find = %q, want %q", got, path)
		}
	})
}

func TestValidate_Defaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}
