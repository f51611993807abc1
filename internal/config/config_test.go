package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", cfg.Workers)
	}

	if cfg.AdvisorTimeout != 10*time.Second {
		t.Errorf("AdvisorTimeout = %s, want 10s", cfg.AdvisorTimeout)
	}

	if cfg.AdvisorEnabled() {
		t.Error("advisor should be disabled without a key")
	}

	if cfg.JournalPath != "" {
		t.Error("journal should be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "goal web", modify: func(c *Config) { c.Goal = "web" }},
		{name: "unknown goal", modify: func(c *Config) { c.Goal = "fast" }, wantErr: true},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "negative memory", modify: func(c *Config) { c.MaxMemoryMB = -1 }, wantErr: true},
		{name: "negative cache", modify: func(c *Config) { c.CacheMB = -1 }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.AdvisorTimeout = 0 }, wantErr: true},
		{name: "bad log level", modify: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad log format", modify: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
		{name: "json logs", modify: func(c *Config) { c.LogFormat = "json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv(EnvAdvisorAPIKey, "sk-env")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.AdvisorAPIKey != "sk-env" {
		t.Errorf("AdvisorAPIKey = %q, want sk-env", cfg.AdvisorAPIKey)
	}
	if !cfg.AdvisorEnabled() {
		t.Error("advisor should be enabled")
	}

	cfg = DefaultConfig()
	cfg.AdvisorAPIKey = "sk-flag"
	cfg.ApplyEnv()
	if cfg.AdvisorAPIKey != "sk-flag" {
		t.Errorf("explicit key overwritten: %q", cfg.AdvisorAPIKey)
	}
}

func TestConfig_CacheBytes(t *testing.T) {
	cfg := &Config{CacheMB: 2}
	if got := cfg.CacheBytes(); got != 2*1024*1024 {
		t.Errorf("CacheBytes() = %d", got)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	fc, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc != nil {
		t.Error("expected nil config for missing file")
	}
}

func TestLoadFromFile_YAMLAndTOML(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{"yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			content, err := GenerateExampleConfig(format)
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dir, "rtconvert."+format)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			fc, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile() error = %v", err)
			}

			cfg := DefaultConfig()
			cfg.CacheMB = 1
			if err := fc.ApplyToConfig(cfg); err != nil {
				t.Fatalf("ApplyToConfig() error = %v", err)
			}

			if cfg.Goal != "web" {
				t.Errorf("Goal = %q, want web", cfg.Goal)
			}
			if cfg.Workers != 2 {
				t.Errorf("Workers = %d, want 2", cfg.Workers)
			}
			if cfg.CacheMB != 64 {
				t.Errorf("CacheMB = %d, want 64", cfg.CacheMB)
			}
			if cfg.AdvisorModel != "gpt-4o-mini" {
				t.Errorf("AdvisorModel = %q", cfg.AdvisorModel)
			}
			if cfg.AdvisorTimeout != 10*time.Second {
				t.Errorf("AdvisorTimeout = %s", cfg.AdvisorTimeout)
			}
			if cfg.LogLevel != "warn" || cfg.LogFormat != "console" {
				t.Errorf("logging = %s/%s", cfg.LogLevel, cfg.LogFormat)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("example config is invalid: %v", err)
			}
		})
	}
}

func TestApplyToConfig_Overrides(t *testing.T) {
	zero := 0
	fc := &FileConfig{
		Advisor:    &AdvisorConfig{APIKey: "sk-file", BaseURL: "http://localhost:8080/v1", Timeout: "3s"},
		Output:     &OutputConfig{Dir: "/out", Goal: "storage"},
		Processing: &ProcessingConfig{Workers: 3, MaxMemoryMB: 512, CacheMB: &zero, GPU: true, NoProgress: true},
		Paths:      &PathsConfig{Journal: "/tmp/j.db", VipsPath: "/opt/vips"},
		Logging:    &LoggingConfig{Level: "debug", Format: "json"},
	}

	cfg := DefaultConfig()
	if err := fc.ApplyToConfig(cfg); err != nil {
		t.Fatal(err)
	}

	want := Config{
		AdvisorAPIKey:  "sk-file",
		AdvisorBaseURL: "http://localhost:8080/v1",
		AdvisorModel:   "gpt-4o-mini",
		AdvisorTimeout: 3 * time.Second,
		Goal:           "storage",
		OutputDir:      "/out",
		VipsPath:       "/opt/vips",
		UseGPU:         true,
		Workers:        3,
		MaxMemoryMB:    512,
		CacheMB:        0,
		JournalPath:    "/tmp/j.db",
		LogLevel:       "debug",
		LogFormat:      "json",
		NoProgress:     true,
	}
	if *cfg != want {
		t.Errorf("ApplyToConfig() =\n%+v\nwant\n%+v", *cfg, want)
	}
}

func TestApplyToConfig_BadTimeout(t *testing.T) {
	fc := &FileConfig{Advisor: &AdvisorConfig{Timeout: "soon"}}
	if err := fc.ApplyToConfig(DefaultConfig()); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestApplyToConfig_Nil(t *testing.T) {
	var fc *FileConfig
	cfg := DefaultConfig()
	if err := fc.ApplyToConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if *cfg != *DefaultConfig() {
		t.Error("nil file config must not change anything")
	}
}

func TestFindAndLoadConfig_Explicit(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := FindAndLoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing explicit config")
	}

	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[processing\nworkers ="), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := FindAndLoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestGenerateExampleConfig_Unknown(t *testing.T) {
	if _, err := GenerateExampleConfig("ini"); err == nil {
		t.Error("expected error for unknown format")
	}
}
