package config

import (
	"os"
	"path/filepath"
	"testing"

	perrors "github.com/hpungsan/followpick/internal/errors"
)

// clearEnv unsets the followpick variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvAPIKeyFallback, EnvCallBudget, EnvLogLevel} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.MaxFetch != def.MaxFetch {
		t.Fatalf("MaxFetch = %d, want %d", cfg.MaxFetch, def.MaxFetch)
	}
	if cfg.DefaultCount != 50 || cfg.MaxCount != 200 {
		t.Fatalf("counts = %d/%d, want 50/200", cfg.DefaultCount, cfg.MaxCount)
	}
	if cfg.CallBudget().Seconds() != 60 {
		t.Fatalf("CallBudget() = %v, want 60s", cfg.CallBudget())
	}
	if cfg.APIKey != "" {
		t.Fatalf("APIKey = %q, want empty", cfg.APIKey)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"max_fetch": 250, "baseline_policy": "within_window"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxFetch != 250 {
		t.Fatalf("MaxFetch = %d, want %d", cfg.MaxFetch, 250)
	}
	if cfg.BaselinePolicy != "within_window" {
		t.Fatalf("BaselinePolicy = %q, want within_window", cfg.BaselinePolicy)
	}
	// untouched fields keep defaults
	if cfg.MaxCount != 200 {
		t.Fatalf("MaxCount = %d, want 200", cfg.MaxCount)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	data := "max_count: 120\nrate_limit_rps: 0.5\ndisabled_tools:\n  - snapshot_capture\n"
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxCount != 120 {
		t.Errorf("MaxCount = %d, want 120", cfg.MaxCount)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Errorf("RateLimitRPS = %v, want 0.5", cfg.RateLimitRPS)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "snapshot_capture" {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoad_JSONWinsOverYAML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"max_count": 10}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("max_count: 20\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxCount != 10 {
		t.Fatalf("MaxCount = %d, want 10", cfg.MaxCount)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverlay(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv(EnvAPIKey, "primary")
	t.Setenv(EnvAPIKeyFallback, "fallback")
	t.Setenv(EnvCallBudget, "15")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "primary" {
		t.Errorf("APIKey = %q, want primary", cfg.APIKey)
	}
	if cfg.CallBudgetSeconds != 15 {
		t.Errorf("CallBudgetSeconds = %d, want 15", cfg.CallBudgetSeconds)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_FallbackKey(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKeyFallback, "legacy")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "legacy" {
		t.Fatalf("APIKey = %q, want legacy", cfg.APIKey)
	}
}

func TestLoad_InvalidCallBudget(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCallBudget, "soon")

	_, err := Load(t.TempDir())
	if !perrors.Is(err, perrors.ErrConfig) {
		t.Fatalf("Load() error = %v, want CONFIG_ERROR", err)
	}
}

func TestLoad_DotEnvInBaseDir(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("RAPIDAPI_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "from-dotenv" {
		t.Fatalf("APIKey = %q, want from-dotenv", cfg.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) { c.APIKey = "k" }, false},
		{"missing key", func(c *Config) {}, true},
		{"blank key", func(c *Config) { c.APIKey = "   " }, true},
		{"bad policy", func(c *Config) { c.APIKey = "k"; c.BaselinePolicy = "latest" }, true},
		{"zero budget", func(c *Config) { c.APIKey = "k"; c.CallBudgetSeconds = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !perrors.Is(err, perrors.ErrConfig) {
				t.Fatalf("Validate() error code = %v, want CONFIG_ERROR", err)
			}
		})
	}
}

func TestMerge_DisabledToolsDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"snapshot_capture", " snapshot_list "}}
	overlay := &Config{DisabledTools: []string{"snapshot_list", ""}}

	got := Merge(base, overlay)
	if len(got.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 entries", got.DisabledTools)
	}
	if got.DisabledTools[1] != "snapshot_list" {
		t.Errorf("DisabledTools[1] = %q, want snapshot_list", got.DisabledTools[1])
	}
}

func TestBaseDir_EnvOverride(t *testing.T) {
	t.Setenv(EnvHome, "/tmp/fp-home")
	dir, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if dir != "/tmp/fp-home" {
		t.Fatalf("BaseDir() = %q", dir)
	}
}
