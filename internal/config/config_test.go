package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.yaml.in/yaml/v4"
)

func writeConfig(t *testing.T, c Config) string {
	t.Helper()
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	d, err := yaml.Marshal(&c)
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	if err := os.WriteFile(configFile, d, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestLoad_MissingConfig(t *testing.T) {
	t.Setenv("HABITS_CONFIG", "nonexistent.yaml")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HABITS_CONFIG", writeConfig(t, Config{}))

	cfg, err := Load()
	if err != nil {
		t.Fatal("error opening config:", err)
	}
	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("got listen addr %q want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.LookbackDays != defaultLookbackDays {
		t.Errorf("got lookback %d want %d", cfg.LookbackDays, defaultLookbackDays)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("got db path %q want %q", cfg.DBPath, defaultDBPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HABITS_CONFIG", writeConfig(t, Config{DBPath: "from-file.db"}))
	t.Setenv("HABITS_DB_PATH", "from-env.db")
	t.Setenv("HABITS_RESEND_API_KEY", "re_123")

	cfg, err := Load()
	if err != nil {
		t.Fatal("error opening config:", err)
	}
	if cfg.DBPath != "from-env.db" {
		t.Errorf("got db path %q want from-env.db", cfg.DBPath)
	}
	if cfg.Nudge.ResendAPIKey != "re_123" {
		t.Errorf("got resend key %q want re_123", cfg.Nudge.ResendAPIKey)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("HABITS_CONFIG", writeConfig(t, Config{
		AuthEnabled:   true,
		OIDCProviders: []OIDCProviderConfig{{Id: "google"}},
	}))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for provider without issuer")
	}
}

func TestValidate_InsightTokenURL(t *testing.T) {
	c := Config{Insight: InsightConfig{ClientID: "abc"}}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when client_id set without token_url")
	}
}
