package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

const (
	defaultConfigPath   = "config.yaml"
	defaultListenAddr   = ":8080"
	defaultDBPath       = "steady.db"
	defaultAPIBaseURL   = "http://localhost:8080"
	defaultLookbackDays = 30
)

type OIDCProviderConfig struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

type InsightConfig struct {
	URL          string `yaml:"url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
}

type NudgeConfig struct {
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	ResendAPIKey string `yaml:"resend_api_key"`
}

type Config struct {
	ListenAddr      string               `yaml:"listen_addr"`
	DBPath          string               `yaml:"db_path"`
	APIBaseURL      string               `yaml:"api_base_url"`
	APIKey          string               `yaml:"api_key"`
	AuthEnabled     bool                 `yaml:"auth_enabled"`
	OIDCProviders   []OIDCProviderConfig `yaml:"oidc_providers"`
	LookbackDays    int                  `yaml:"lookback_days"`
	DefaultTimezone string               `yaml:"default_timezone"`
	LogLevel        string               `yaml:"log_level"`
	LogFormat       string               `yaml:"log_format"`
	LogFile         string               `yaml:"log_file"`
	Insight         InsightConfig        `yaml:"insight"`
	Nudge           NudgeConfig          `yaml:"nudge"`
}

// Load reads the YAML file named by $HABITS_CONFIG (config.yaml by default),
// fills in defaults and applies environment overrides for secrets.
func Load() (*Config, error) {
	path := getenv("HABITS_CONFIG", defaultConfigPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = defaultLookbackDays
	}
	if c.Nudge.From == "" {
		c.Nudge.From = "onboarding@resend.dev"
	}
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getenv("HABITS_API_BASE", c.APIBaseURL)
	c.APIKey = getenv("HABITS_API_KEY", c.APIKey)
	c.DBPath = getenv("HABITS_DB_PATH", c.DBPath)
	c.Nudge.ResendAPIKey = getenv("HABITS_RESEND_API_KEY", c.Nudge.ResendAPIKey)
	c.Nudge.To = getenv("HABITS_NOTIFY_EMAIL", c.Nudge.To)
	c.Insight.ClientSecret = getenv("HABITS_INSIGHT_CLIENT_SECRET", c.Insight.ClientSecret)
}

func (c *Config) Validate() error {
	if c.AuthEnabled {
		seen := map[string]bool{}
		for _, p := range c.OIDCProviders {
			if p.Id == "" || p.IssuerURL == "" || p.ClientID == "" {
				return fmt.Errorf("oidc provider %q: id, issuer_url and client_id are required", p.Id)
			}
			if seen[p.Id] {
				return fmt.Errorf("duplicate oidc provider id %q", p.Id)
			}
			seen[p.Id] = true
		}
	}
	if c.Insight.ClientID != "" && c.Insight.TokenURL == "" {
		return fmt.Errorf("insight.token_url is required when insight.client_id is set")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
