package authrelay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Backend: BackendConfig{
			BaseURL:          "https://backend.example.com",
			ServiceAPIKey:    "key",
			ServiceAPISecret: "secret",
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing base URL", mutate: func(c *Config) { c.Backend.BaseURL = "" }},
		{name: "missing key", mutate: func(c *Config) { c.Backend.ServiceAPIKey = "" }},
		{name: "missing secret", mutate: func(c *Config) { c.Backend.ServiceAPISecret = "" }},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit.Rate = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AUTHRELAY_BASE_URL", "https://backend.example.com")
	t.Setenv("AUTHRELAY_SERVICE_API_KEY", "key")
	t.Setenv("AUTHRELAY_SERVICE_API_SECRET", "secret")
	t.Setenv("AUTHRELAY_TIMEOUT", "5s")
	t.Setenv("AUTHRELAY_RATE_LIMIT_RATE", "10")
	t.Setenv("AUTHRELAY_RATE_LIMIT_BURST", "20")
	t.Setenv("AUTHRELAY_AUDIT_ENABLED", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() error = %v", err)
	}
	if cfg.Backend.BaseURL != "https://backend.example.com" || cfg.Backend.ServiceAPIKey != "key" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.RateLimit.Rate != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if !cfg.AuditEnabled {
		t.Error("AuditEnabled = false, want true")
	}
}

func TestConfigFromEnv_Malformed(t *testing.T) {
	t.Setenv("AUTHRELAY_TIMEOUT", "not-a-duration")
	if _, err := ConfigFromEnv(); err == nil {
		t.Error("ConfigFromEnv() expected error")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authrelay.properties")
	content := `# backend settings
base_url = https://backend.example.com
service.api_key = key
service.api_secret = secret
timeout = 7s
rate_limit.rate = 5
rate_limit.burst = 10
audit.enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Backend.BaseURL != "https://backend.example.com" || cfg.Backend.Timeout != 7*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.RateLimit.Rate != 5 || cfg.RateLimit.Burst != 10 || !cfg.AuditEnabled {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.properties")); err == nil {
		t.Error("LoadConfig() expected error")
	}
}
