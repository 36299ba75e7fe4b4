package authrelay

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/authrelay/authrelay/instrumentation"
	"github.com/authrelay/authrelay/internal/props"
)

// Configuration sources, in the order hosts usually layer them: explicit
// struct literal, a .properties file via LoadConfig, environment variables
// via ConfigFromEnv.
const (
	envBaseURL        = "AUTHRELAY_BASE_URL"
	envAPIKey         = "AUTHRELAY_SERVICE_API_KEY"
	envAPISecret      = "AUTHRELAY_SERVICE_API_SECRET"
	envTimeout        = "AUTHRELAY_TIMEOUT"
	envRateLimitRate  = "AUTHRELAY_RATE_LIMIT_RATE"
	envRateLimitBurst = "AUTHRELAY_RATE_LIMIT_BURST"
	envAuditEnabled   = "AUTHRELAY_AUDIT_ENABLED"

	propBaseURL        = "base_url"
	propAPIKey         = "service.api_key"
	propAPISecret      = "service.api_secret"
	propTimeout        = "timeout"
	propRateLimitRate  = "rate_limit.rate"
	propRateLimitBurst = "rate_limit.burst"
	propAuditEnabled   = "audit.enabled"
)

// Config holds the server configuration.
type Config struct {
	// Backend identifies the authorization backend every handler delegates to.
	Backend BackendConfig

	// RateLimit configures per-IP rate limiting. A zero Rate disables it.
	RateLimit RateLimitConfig

	// Logger for structured logging (optional, uses default if not provided).
	Logger *slog.Logger

	// HTTPClient is a custom HTTP client for backend calls. If not provided,
	// a default client with the configured timeout is used.
	HTTPClient *http.Client

	// Instrumentation enables metrics and tracing and is optional.
	Instrumentation *instrumentation.Instrumentation

	// AuditEnabled turns on security audit logging (sensitive values hashed).
	AuditEnabled bool
}

// BackendConfig identifies the remote authorization backend.
type BackendConfig struct {
	// BaseURL is the backend's base address (required).
	BaseURL string

	// ServiceAPIKey and ServiceAPISecret authenticate every backend call
	// (both required).
	ServiceAPIKey    string
	ServiceAPISecret string

	// Timeout bounds each backend call. Zero means the client default.
	Timeout time.Duration
}

// RateLimitConfig holds per-IP rate limiting configuration.
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate int

	// Burst is the maximum burst size allowed per IP.
	Burst int
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if c.Backend.ServiceAPIKey == "" || c.Backend.ServiceAPISecret == "" {
		return fmt.Errorf("service API key and secret are required")
	}
	if c.RateLimit.Rate < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

// ConfigFromEnv builds a Config from AUTHRELAY_* environment variables.
// Unset variables leave the zero value in place; malformed numeric values
// are an error.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.Backend.BaseURL = os.Getenv(envBaseURL)
	cfg.Backend.ServiceAPIKey = os.Getenv(envAPIKey)
	cfg.Backend.ServiceAPISecret = os.Getenv(envAPISecret)

	if raw := os.Getenv(envTimeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envTimeout, err)
		}
		cfg.Backend.Timeout = timeout
	}
	if raw := os.Getenv(envRateLimitRate); raw != "" {
		rate, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envRateLimitRate, err)
		}
		cfg.RateLimit.Rate = rate
	}
	if raw := os.Getenv(envRateLimitBurst); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envRateLimitBurst, err)
		}
		cfg.RateLimit.Burst = burst
	}
	if raw := os.Getenv(envAuditEnabled); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envAuditEnabled, err)
		}
		cfg.AuditEnabled = enabled
	}
	return cfg, nil
}

// LoadConfig builds a Config from a Java-style .properties file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	values, err := props.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg := &Config{}
	cfg.Backend.BaseURL = values[propBaseURL]
	cfg.Backend.ServiceAPIKey = values[propAPIKey]
	cfg.Backend.ServiceAPISecret = values[propAPISecret]

	if raw := values[propTimeout]; raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", propTimeout, err)
		}
		cfg.Backend.Timeout = timeout
	}
	if raw := values[propRateLimitRate]; raw != "" {
		rate, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", propRateLimitRate, err)
		}
		cfg.RateLimit.Rate = rate
	}
	if raw := values[propRateLimitBurst]; raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", propRateLimitBurst, err)
		}
		cfg.RateLimit.Burst = burst
	}
	if raw := values[propAuditEnabled]; raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", propAuditEnabled, err)
		}
		cfg.AuditEnabled = enabled
	}
	return cfg, nil
}
