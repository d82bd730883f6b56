package wiki

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/internal/base"
)

// Config holds MediaWiki connection settings
type Config struct {
	// BaseURL is the wiki API endpoint (e.g., https://wiki.example.com/w/api.php)
	BaseURL string

	// Username for bot password authentication (optional, for wikis that require login to read)
	Username string

	// Password for bot password authentication
	Password string

	// Timeout for API requests
	Timeout time.Duration

	// UserAgent identifies the client to the wiki
	UserAgent string

	// MaxRetries for failed requests
	MaxRetries int

	// RateLimit paces requests per second; 0 sends as fast as the concurrency allows
	RateLimit float64

	// Concurrency is the number of requests allowed in flight
	Concurrency int
}

// DefaultConfig returns the settings used when only the URL is known
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Timeout:     base.DefaultTimeout,
		UserAgent:   base.DefaultUserAgent,
		MaxRetries:  3,
		Concurrency: base.MaxConcurrentRequests,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	baseURL := os.Getenv("MEDIAWIKI_URL")
	if baseURL == "" {
		return nil, errors.New("MEDIAWIKI_URL environment variable is required")
	}

	cfg := DefaultConfig(baseURL)
	cfg.Username = os.Getenv("MEDIAWIKI_USERNAME")
	cfg.Password = os.Getenv("MEDIAWIKI_PASSWORD")

	if t := os.Getenv("MEDIAWIKI_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			cfg.Timeout = d
		}
	}
	if r := os.Getenv("MEDIAWIKI_MAX_RETRIES"); r != "" {
		if n, err := strconv.Atoi(r); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if ua := os.Getenv("MEDIAWIKI_USER_AGENT"); ua != "" {
		cfg.UserAgent = ua
	}
	if r := os.Getenv("MEDIAWIKI_RATE_LIMIT"); r != "" {
		if rps, err := strconv.ParseFloat(r, 64); err == nil && rps >= 0 {
			cfg.RateLimit = rps
		}
	}
	if c := os.Getenv("MEDIAWIKI_CONCURRENCY"); c != "" {
		if n, err := strconv.Atoi(c); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}

	return cfg, nil
}

// HasCredentials returns true if authentication credentials are configured
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
