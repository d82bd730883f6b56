package wiki

import (
	"testing"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/internal/base"
)

func TestLoadConfig_RequiresURL(t *testing.T) {
	t.Setenv("MEDIAWIKI_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error without MEDIAWIKI_URL")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MEDIAWIKI_URL", "https://wiki.example.org/w/api.php")
	for _, key := range []string{"MEDIAWIKI_USERNAME", "MEDIAWIKI_PASSWORD", "MEDIAWIKI_TIMEOUT",
		"MEDIAWIKI_MAX_RETRIES", "MEDIAWIKI_USER_AGENT", "MEDIAWIKI_RATE_LIMIT", "MEDIAWIKI_CONCURRENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Timeout != base.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, base.DefaultTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.UserAgent != base.DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if cfg.Concurrency != base.MaxConcurrentRequests {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, base.MaxConcurrentRequests)
	}
	if cfg.HasCredentials() {
		t.Error("HasCredentials should be false without username and password")
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("MEDIAWIKI_URL", "https://wiki.example.org/w/api.php")
	t.Setenv("MEDIAWIKI_USERNAME", "Bot@ask")
	t.Setenv("MEDIAWIKI_PASSWORD", "secret")
	t.Setenv("MEDIAWIKI_TIMEOUT", "45s")
	t.Setenv("MEDIAWIKI_MAX_RETRIES", "0")
	t.Setenv("MEDIAWIKI_USER_AGENT", "ask-test/1.0")
	t.Setenv("MEDIAWIKI_RATE_LIMIT", "2.5")
	t.Setenv("MEDIAWIKI_CONCURRENCY", "1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.HasCredentials() {
		t.Error("HasCredentials should be true")
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.UserAgent != "ask-test/1.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.RateLimit)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
}

func TestLoadConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("MEDIAWIKI_URL", "https://wiki.example.org/w/api.php")
	t.Setenv("MEDIAWIKI_TIMEOUT", "soon")
	t.Setenv("MEDIAWIKI_MAX_RETRIES", "-1")
	t.Setenv("MEDIAWIKI_RATE_LIMIT", "fast")
	t.Setenv("MEDIAWIKI_CONCURRENCY", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	def := DefaultConfig(cfg.BaseURL)
	if cfg.Timeout != def.Timeout || cfg.MaxRetries != def.MaxRetries ||
		cfg.RateLimit != def.RateLimit || cfg.Concurrency != def.Concurrency {
		t.Errorf("invalid values must keep defaults, got %+v", cfg)
	}
}
