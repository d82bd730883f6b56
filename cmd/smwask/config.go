package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	apierrors "github.com/olgasafonova/smw-ask-mcp-server/internal/errors"
	"github.com/olgasafonova/smw-ask-mcp-server/smw"
	"github.com/olgasafonova/smw-ask-mcp-server/wiki"
)

// Config is the CLI profile file.
//
//	default = "cr"
//
//	[wikis.cr]
//	url = "https://cr.bitplan.com/api.php"
//	division = 10
type Config struct {
	Default string             `toml:"default"`
	Wikis   map[string]Profile `toml:"wikis"`
}

// Profile describes one wiki and how to query it
type Profile struct {
	URL           string  `toml:"url"`
	Username      string  `toml:"username"`
	Password      string  `toml:"password"`
	Timeout       string  `toml:"timeout"`
	RateLimit     float64 `toml:"rate_limit"`
	Concurrency   int     `toml:"concurrency"`
	Division      int     `toml:"division"`
	SplitProperty string  `toml:"split_property"`
	SplitLabel    string  `toml:"split_label"`
}

// DefaultConfigPath returns ~/.config/smwask/config.toml, honoring XDG_CONFIG_HOME
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".config", "smwask", "config.toml")
	}
	return filepath.Join(dir, "smwask", "config.toml")
}

// LoadConfig reads the profile file. A missing file is an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Wikis: map[string]Profile{}}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if cfg.Wikis == nil {
		cfg.Wikis = map[string]Profile{}
	}
	return cfg, nil
}

// Names returns the configured wiki names in sorted order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Wikis))
	for name := range c.Wikis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the wiki to query: the named profile, else the default
// profile, else the MEDIAWIKI_* environment.
func (c *Config) Resolve(name, where string) (*wiki.Config, smw.Options, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		cfg, err := wiki.LoadConfig()
		if err != nil {
			return nil, smw.Options{}, fmt.Errorf("no wiki selected: use --wiki, set a default in %s, or set MEDIAWIKI_URL", where)
		}
		return cfg, smw.LoadOptions(), nil
	}

	p, ok := c.Wikis[name]
	if !ok {
		return nil, smw.Options{}, apierrors.NewNotFoundError("wiki", name, where)
	}
	return p.resolve(name)
}

func (p Profile) resolve(name string) (*wiki.Config, smw.Options, error) {
	if p.URL == "" {
		return nil, smw.Options{}, apierrors.NewValidationError("url", "", "wiki "+name+" has no url")
	}
	cfg := wiki.DefaultConfig(p.URL)
	cfg.Username = p.Username
	cfg.Password = p.Password
	cfg.RateLimit = p.RateLimit
	if p.Concurrency > 0 {
		cfg.Concurrency = p.Concurrency
	}
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, smw.Options{}, apierrors.NewValidationError("timeout", p.Timeout, "not a duration")
		}
		cfg.Timeout = d
	}

	opts := smw.LoadOptions()
	if p.Division > 0 {
		opts.DivisionFactor = p.Division
	}
	if p.SplitProperty != "" {
		opts.Split.Name = p.SplitProperty
	}
	if p.SplitLabel != "" {
		opts.Split.Label = p.SplitLabel
	}
	return cfg, opts, nil
}
