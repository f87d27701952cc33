package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmined/syft-status-agent/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".syftbox", "config.json")
	DefaultLogFilePath = filepath.Join(home, ".syftbox", "logs", "status_agent.log")
	DefaultClientURL   = "http://localhost:7938"
)

var (
	ErrNoDataDir   = errors.New("config: data_dir missing")
	ErrNoClientURL = errors.New("config: client_url missing")
)

// Config is the subset of the SyftBox client config.json this agent needs:
// where the datasites live and where the local daemon's control plane listens.
type Config struct {
	DataDir   string `json:"data_dir"`
	Email     string `json:"email"`
	ClientURL string `json:"client_url"`
	Path      string `json:"-"`
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return ErrNoDataDir
	}

	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("config: bad data_dir %q: %w", c.DataDir, err)
	}
	c.DataDir = dataDir

	if c.ClientURL == "" {
		return ErrNoClientURL
	}
	if err := validateHTTPURL(c.ClientURL); err != nil {
		return fmt.Errorf("config: bad client_url %q: %w", c.ClientURL, err)
	}
	c.ClientURL = strings.TrimRight(c.ClientURL, "/")

	c.Email = strings.ToLower(strings.TrimSpace(c.Email))

	return nil
}

// Load reads a SyftBox client config.json written by the daemon.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse '%s': %w", path, err)
	}

	cfg.Path = path
	if cfg.ClientURL == "" {
		cfg.ClientURL = DefaultClientURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
