package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported page provider engines
const (
	EngineRod  = "rod"
	EngineHTTP = "http"
)

// Config represents the scraper configuration
type Config struct {
	Site struct {
		BaseURL     string `yaml:"base_url"`
		ResultsPath string `yaml:"results_path"`
		Keywords    string `yaml:"keywords"`
	} `yaml:"site"`

	Crawl struct {
		Engine      string        `yaml:"engine"`
		MaxPages    int           `yaml:"max_pages"`
		Throttle    time.Duration `yaml:"throttle"`
		PageTimeout time.Duration `yaml:"page_timeout"`
		UserAgent   string        `yaml:"user_agent"`
	} `yaml:"crawl"`

	Browser struct {
		Headless  bool   `yaml:"headless"`
		NoSandbox bool   `yaml:"no_sandbox"`
		Bin       string `yaml:"bin"`
		DataDir   string `yaml:"data_dir"`
	} `yaml:"browser"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Sheets struct {
		SpreadsheetURL  string `yaml:"spreadsheet_url"`
		CredentialsPath string `yaml:"credentials_path"`
	} `yaml:"sheets"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Schedule struct {
		Spec       string `yaml:"spec"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load reads .env, the YAML file at path (defaults when it does not exist)
// and the environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg *Config
	if _, err := os.Stat(path); err == nil {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("[config] %s not found. Using default configuration.\n", path)
		cfg = GetDefaultConfig()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Site.BaseURL = "https://www.brightermonday.co.ke/"
	cfg.Site.ResultsPath = "search/result"
	cfg.Crawl.Engine = EngineRod
	cfg.Crawl.MaxPages = 0
	cfg.Crawl.Throttle = 750 * time.Millisecond
	cfg.Crawl.PageTimeout = 30 * time.Second
	cfg.Crawl.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cfg.Browser.Headless = true
	cfg.Browser.NoSandbox = true
	cfg.Browser.DataDir = "/tmp/brightermonday-data"
	cfg.Output.Dir = "."
	cfg.Schedule.Spec = "@every 24h"
	return cfg
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("SPREADSHEET_URL"); v != "" {
		c.Sheets.SpreadsheetURL = v
	}
	if v := os.Getenv("BOT_DATA_DIR"); v != "" {
		c.Browser.DataDir = v
	}
	if v := os.Getenv("SCRAPER_ENGINE"); v != "" {
		c.Crawl.Engine = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate checks the configuration for values the scraper cannot work with
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.SearchURL(); err != nil {
		errs = append(errs, err)
	}
	switch c.Crawl.Engine {
	case EngineRod, EngineHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q (want %s or %s)", c.Crawl.Engine, EngineRod, EngineHTTP))
	}
	if c.Crawl.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("max_pages must not be negative, got %d", c.Crawl.MaxPages))
	}
	if c.Crawl.Throttle < 0 {
		errs = append(errs, fmt.Errorf("throttle must not be negative, got %s", c.Crawl.Throttle))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram chat_id is required when a token is set"))
	}

	return errors.Join(errs...)
}

// SearchURL returns the search results URL, with the keywords as the q parameter when set
func (c *Config) SearchURL() (string, error) {
	base, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("base_url must be an http(s) URL, got %q", c.Site.BaseURL)
	}

	ref, err := url.Parse(strings.TrimPrefix(c.Site.ResultsPath, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid results_path: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	u := base.ResolveReference(ref)

	if kw := strings.TrimSpace(c.Site.Keywords); kw != "" {
		query := u.Query()
		query.Set("q", kw)
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}
