package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the config directory and default log file.
	AppName = "hotspot"

	// DefaultProbeURL must not redirect when the network is open.
	DefaultProbeURL = "http://www.apple.com"

	// DefaultFingerprint only appears in the real DefaultProbeURL page.
	DefaultFingerprint = `<meta name="Author" content="Apple Inc." />`

	// DefaultContinuePattern matches the "Continue to the Internet" button of the
	// common click-through portal and captures its href.
	DefaultContinuePattern = `<div id="button_content"><a href="(.*?)" title="Continue to the Internet" id="continue_link">Continue to the Internet</a></div>`

	DefaultRetryTime = 15 * time.Second
	DefaultTimeout   = 30 * time.Second

	defaultConfigFile = AppName + ".yaml"
)

// ErrConfigNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds everything the login flow and its driver need.
type Config struct {
	ProbeURL        string        `yaml:"probe_url"`
	Fingerprint     string        `yaml:"fingerprint"`
	ContinuePattern string        `yaml:"continue_pattern"`
	Timeout         time.Duration `yaml:"timeout"`
	ProxyURL        string        `yaml:"proxy"`
	Insecure        bool          `yaml:"insecure"`

	Retries   int           `yaml:"retries"`
	RetryTime time.Duration `yaml:"retry_time"`
	NoExpWait bool          `yaml:"no_exp_wait"`

	LogLevel string `yaml:"log_level"`
	// LogFile, when set, receives a copy of the console output.
	LogFile string `yaml:"log_file"`
	Cron    bool   `yaml:"cron"`
}

// DefaultConfig returns the settings the tool runs with when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		ProbeURL:        DefaultProbeURL,
		Fingerprint:     DefaultFingerprint,
		ContinuePattern: DefaultContinuePattern,
		Timeout:         DefaultTimeout,
		RetryTime:       DefaultRetryTime,
		LogLevel:        "INFO",
	}
}

// RetryPolicy extracts the retry settings.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:   c.Retries,
		RetryTime: c.RetryTime,
		NoExpWait: c.NoExpWait,
	}
}

// Validate checks the values the login flow depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ProbeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("probe URL %q must be an absolute http(s) URL", c.ProbeURL)
	}
	if c.Fingerprint == "" {
		return errors.New("fingerprint must not be empty")
	}
	re, err := regexp.Compile(c.ContinuePattern)
	if err != nil {
		return fmt.Errorf("invalid continue pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return errors.New("continue pattern needs a capture group for the link")
	}
	if c.Retries < 0 {
		return errors.New("retries must not be negative")
	}
	if c.RetryTime < 0 || c.Timeout < 0 {
		return errors.New("durations must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LoadConfigFile overlays a YAML file onto cfg. Keys absent from the file keep their
// current values.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. configPath, if given
// 2. hotspot.yaml in the current directory
// 3. $XDG_CONFIG_HOME/hotspot/config.yaml
//
// Returns an empty string if none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, defaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// ConfigDir returns the XDG config directory for the tool.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyEnv overlays HOTSPOT_* environment variables onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("HOTSPOT_PROBE_URL"); v != "" {
		cfg.ProbeURL = v
	}
	if v := getenv("HOTSPOT_FINGERPRINT"); v != "" {
		cfg.Fingerprint = v
	}
	if v := getenv("HOTSPOT_CONTINUE_PATTERN"); v != "" {
		cfg.ContinuePattern = v
	}
	if v := getenv("HOTSPOT_PROXY"); v != "" {
		cfg.ProxyURL = v
	}
	if v := getenv("HOTSPOT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HOTSPOT_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := getenv("HOTSPOT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOTSPOT_RETRIES: %w", err)
		}
		cfg.Retries = n
	}
	if v := getenv("HOTSPOT_RETRY_TIME"); v != "" {
		d, err := parseRetryTime(v)
		if err != nil {
			return fmt.Errorf("HOTSPOT_RETRY_TIME: %w", err)
		}
		cfg.RetryTime = d
	}
	if v := getenv("HOTSPOT_NO_EXP_WAIT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HOTSPOT_NO_EXP_WAIT: %w", err)
		}
		cfg.NoExpWait = b
	}
	if v := getenv("HOTSPOT_CRON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HOTSPOT_CRON: %w", err)
		}
		cfg.Cron = b
	}
	if v := getenv("HOTSPOT_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HOTSPOT_INSECURE: %w", err)
		}
		cfg.Insecure = b
	}
	if v := getenv("HOTSPOT_LOG"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("HOTSPOT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	return nil
}

// parseRetryTime accepts a Go duration or, like --retrytime, a plain number of seconds.
func parseRetryTime(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
