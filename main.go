package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// recheckInterval is how often a scheduled rerun is pinned after a successful login.
const recheckInterval = 24 * time.Hour

type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string
	retries    int
	noExpWait  bool
	retryTime  int
	cron       bool
	probeURL   string
	timeout    time.Duration
	proxy      string
	insecure   bool
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the hotspot command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotspot",
		Short: "Automatically logs into hotspots that have a login/agreement page",
		Long: `hotspot checks whether web traffic is being redirected to a captive portal and,
if so, follows the portal's "Continue to the Internet" link the way a browser would.

Run it from cron or a network hook; with --cron it re-schedules itself every 24 hours
after a successful login.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts, os.Getenv)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	defaults := DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log", defaults.LogLevel, "Set log level to DEBUG, INFO, WARNING, or ERROR")
	flags.StringVar(&opts.logFile, "log-file", defaults.LogFile, "Also append log output to this file (empty disables)")
	flags.IntVar(&opts.retries, "retries", defaults.Retries, "Number of times to retry")
	flags.BoolVar(&opts.noExpWait, "noexpwait", false, "Don't exponentially increase the retry time")
	flags.IntVar(&opts.retryTime, "retrytime", int(defaults.RetryTime/time.Second),
		"Time to wait between retries (in seconds). Unless --noexpwait is specified, this is only the wait time for the first retry")
	flags.BoolVar(&opts.cron, "cron", false, "Re-cron this command to run again in 24 hours after a successful login")
	flags.StringVar(&opts.probeURL, "probe-url", defaults.ProbeURL, "URL that does not redirect once logged in")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	flags.StringVar(&opts.proxy, "proxy", "", "Optional proxy URL")
	flags.BoolVar(&opts.insecure, "insecure", false, "Skip TLS certificate verification (portals often use bad certificates)")

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts *rootOptions, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	_ = godotenv.Load()

	path := FindConfigFile(opts.configPath)
	if opts.configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, opts.configPath)
	}
	if path != "" {
		if err := LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if flags.Changed("retries") {
		cfg.Retries = opts.retries
	}
	if flags.Changed("noexpwait") {
		cfg.NoExpWait = opts.noExpWait
	}
	if flags.Changed("retrytime") {
		cfg.RetryTime = time.Duration(opts.retryTime) * time.Second
	}
	if flags.Changed("cron") {
		cfg.Cron = opts.cron
	}
	if flags.Changed("probe-url") {
		cfg.ProbeURL = opts.probeURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = opts.proxy
	}
	if flags.Changed("insecure") {
		cfg.Insecure = opts.insecure
	}

	proxyURL, err := NormalizeProxy(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	cfg.ProxyURL = proxyURL

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *Config) (Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogFile == "" {
		return NewLogger(os.Stdout, level), io.NopCloser(nil), nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLogger(io.MultiWriter(os.Stdout, logFile), level), logFile, nil
}

func run(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.ProxyURL != "" {
		logger.Info("Using proxy: %s", proxyDisplay(cfg.ProxyURL))
	}

	autologin, err := NewAutologin(cfg, logger)
	if err != nil {
		return err
	}

	driver := NewRetryDriver(autologin, cfg.RetryPolicy(), logger)
	if cfg.Cron {
		scheduler := NewCrontabScheduler(logger)
		command := os.Args
		if exe, err := os.Executable(); err == nil {
			command = append([]string{exe}, os.Args[1:]...)
		}
		driver.OnSuccess = func(Outcome) {
			if err := scheduler.ScheduleRecurring(command, recheckInterval); err != nil {
				logger.Error("Failed to schedule recheck: %v", err)
			}
		}
	}

	outcome, err := driver.Run(ctx)
	if err != nil {
		logger.Error("Giving up: %v", err)
		return nil
	}
	logger.Info("Finished: %s", outcome)
	return nil
}
