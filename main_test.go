package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd.Use != "hotspot" {
		t.Errorf("expected use 'hotspot', got %q", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("expected descriptions")
	}

	defaults := map[string]string{
		"log":       "INFO",
		"retries":   "0",
		"noexpwait": "false",
		"retrytime": "15",
		"cron":      "false",
		"timeout":   "30s",
		"probe-url": DefaultProbeURL,
		"config":    "",
		"proxy":     "",
		"insecure":  "false",
		"log-file":  "",
	}
	for name, want := range defaults {
		t.Run(name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Fatalf("expected %s flag", name)
			}
			if flag.DefValue != want {
				t.Errorf("default = %q, want %q", flag.DefValue, want)
			}
		})
	}
}

func TestResolveConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotspot.yaml")
	data := "retries: 2\nretry_time: 7s\nprobe_url: http://file.example/\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	args := []string{"--config", path, "--retries", "5", "--noexpwait", "--proxy", "10.0.0.1:3128"}
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	env := map[string]string{"HOTSPOT_PROBE_URL": "http://env.example/"}
	cfg, err := resolveConfig(cmd, opts, func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retries != 5 {
		t.Errorf("flag should override file: retries = %d", cfg.Retries)
	}
	if cfg.RetryTime != 7*time.Second {
		t.Errorf("file value lost: retry time = %v", cfg.RetryTime)
	}
	if !cfg.NoExpWait {
		t.Error("noexpwait flag not applied")
	}
	if cfg.ProbeURL != "http://env.example/" {
		t.Errorf("env should override file: probe url = %s", cfg.ProbeURL)
	}
	if cfg.ProxyURL != "http://10.0.0.1:3128" {
		t.Errorf("proxy not normalized: %s", cfg.ProxyURL)
	}
}

func TestResolveConfigMissingFile(t *testing.T) {
	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if err := cmd.Flags().Parse([]string{"--config", missing}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	_, err := resolveConfig(cmd, opts, func(string) string { return "" })
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}
