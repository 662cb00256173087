package main

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeProxy converts a proxy string in various formats to a URL tls-client accepts.
// Supported formats:
//   - ip:port:username:password
//   - ip:port (no credentials)
//   - http://username:password@ip:port
//   - https://username:password@ip:port
//   - socks5://username:password@ip:port
//
// An empty string means no proxy and is returned unchanged.
func NormalizeProxy(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	if strings.Contains(line, "://") {
		parsed, err := url.Parse(line)
		if err != nil {
			return "", fmt.Errorf("invalid proxy %q: %w", line, err)
		}
		switch parsed.Scheme {
		case "http", "https", "socks5":
		default:
			return "", fmt.Errorf("invalid proxy %q: unsupported scheme %q", line, parsed.Scheme)
		}
		if parsed.Host == "" {
			return "", fmt.Errorf("invalid proxy %q: missing host", line)
		}
		return parsed.String(), nil
	}

	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2:
		return fmt.Sprintf("http://%s:%s", parts[0], parts[1]), nil
	case 4:
		host, port, user, pass := parts[0], parts[1], parts[2], parts[3]
		u := url.URL{Scheme: "http", User: url.UserPassword(user, pass), Host: host + ":" + port}
		return u.String(), nil
	}
	return "", fmt.Errorf("invalid proxy %q: expected ip:port or ip:port:user:pass", line)
}

// proxyDisplay strips credentials for logging.
func proxyDisplay(proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Host
}
