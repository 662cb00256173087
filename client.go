package main

import (
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserProfile bundles a TLS client profile with the browser headers sent alongside it.
type BrowserProfile struct {
	TLSProfile     profiles.ClientProfile
	UserAgent      string
	Accept         string
	AcceptLanguage string
}

const (
	Chrome133UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
	chromeAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
)

// Chrome133Profile is the browser profile for Chrome 133 on Windows.
var Chrome133Profile = &BrowserProfile{
	TLSProfile:     profiles.Chrome_133,
	UserAgent:      Chrome133UserAgent,
	Accept:         chromeAccept,
	AcceptLanguage: "en-US,en;q=0.9",
}

// DefaultProfile is the default browser profile used for new clients.
var DefaultProfile = Chrome133Profile

// ClientOptions configures one HTTP client of a login attempt.
type ClientOptions struct {
	FollowRedirects bool
	Jar             tls_client.CookieJar
	Timeout         time.Duration
	ProxyURL        string
	Insecure        bool
	Profile         *BrowserProfile
}

// NewClient builds a tls-client with the attempt's jar and redirect policy.
// A nil jar leaves the client without cookie handling.
func NewClient(logger Logger, opts ClientOptions) (tls_client.HttpClient, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	profile := opts.Profile
	if profile == nil {
		profile = DefaultProfile
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profile.TLSProfile),
		tls_client.WithRandomTLSExtensionOrder(),
	}
	if opts.Timeout > 0 {
		seconds := int(opts.Timeout / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		options = append(options, tls_client.WithTimeoutSeconds(seconds))
	}
	if !opts.FollowRedirects {
		options = append(options, tls_client.WithNotFollowRedirects())
	}
	if opts.Jar != nil {
		options = append(options, tls_client.WithCookieJar(opts.Jar))
	}
	if opts.ProxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(opts.ProxyURL))
	}
	if opts.Insecure {
		options = append(options, tls_client.WithInsecureSkipVerify())
	}

	return tls_client.NewHttpClient(logger, options...)
}
