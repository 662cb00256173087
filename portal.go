package main

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

// Recognizer finds continuation links in a portal login page.
type Recognizer interface {
	// FindContinueLinks returns every candidate link in document order.
	FindContinueLinks(page []byte) []string
	String() string
}

// RegexRecognizer captures the first submatch of each pattern match.
type RegexRecognizer struct {
	re *regexp.Regexp
}

// NewRegexRecognizer compiles a pattern with at least one capture group.
func NewRegexRecognizer(pattern string) (*RegexRecognizer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q has no capture group", pattern)
	}
	return &RegexRecognizer{re: re}, nil
}

func (r *RegexRecognizer) FindContinueLinks(page []byte) []string {
	matches := r.re.FindAllSubmatch(page, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, string(m[1]))
	}
	return links
}

func (r *RegexRecognizer) String() string {
	return r.re.String()
}

// SessionCookies is the cookie jar of one login attempt. It is created empty by the
// fetcher and layered on by the submitter; it never outlives the attempt.
type SessionCookies struct {
	jar tls_client.CookieJar
}

func newSessionCookies() *SessionCookies {
	return &SessionCookies{jar: tls_client.NewCookieJar()}
}

// Cookies returns the cookies the jar would send to u.
func (s *SessionCookies) Cookies(u *url.URL) []*http.Cookie {
	return s.jar.Cookies(u)
}

// String lists every stored cookie as host:name=value, sorted by host.
func (s *SessionCookies) String() string {
	all := s.jar.GetAllCookies()
	hosts := make([]string, 0, len(all))
	for host := range all {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	var parts []string
	for _, host := range hosts {
		for _, c := range all[host] {
			parts = append(parts, fmt.Sprintf("%s:%s=%s", host, c.Name, c.Value))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Fetcher loads the portal login page and extracts its continuation link.
type Fetcher struct {
	newClient  func(jar tls_client.CookieJar) (tls_client.HttpClient, error)
	recognizer Recognizer
	logger     Logger
}

// NewFetcher takes a constructor for redirect-following clients bound to a jar.
func NewFetcher(newClient func(jar tls_client.CookieJar) (tls_client.HttpClient, error), recognizer Recognizer, logger Logger) *Fetcher {
	return &Fetcher{newClient: newClient, recognizer: recognizer, logger: logger}
}

// FetchLoginPage GETs loginPageURL with a fresh jar, following the portal's own
// redirects, and returns the jar together with the first continuation link.
func (f *Fetcher) FetchLoginPage(ctx context.Context, loginPageURL string) (*SessionCookies, string, error) {
	cookies := newSessionCookies()
	client, err := f.newClient(cookies.jar)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create client: %w", err)
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginPageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Debug("GET %s -> error: %v", loginPageURL, err)
		return nil, "", newNetworkError(StepFetch, loginPageURL, err)
	}
	defer resp.Body.Close()
	f.logger.Debug("GET %s -> %d", loginPageURL, resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", &ProtocolError{
			URL:        loginPageURL,
			StatusCode: resp.StatusCode,
			Msg:        "login page request failed",
		}
	}

	page, err := readResponseBody(resp)
	if err != nil {
		return nil, "", newNetworkError(StepFetch, loginPageURL, err)
	}

	links := f.recognizer.FindContinueLinks(page)
	f.logger.Debug("Cookies after login page: %s", cookies)
	switch {
	case len(links) == 0:
		return nil, "", &PortalFormatError{URL: loginPageURL, Pattern: f.recognizer.String()}
	case len(links) > 1:
		f.logger.Warn("%v: %d links on %s, using the first", ErrAmbiguousPortal, len(links), loginPageURL)
	}

	base := loginPageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}
	return cookies, resolveLink(base, links[0]), nil
}

// resolveLink resolves a relative href against the page it came from.
// Absolute links are returned untouched.
func resolveLink(base, link string) string {
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	b, err := url.Parse(base)
	if err != nil {
		return link
	}
	return b.ResolveReference(ref).String()
}
