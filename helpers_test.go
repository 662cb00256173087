package main

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testFingerprint = `<meta name="Author" content="Apple Inc." />`

// recordingLogger keeps every line for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level+": "+fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Debug(format string, args ...any) { r.add("DEBUG", format, args...) }
func (r *recordingLogger) Info(format string, args ...any)  { r.add("INFO", format, args...) }
func (r *recordingLogger) Warn(format string, args ...any)  { r.add("WARNING", format, args...) }
func (r *recordingLogger) Error(format string, args ...any) { r.add("ERROR", format, args...) }

func (r *recordingLogger) contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func writeBody(t *testing.T, w http.ResponseWriter, body string, compress bool) {
	t.Helper()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if compress {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gzipBytes(t, body))
		return
	}
	_, _ = w.Write([]byte(body))
}

func continueMarkup(href string) string {
	return `<div id="button_content"><a href="` + href +
		`" title="Continue to the Internet" id="continue_link">Continue to the Internet</a></div>`
}

func loginPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Welcome</title></head><body>\n<p>Accept the terms.</p>\n")
	for _, h := range hrefs {
		b.WriteString(continueMarkup(h))
		b.WriteString("\n")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func realPage() string {
	return "<html><head>" + testFingerprint + "</head><body>real site</body></html>"
}

// portalSim is a click-through captive portal in one server: /probe redirects to
// /login until /go has been hit with the session cookie and the login page referer.
type portalSim struct {
	t   *testing.T
	srv *httptest.Server

	compress       bool
	neverUnlock    bool
	unlocked       atomic.Bool
	probeCount     atomic.Int32
	loginCount     atomic.Int32
	loginHadCookie atomic.Bool
	pageOverride   string

	mu          sync.Mutex
	lastReferer string
	lastUA      string
}

func newPortalSim(t *testing.T) *portalSim {
	t.Helper()
	p := &portalSim{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/probe", p.handleProbe)
	mux.HandleFunc("/login", p.handleLogin)
	mux.HandleFunc("/go", p.handleGo)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *portalSim) url(path string) string {
	return p.srv.URL + path
}

func (p *portalSim) config() *Config {
	cfg := DefaultConfig()
	cfg.ProbeURL = p.url("/probe")
	cfg.Fingerprint = testFingerprint
	cfg.Timeout = 5 * time.Second
	return cfg
}

func (p *portalSim) handleProbe(w http.ResponseWriter, r *http.Request) {
	p.probeCount.Add(1)
	if p.unlocked.Load() {
		writeBody(p.t, w, realPage(), false)
		return
	}
	http.Redirect(w, r, p.url("/login"), http.StatusFound)
}

func (p *portalSim) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.loginCount.Add(1)
	if _, err := r.Cookie("sid"); err == nil {
		p.loginHadCookie.Store(true)
	}
	http.SetCookie(w, &http.Cookie{Name: "sid", Value: "xyz", Path: "/"})
	page := p.pageOverride
	if page == "" {
		page = loginPage(p.url("/go?tok=1"))
	}
	writeBody(p.t, w, page, p.compress)
}

func (p *portalSim) handleGo(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.lastReferer = r.Referer()
	p.lastUA = r.UserAgent()
	p.mu.Unlock()

	c, err := r.Cookie("sid")
	if err != nil || c.Value != "xyz" || r.Referer() != p.url("/login") || r.URL.Query().Get("tok") != "1" {
		w.WriteHeader(http.StatusForbidden)
		writeBody(p.t, w, "denied", false)
		return
	}
	if !p.neverUnlock {
		p.unlocked.Store(true)
	}
	writeBody(p.t, w, realPage(), p.compress)
}

func (p *portalSim) referer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReferer
}
