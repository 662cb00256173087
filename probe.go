package main

import (
	"bytes"
	"context"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

// ProbeResult is either AlreadyAuthenticated or RedirectedTo(Location).
type ProbeResult struct {
	// Location is the verbatim redirect target; empty when not redirected.
	Location   string
	StatusCode int
	// FingerprintSeen reports whether an unredirected body contained the fingerprint.
	// Informational only.
	FingerprintSeen bool
}

// Redirected reports whether the probe was hijacked.
func (r ProbeResult) Redirected() bool {
	return r.Location != ""
}

func (r ProbeResult) String() string {
	if r.Redirected() {
		return fmt.Sprintf("RedirectedTo(%s)", r.Location)
	}
	return "AlreadyAuthenticated"
}

// Prober checks whether requests to a known URL are being redirected.
type Prober struct {
	client      tls_client.HttpClient
	probeURL    string
	fingerprint string
	logger      Logger
}

// NewProber wraps a client that must not follow redirects.
func NewProber(client tls_client.HttpClient, probeURL, fingerprint string, logger Logger) *Prober {
	return &Prober{
		client:      client,
		probeURL:    probeURL,
		fingerprint: fingerprint,
		logger:      logger,
	}
}

// Probe issues a single GET to the probe URL.
func (p *Prober) Probe(ctx context.Context) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.probeURL, nil)
	if err != nil {
		return ProbeResult{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("GET %s -> error: %v", p.probeURL, err)
		return ProbeResult{}, newNetworkError(StepProbe, p.probeURL, err)
	}
	p.logger.Debug("GET %s -> %d", p.probeURL, resp.StatusCode)

	if isRedirect(resp.StatusCode) {
		drainBody(resp)
		location := resp.Header.Get("Location")
		if location == "" {
			return ProbeResult{}, &ProtocolError{
				URL:        p.probeURL,
				StatusCode: resp.StatusCode,
				Msg:        "redirect without Location header",
			}
		}
		p.logger.Debug("Probe got redirect to %s", location)
		return ProbeResult{Location: location, StatusCode: resp.StatusCode}, nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		drainBody(resp)
		return ProbeResult{}, &ProtocolError{
			URL:        p.probeURL,
			StatusCode: resp.StatusCode,
			Msg:        "expected a redirect or a successful response",
		}
	}

	defer resp.Body.Close()
	body, err := readResponseBody(resp)
	if err != nil {
		return ProbeResult{}, newNetworkError(StepProbe, p.probeURL, err)
	}

	result := ProbeResult{
		StatusCode:      resp.StatusCode,
		FingerprintSeen: p.fingerprint != "" && bytes.Contains(body, []byte(p.fingerprint)),
	}
	if !result.FingerprintSeen {
		p.logger.Debug("Probe was not redirected but the fingerprint is missing from %s", p.probeURL)
	}
	return result, nil
}
