package main

import (
	"bytes"
	"context"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

// submitAcceptEncoding matches older desktop Chrome. sdch is never negotiated.
const submitAcceptEncoding = "gzip,deflate,sdch"

// Submitter follows the continuation link as a browser would.
type Submitter struct {
	newClient   func(jar tls_client.CookieJar) (tls_client.HttpClient, error)
	profile     *BrowserProfile
	fingerprint string
	logger      Logger
}

func NewSubmitter(newClient func(jar tls_client.CookieJar) (tls_client.HttpClient, error), profile *BrowserProfile, fingerprint string, logger Logger) *Submitter {
	if profile == nil {
		profile = DefaultProfile
	}
	return &Submitter{
		newClient:   newClient,
		profile:     profile,
		fingerprint: fingerprint,
		logger:      logger,
	}
}

// SubmitLogin GETs continuationURL with the attempt's cookies and referer and reports
// whether the final page contains the fingerprint.
func (s *Submitter) SubmitLogin(ctx context.Context, continuationURL string, cookies *SessionCookies, referer string) (bool, error) {
	client, err := s.newClient(cookies.jar)
	if err != nil {
		return false, fmt.Errorf("failed to create client: %w", err)
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, continuationURL, nil)
	if err != nil {
		return false, err
	}

	req.Header = http.Header{
		"User-Agent":      {s.profile.UserAgent},
		"Accept":          {s.profile.Accept},
		"Accept-Encoding": {submitAcceptEncoding},
		"Accept-Language": {s.profile.AcceptLanguage},
		"Connection":      {"keep-alive"},
		"Referer":         {referer},
		http.HeaderOrderKey: {
			"User-Agent",
			"Accept",
			"Accept-Encoding",
			"Accept-Language",
			"Connection",
			"Referer",
			"Cookie",
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Debug("GET %s -> error: %v", continuationURL, err)
		return false, newNetworkError(StepSubmit, continuationURL, err)
	}
	defer resp.Body.Close()
	s.logger.Debug("GET %s -> %d", continuationURL, resp.StatusCode)

	body, err := readResponseBody(resp)
	if err != nil {
		return false, newNetworkError(StepSubmit, continuationURL, err)
	}
	s.logger.Debug("Response from login: %s", body)
	s.logger.Debug("Cookies after login: %s", cookies)

	return bytes.Contains(body, []byte(s.fingerprint)), nil
}
