package main

import (
	"errors"
	"fmt"
)

// ErrAmbiguousPortal indicates the login page carried more than one continuation link.
// It is never returned; it marks the warning logged when the first link is used anyway.
var ErrAmbiguousPortal = errors.New("ambiguous portal: multiple continuation links")

// Step names the HTTP step of a login attempt that failed.
type Step string

const (
	StepProbe  Step = "probe"
	StepFetch  Step = "fetch"
	StepSubmit Step = "submit"
)

// =============================================================================
// Network Errors
// =============================================================================

// NetworkError is a connection, DNS, TLS or timeout failure during one step.
type NetworkError struct {
	Step Step
	URL  string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func newNetworkError(step Step, rawURL string, err error) error {
	return &NetworkError{Step: step, URL: rawURL, Err: err}
}

// IsNetworkError reports whether err is a NetworkError, optionally for a given step.
// Pass an empty step to match any.
func IsNetworkError(err error, step Step) bool {
	var ne *NetworkError
	if !errors.As(err, &ne) {
		return false
	}
	return step == "" || ne.Step == step
}

// =============================================================================
// Portal Errors
// =============================================================================

// ProtocolError is a response the flow cannot interpret: a redirect without a
// Location header, or an error status where a redirect or success was required.
type ProtocolError struct {
	URL        string
	StatusCode int
	Msg        string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error from %s (status %d): %s", e.URL, e.StatusCode, e.Msg)
}

// PortalFormatError means the login page did not match the continuation-link pattern.
type PortalFormatError struct {
	URL     string
	Pattern string
}

func (e *PortalFormatError) Error() string {
	return fmt.Sprintf("unrecognized portal page at %s: no match for %q", e.URL, e.Pattern)
}
