package main

import (
	"context"
	"fmt"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/google/uuid"
)

type OutcomeKind int

// The zero value is OutcomeFailed so an unset Outcome never reads as logged in.
const (
	// OutcomeFailed means the attempt errored or the re-probe was still redirected.
	OutcomeFailed OutcomeKind = iota
	// OutcomeAlreadyAuthenticated means the first probe was not redirected.
	OutcomeAlreadyAuthenticated
	// OutcomeSucceeded means the login flow ran and the re-probe was not redirected.
	OutcomeSucceeded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAlreadyAuthenticated:
		return "already authenticated"
	case OutcomeSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// Outcome is the result of one login attempt.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func failedOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: err.Error()}
}

// LoggedIn is true only when a login was needed and completed.
func (o Outcome) LoggedIn() bool {
	return o.Kind == OutcomeSucceeded
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
}

// Autologin runs the probe, fetch, submit, re-probe sequence.
type Autologin struct {
	cfg        *Config
	recognizer Recognizer
	profile    *BrowserProfile
	logger     Logger
}

// NewAutologin builds the orchestrator with the default regex recognizer.
func NewAutologin(cfg *Config, logger Logger) (*Autologin, error) {
	recognizer, err := NewRegexRecognizer(cfg.ContinuePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid continue pattern: %w", err)
	}
	return NewAutologinWithRecognizer(cfg, recognizer, logger), nil
}

// NewAutologinWithRecognizer builds the orchestrator for a specific portal recognizer.
func NewAutologinWithRecognizer(cfg *Config, recognizer Recognizer, logger Logger) *Autologin {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Autologin{
		cfg:        cfg,
		recognizer: recognizer,
		profile:    DefaultProfile,
		logger:     logger,
	}
}

func generateAttemptID() string {
	return uuid.New().String()[:8]
}

func (a *Autologin) clientFactory(logger Logger) func(jar tls_client.CookieJar) (tls_client.HttpClient, error) {
	return func(jar tls_client.CookieJar) (tls_client.HttpClient, error) {
		return NewClient(logger, ClientOptions{
			FollowRedirects: true,
			Jar:             jar,
			Timeout:         a.cfg.Timeout,
			ProxyURL:        a.cfg.ProxyURL,
			Insecure:        a.cfg.Insecure,
			Profile:         a.profile,
		})
	}
}

// AttemptLogin makes a single login attempt. Errors from any step are returned
// unchanged; retrying is the caller's business.
func (a *Autologin) AttemptLogin(ctx context.Context) (Outcome, error) {
	logger := &attemptLogger{id: generateAttemptID(), base: a.logger}

	probeClient, err := NewClient(logger, ClientOptions{
		FollowRedirects: false,
		Timeout:         a.cfg.Timeout,
		ProxyURL:        a.cfg.ProxyURL,
		Insecure:        a.cfg.Insecure,
		Profile:         a.profile,
	})
	if err != nil {
		err = fmt.Errorf("failed to create probe client: %w", err)
		return failedOutcome(err), err
	}
	defer probeClient.CloseIdleConnections()

	prober := NewProber(probeClient, a.cfg.ProbeURL, a.cfg.Fingerprint, logger)

	logger.Info("Checking for login redirect (trying %s)", a.cfg.ProbeURL)
	first, err := prober.Probe(ctx)
	if err != nil {
		return failedOutcome(err), err
	}
	if !first.Redirected() {
		logger.Info("Looks like we're already logged in!")
		return Outcome{Kind: OutcomeAlreadyAuthenticated}, nil
	}
	loginPageURL := first.Location

	logger.Info("Loading login page (%s)", loginPageURL)
	fetcher := NewFetcher(a.clientFactory(logger), a.recognizer, logger)
	cookies, continuationURL, err := fetcher.FetchLoginPage(ctx, loginPageURL)
	if err != nil {
		return failedOutcome(err), err
	}

	logger.Info("Attempting to login (%s)", continuationURL)
	submitter := NewSubmitter(a.clientFactory(logger), a.profile, a.cfg.Fingerprint, logger)
	confirmed, err := submitter.SubmitLogin(ctx, continuationURL, cookies, loginPageURL)
	if err != nil {
		return failedOutcome(err), err
	}
	if confirmed {
		logger.Info("Successfully redirected to %s. We are now logged in.", a.cfg.ProbeURL)
	} else {
		logger.Debug("Login response did not contain the fingerprint")
	}

	second, err := prober.Probe(ctx)
	if err != nil {
		return failedOutcome(err), err
	}
	if second.Redirected() {
		logger.Warn("Still getting redirect when accessing %s", a.cfg.ProbeURL)
		return Outcome{
			Kind:   OutcomeFailed,
			Reason: fmt.Sprintf("still redirected to %s", second.Location),
		}, nil
	}

	return Outcome{Kind: OutcomeSucceeded}, nil
}
