// Package services – Orchestrator
//
// This file implements the submission state machine:
//
//	Idle → Running(n) → Succeeded
//	                  → RetryPending → Running(n+1)
//	                  → Failed          (attempt budget exhausted)
//
// Each attempt opens one portal session, drives it, publishes the page
// snapshot and then the report, and releases the session before the attempt
// returns. A failed attempt is retried from scratch after base*2^n.

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// Default retry budget.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// State is a node of the orchestration state machine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateRetryPending
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateRetryPending:
		return "retry_pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// SessionDriver drives the remote portal. BeginSession opens a session and
// all of its sub-resources together, releasing anything partially opened on
// failure. EndSession releases everything and never fails observably.
type SessionDriver interface {
	BeginSession(ctx context.Context) (domain.SessionHandle, error)
	Interact(ctx context.Context, h domain.SessionHandle, sub domain.Submission) (snapshot, report []byte, err error)
	Screenshot(ctx context.Context, h domain.SessionHandle) ([]byte, error)
	EndSession(h domain.SessionHandle)
}

// Publisher publishes one artifact and returns its link.
type Publisher interface {
	Publish(ctx context.Context, content []byte, name string, mime domain.MimeKind) (domain.UploadResult, error)
}

// Transition describes one state change. Attempt is 0-indexed.
type Transition struct {
	From      State
	To        State
	Kind      domain.Kind
	MessageID string
	Attempt   int
	Delay     time.Duration
	Err       error
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	Snapshot domain.UploadResult
	Report   domain.UploadResult
	Attempts int
}

// Orchestrator runs submissions through the retry state machine. A single
// Orchestrator is safe for concurrent Runs; each Run owns its own state.
type Orchestrator struct {
	Driver    SessionDriver
	Publisher Publisher

	MaxAttempts int
	BaseDelay   time.Duration

	// Sleep waits between attempts. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error

	// Sessions, when set, bounds the number of concurrently open sessions.
	// A slot is held for one attempt and released before the backoff wait.
	Sessions *semaphore.Weighted

	// DiagnosticsDir receives best-effort screenshots of failed attempts.
	// Empty disables capture.
	DiagnosticsDir string

	OnTransition func(Transition)
}

// NewOrchestrator returns an orchestrator with the default retry budget.
func NewOrchestrator(d SessionDriver, p Publisher) *Orchestrator {
	return &Orchestrator{
		Driver:      d,
		Publisher:   p,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       SleepContext,
	}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait after the given 0-indexed failed attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(int64(1)<<uint(attempt))
}

// Run drives sub to completion or until the attempt budget is exhausted, in
// which case it returns an *OrchestrationError carrying the last error.
func (o *Orchestrator) Run(ctx context.Context, sub domain.Submission) (RunResult, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("submission.kind", string(sub.Kind)),
		attribute.String("message.id", sub.MessageID),
	))
	defer span.End()

	lg := zerolog.Ctx(ctx).With().
		Str("kind", string(sub.Kind)).
		Str("message_id", sub.MessageID).
		Logger()

	maxAttempts := o.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := o.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	state := StateIdle
	move := func(to State, attempt int, delay time.Duration, err error) {
		t := Transition{From: state, To: to, Kind: sub.Kind, MessageID: sub.MessageID, Attempt: attempt, Delay: delay, Err: err}
		state = to
		if o.OnTransition != nil {
			o.OnTransition(t)
		}
	}

	var (
		lastErr  error
		attempts int
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attempts = attempt + 1
		move(StateRunning, attempt, 0, nil)
		lg.Info().Int("attempt", attempts).Int("max_attempts", maxAttempts).Msg("attempt started")

		res, err := o.attempt(ctx, lg, sub, attempt)
		if err == nil {
			res.Attempts = attempts
			move(StateSucceeded, attempt, 0, nil)
			span.SetAttributes(attribute.Int("attempts", attempts))
			lg.Info().Int("attempt", attempts).
				Str("snapshot_link", res.Snapshot.Link).
				Str("report_link", res.Report.Link).
				Msg("submission succeeded")
			return res, nil
		}

		lastErr = err
		span.AddEvent("attempt failed", trace.WithAttributes(
			attribute.Int("attempt", attempts),
			attribute.String("error", err.Error()),
		))
		lg.Warn().Err(err).Int("attempt", attempts).Msg("attempt failed")

		if attempt < maxAttempts-1 {
			delay := Backoff(o.BaseDelay, attempt)
			move(StateRetryPending, attempt, delay, err)
			lg.Info().Int("attempt", attempts).Dur("delay", delay).Msg("retrying after backoff")
			if serr := sleep(ctx, delay); serr != nil {
				lastErr = fmt.Errorf("%w (retry aborted: %v)", err, serr)
				break
			}
		}
	}

	move(StateFailed, attempts-1, 0, lastErr)
	oerr := &OrchestrationError{Kind: sub.Kind, Attempts: attempts, Err: lastErr}
	span.RecordError(oerr)
	span.SetStatus(codes.Error, "orchestration failed")
	lg.Error().Err(lastErr).Int("attempts", attempts).Msg("submission failed")
	return RunResult{}, oerr
}

// attempt runs one full session. The session is released before it returns.
func (o *Orchestrator) attempt(ctx context.Context, lg zerolog.Logger, sub domain.Submission, n int) (res RunResult, err error) {
	if o.Sessions != nil {
		if err := o.Sessions.Acquire(ctx, 1); err != nil {
			return res, fmt.Errorf("acquire session slot: %w", err)
		}
		defer o.Sessions.Release(1)
	}

	h, err := o.Driver.BeginSession(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: begin session: %w", ErrDriverFailure, err)
	}
	defer func() {
		if err != nil {
			o.captureDiagnostics(ctx, lg, h, sub, n)
		}
		o.Driver.EndSession(h)
		lg.Debug().Str("session", h.ID()).Int("attempt", n+1).Msg("session released")
	}()

	snapshot, report, err := o.Driver.Interact(ctx, h, sub)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrDriverFailure, err)
	}

	name := ArtifactName(sub)
	if res.Snapshot, err = o.Publisher.Publish(ctx, snapshot, name, domain.MimeHTML); err != nil {
		return res, fmt.Errorf("snapshot: %w", err)
	}
	if res.Report, err = o.Publisher.Publish(ctx, report, name, domain.MimePDF); err != nil {
		return res, fmt.Errorf("report: %w", err)
	}
	return res, nil
}

// ArtifactName is the base name both artifacts of sub are published under.
func ArtifactName(sub domain.Submission) string {
	return sub.MessageID + "_" + string(sub.Kind)
}

// DiagnosticName is the file name of a failed attempt's screenshot.
func DiagnosticName(sub domain.Submission, attempt int) string {
	return fmt.Sprintf("ss-%s-error-%s-attempt%d%s", sub.Kind, sub.MessageID, attempt+1, domain.MimePNG.Ext())
}

func (o *Orchestrator) captureDiagnostics(ctx context.Context, lg zerolog.Logger, h domain.SessionHandle, sub domain.Submission, n int) {
	if o.DiagnosticsDir == "" {
		return
	}
	png, err := o.Driver.Screenshot(ctx, h)
	if err != nil {
		lg.Warn().Err(err).Int("attempt", n+1).Msg("diagnostic screenshot failed")
		return
	}
	if err := os.MkdirAll(o.DiagnosticsDir, 0o755); err != nil {
		lg.Warn().Err(err).Msg("diagnostic dir")
		return
	}
	path := filepath.Join(o.DiagnosticsDir, DiagnosticName(sub, n))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		lg.Warn().Err(err).Str("path", path).Msg("write diagnostic screenshot")
		return
	}
	lg.Info().Str("path", path).Int("attempt", n+1).Msg("diagnostic screenshot saved")
}
