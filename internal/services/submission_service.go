// Package services – SubmissionService
//
// SubmissionService validates a portal submission, answers repeated requests
// carrying the same Idempotency-Key from the stored result, and otherwise
// runs the orchestrator and records the outcome for later replay.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/repo"
)

// ErrKeyReused is returned when an Idempotency-Key already completed a
// submission for a different message identifier.
var ErrKeyReused = errors.New("idempotency key reused for a different message id")

// Runner executes one submission through the retry state machine.
type Runner interface {
	Run(ctx context.Context, sub domain.Submission) (RunResult, error)
}

// SubmissionOutcome is what a caller gets back for a completed submission.
type SubmissionOutcome struct {
	MessageID    string
	Kind         domain.Kind
	Attempts     int
	SnapshotLink string
	ReportLink   string
	Replayed     bool
}

// Message is the human-readable success line.
func (o SubmissionOutcome) Message() string {
	return fmt.Sprintf("%s report generated and uploaded successfully", o.Kind.Label())
}

// SubmissionService coordinates validation, replay and orchestration.
type SubmissionService struct {
	DB        *gorm.DB // stores completed results; nil disables replay
	Runner    Runner
	ReplayTTL time.Duration
	Now       func() time.Time
}

// Validate checks that sub has a known kind, a message identifier and a value
// for every field.
func Validate(sub domain.Submission) error {
	if !sub.Kind.Valid() {
		return fmt.Errorf("%w: unknown submission kind %q", ErrInvalidInput, sub.Kind)
	}
	if strings.TrimSpace(sub.MessageID) == "" {
		return fmt.Errorf("%w: message_id is required", ErrInvalidInput)
	}
	var missing []string
	for _, f := range sub.Fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Submit runs sub, or replays the stored result when idemKey already
// completed the same submission.
func (s *SubmissionService) Submit(ctx context.Context, sub domain.Submission, idemKey string) (SubmissionOutcome, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("submission.kind", string(sub.Kind)),
		attribute.String("message.id", sub.MessageID),
		attribute.Bool("idempotent", idemKey != ""),
	))
	defer span.End()

	if err := Validate(sub); err != nil {
		return SubmissionOutcome{}, err
	}
	idemKey = strings.TrimSpace(idemKey)
	lg := zerolog.Ctx(ctx)

	if idemKey != "" && s.DB != nil {
		rec, err := repo.GetSubmissionResult(ctx, s.DB, string(sub.Kind), idemKey, s.now())
		switch {
		case err == nil:
			if rec.MessageID != sub.MessageID {
				return SubmissionOutcome{}, ErrKeyReused
			}
			span.AddEvent("replayed")
			return SubmissionOutcome{
				MessageID:    rec.MessageID,
				Kind:         sub.Kind,
				Attempts:     rec.Attempts,
				SnapshotLink: rec.SnapshotLink,
				ReportLink:   rec.ReportLink,
				Replayed:     true,
			}, nil
		case errors.Is(err, repo.ErrNotFound):
		default:
			lg.Warn().Err(err).Msg("replay lookup failed; running submission")
		}
	}

	res, err := s.Runner.Run(ctx, sub)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	out := SubmissionOutcome{
		MessageID:    sub.MessageID,
		Kind:         sub.Kind,
		Attempts:     res.Attempts,
		SnapshotLink: res.Snapshot.Link,
		ReportLink:   res.Report.Link,
	}

	if idemKey != "" && s.DB != nil {
		_, err := repo.CreateSubmissionResult(ctx, s.DB, domain.SubmissionResult{
			Kind:         string(sub.Kind),
			Key:          idemKey,
			MessageID:    sub.MessageID,
			SnapshotLink: out.SnapshotLink,
			ReportLink:   out.ReportLink,
			Attempts:     out.Attempts,
		}, s.ttl())
		if err != nil && !errors.Is(err, repo.ErrDuplicate) {
			lg.Warn().Err(err).Msg("store submission result")
		}
	}
	return out, nil
}

func (s *SubmissionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SubmissionService) ttl() time.Duration {
	if s.ReplayTTL > 0 {
		return s.ReplayTTL
	}
	return 24 * time.Hour
}
