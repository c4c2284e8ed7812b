package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTypeCode is the literal embedded between the sequence and the date.
const DefaultTypeCode = "FTICLI"

// CounterStore persists submission key → identifier mappings and the
// wrapping sequence counter. Allocate must run the lookup, counter advance and
// mapping insert atomically; format turns the new sequence value into the
// identifier to store.
type CounterStore interface {
	Allocate(ctx context.Context, key string, format func(seq int) string) (id string, isNew bool, err error)
}

// IdentifierAllocator issues one stable message identifier per submission key.
type IdentifierAllocator struct {
	Store    CounterStore
	TypeCode string
	Now      func() time.Time

	// Observe, when set, sees the outcome of every allocation with a
	// non-empty key.
	Observe func(isNew bool, err error)
}

// NewIdentifierAllocator returns an allocator with the default type code.
func NewIdentifierAllocator(store CounterStore) *IdentifierAllocator {
	return &IdentifierAllocator{Store: store, TypeCode: DefaultTypeCode, Now: time.Now}
}

// FormatIdentifier renders CCCCC + TYPE + MM + YYYY using t's UTC month/year.
func FormatIdentifier(seq int, typeCode string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%05d%s%02d%04d", seq, typeCode, int(t.Month()), t.Year())
}

// Allocate returns the identifier for key and whether it was issued by this
// call. Repeated calls with the same key return the same identifier.
func (a *IdentifierAllocator) Allocate(ctx context.Context, key string) (string, bool, error) {
	tr := otel.Tracer("services/IdentifierAllocator")
	ctx, span := tr.Start(ctx, "Allocate")
	defer span.End()

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, fmt.Errorf("%w: submission key is empty", ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("submission.key", key))

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	typeCode := a.TypeCode
	if typeCode == "" {
		typeCode = DefaultTypeCode
	}
	at := now()
	format := func(seq int) string { return FormatIdentifier(seq, typeCode, at) }

	id, isNew, err := a.Store.Allocate(ctx, key, format)
	if a.Observe != nil {
		a.Observe(isNew, err)
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}
	span.AddEvent("allocated", trace.WithAttributes(
		attribute.String("message.id", id),
		attribute.Bool("is_new", isNew),
	))
	return id, isNew, nil
}
