package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/repo"
	"github.com/tbourn/portal-rpa/internal/utils"
)

// RecordsStore exposes the counter store's state for administration.
type RecordsStore interface {
	Counter(ctx context.Context) (domain.CounterState, error)
	Mappings(ctx context.Context, offset, limit int) ([]domain.IDMapping, int64, error)
}

// RecordsService serves read-only views of the allocator's state.
type RecordsService struct {
	Store RecordsStore
}

// CounterState returns the counter; an unseeded store reads as last_val 0.
func (s *RecordsService) CounterState(ctx context.Context) (domain.CounterState, error) {
	tr := otel.Tracer("services/RecordsService")
	ctx, span := tr.Start(ctx, "CounterState")
	defer span.End()

	c, err := s.Store.Counter(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.CounterState{ID: domain.CounterRowID}, nil
	}
	return c, err
}

// ListMappings returns one page of mappings, newest first, and the total.
func (s *RecordsService) ListMappings(ctx context.Context, page, pageSize int) ([]domain.IDMapping, int64, error) {
	tr := otel.Tracer("services/RecordsService")
	ctx, span := tr.Start(ctx, "ListMappings", trace.WithAttributes(
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	))
	defer span.End()

	_, size, offset := utils.NormalizePage(page, pageSize, 50, 500)
	items, total, err := s.Store.Mappings(ctx, offset, size)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []domain.IDMapping{}
	}
	return items, total, nil
}
