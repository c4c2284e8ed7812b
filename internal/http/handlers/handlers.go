package handlers

import (
	"context"

	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/services"
)

// IDAllocator issues message identifiers for submission keys.
type IDAllocator interface {
	Allocate(ctx context.Context, key string) (id string, isNew bool, err error)
}

// Submitter drives one submission through the portal.
type Submitter interface {
	Submit(ctx context.Context, sub domain.Submission, idemKey string) (services.SubmissionOutcome, error)
}

// Records exposes allocator state for administration.
type Records interface {
	CounterState(ctx context.Context) (domain.CounterState, error)
	ListMappings(ctx context.Context, page, pageSize int) ([]domain.IDMapping, int64, error)
}

// Settings reads and replaces the portal settings.
type Settings interface {
	Snapshot() config.PortalSettings
	Update(config.PortalSettings) error
}

// Handlers groups the HTTP endpoints. Dependencies are abstract so tests can
// substitute fakes.
type Handlers struct {
	alloc    IDAllocator
	subs     Submitter
	records  Records
	settings Settings
}

// New constructs Handlers bound to the given services.
func New(alloc IDAllocator, subs Submitter, records Records, settings Settings) *Handlers {
	return &Handlers{alloc: alloc, subs: subs, records: records, settings: settings}
}
