package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/services"
)

type fakeAlloc struct {
	id    string
	isNew bool
	err   error
	keys  []string
}

func (f *fakeAlloc) Allocate(_ context.Context, key string) (string, bool, error) {
	f.keys = append(f.keys, key)
	return f.id, f.isNew, f.err
}

type fakeSubmitter struct {
	out     services.SubmissionOutcome
	err     error
	got     domain.Submission
	key     string
	cancellable bool
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub domain.Submission, key string) (services.SubmissionOutcome, error) {
	f.got, f.key = sub, key
	f.cancellable = ctx.Done() != nil
	if f.err != nil {
		return services.SubmissionOutcome{}, f.err
	}
	out := f.out
	out.Kind = sub.Kind
	out.MessageID = sub.MessageID
	return out, nil
}

type fakeRecords struct {
	counter  domain.CounterState
	mappings []domain.IDMapping
	total    int64
	err      error

	page, size int
}

func (f *fakeRecords) CounterState(context.Context) (domain.CounterState, error) {
	return f.counter, f.err
}

func (f *fakeRecords) ListMappings(_ context.Context, page, size int) ([]domain.IDMapping, int64, error) {
	f.page, f.size = page, size
	return f.mappings, f.total, f.err
}

type fakeSettings struct {
	mu  sync.Mutex
	ps  config.PortalSettings
	err error
}

func (f *fakeSettings) Snapshot() config.PortalSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ps
}

func (f *fakeSettings) Update(ps config.PortalSettings) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.ps = ps
	f.mu.Unlock()
	return nil
}

var errFake = errors.New("fake failure")
