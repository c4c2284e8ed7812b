package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tbourn/portal-rpa/internal/domain"
)

type fakeHandle struct{ id string }

func (h fakeHandle) ID() string { return h.id }

// fakeDriver fails the attempts listed in failInteract / failBegin (0-indexed)
// and records open/close so tests can check pairing and overlap.
type fakeDriver struct {
	mu sync.Mutex

	failBegin     map[int]error
	failInteract  map[int]error
	screenshotErr error
	// block, when set, is closed by the test to let Interact return.
	block chan struct{}

	calls      int
	open       int32
	maxOpen    int32
	began      []string
	ended      []string
	shots      int
	lastFields []domain.Field
}

func (d *fakeDriver) BeginSession(context.Context) (domain.SessionHandle, error) {
	d.mu.Lock()
	n := d.calls
	d.calls++
	d.mu.Unlock()
	if err := d.failBegin[n]; err != nil {
		return nil, err
	}
	cur := atomic.AddInt32(&d.open, 1)
	for {
		m := atomic.LoadInt32(&d.maxOpen)
		if cur <= m || atomic.CompareAndSwapInt32(&d.maxOpen, m, cur) {
			break
		}
	}
	h := fakeHandle{id: fmt.Sprintf("s%d", n)}
	d.mu.Lock()
	d.began = append(d.began, h.id)
	d.mu.Unlock()
	return h, nil
}

func (d *fakeDriver) Interact(ctx context.Context, h domain.SessionHandle, sub domain.Submission) ([]byte, []byte, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	var n int
	fmt.Sscanf(h.ID(), "s%d", &n)
	d.mu.Lock()
	d.lastFields = sub.Fields
	d.mu.Unlock()
	if err := d.failInteract[n]; err != nil {
		return nil, nil, err
	}
	return []byte("<html>" + sub.MessageID + "</html>"), []byte("%PDF-" + sub.MessageID), nil
}

func (d *fakeDriver) Screenshot(context.Context, domain.SessionHandle) ([]byte, error) {
	d.mu.Lock()
	d.shots++
	d.mu.Unlock()
	if d.screenshotErr != nil {
		return nil, d.screenshotErr
	}
	return []byte("\x89PNG"), nil
}

func (d *fakeDriver) EndSession(h domain.SessionHandle) {
	atomic.AddInt32(&d.open, -1)
	d.mu.Lock()
	d.ended = append(d.ended, h.ID())
	d.mu.Unlock()
}

type publishCall struct {
	name string
	mime domain.MimeKind
}

// fakePublisher fails the Nth publish call (0-indexed) listed in fail.
type fakePublisher struct {
	mu    sync.Mutex
	fail  map[int]error
	calls []publishCall
}

func (p *fakePublisher) Publish(_ context.Context, _ []byte, name string, mime domain.MimeKind) (domain.UploadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.calls)
	p.calls = append(p.calls, publishCall{name, mime})
	if err := p.fail[n]; err != nil {
		return domain.UploadResult{}, err
	}
	id := fmt.Sprintf("r%d", n)
	return domain.UploadResult{RemoteID: id, Link: "https://files.example/" + id + mime.Ext()}, nil
}

// fakeSleeper records requested delays without waiting.
type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

// fakeCounterStore is an in-memory CounterStore.
type fakeCounterStore struct {
	mu       sync.Mutex
	last     int
	mappings map[string]string
	err      error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{mappings: map[string]string{}}
}

func (s *fakeCounterStore) Allocate(_ context.Context, key string, format func(int) string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	if id, ok := s.mappings[key]; ok {
		return id, false, nil
	}
	s.last = (s.last % 99999) + 1
	id := format(s.last)
	s.mappings[key] = id
	return id, true, nil
}

var errBoom = errors.New("boom")

func companySubmission() domain.Submission {
	return domain.CompanySubmission{
		MessageID:      "00001FTICLI112025",
		TradeName:      "PT Maju",
		Address:        "Jl. Sudirman 1",
		SubDistrict:    "Setiabudi",
		District:       "Jakarta Selatan",
		CityCode:       "0394",
		PostalCode:     "12910",
		BusinessNumber: "0123456789012345",
		Phone:          "0215550000",
	}.Submission()
}
