// Package driver automates the registry portal with a headless browser.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/domain"
)

var (
	ErrUnknownKind    = errors.New("driver: unknown submission kind")
	ErrForeignHandle  = errors.New("driver: handle not created by this driver")
	ErrMissingLogin   = errors.New("driver: portal login url not configured")
	ErrReportNotFound = errors.New("driver: report download did not complete")
)

// SettingsSource supplies the current portal settings.
type SettingsSource interface {
	Snapshot() config.PortalSettings
}

// RodDriver drives one isolated browser per session.
type RodDriver struct {
	Settings    SettingsSource
	BrowserBin  string
	StepTimeout time.Duration
	DownloadDir string

	open atomic.Int64
}

// NewRodDriver returns a driver reading portal settings from s.
func NewRodDriver(s SettingsSource, cfg config.RPAConfig) *RodDriver {
	return &RodDriver{
		Settings:    s,
		BrowserBin:  cfg.BrowserBin,
		StepTimeout: cfg.StepTimeout,
		DownloadDir: cfg.ArtifactDir,
	}
}

// Open reports how many sessions are currently live.
func (d *RodDriver) Open() int64 { return d.open.Load() }

// Session is a live browser process with one incognito page.
type Session struct {
	id       string
	settings config.PortalSettings
	launch   *launcher.Launcher
	browser  *rod.Browser
	incog    *rod.Browser
	page     *rod.Page
}

// ID implements domain.SessionHandle.
func (s *Session) ID() string { return s.id }

// BeginSession launches a browser and opens a blank incognito page. Any
// partially acquired resources are released on failure.
func (d *RodDriver) BeginSession(ctx context.Context) (domain.SessionHandle, error) {
	ps := d.Settings.Snapshot()
	if ps.LoginURL == "" {
		return nil, ErrMissingLogin
	}
	s := &Session{id: uuid.NewString(), settings: ps}

	s.launch = launcher.New().Context(ctx).Headless(ps.Headless)
	if d.BrowserBin != "" {
		s.launch = s.launch.Bin(d.BrowserBin)
	}
	u, err := s.launch.Launch()
	if err != nil {
		s.close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s.browser = rod.New().ControlURL(u).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.close()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	if s.incog, err = s.browser.Incognito(); err != nil {
		s.close()
		return nil, fmt.Errorf("incognito: %w", err)
	}
	if s.page, err = s.incog.Page(proto.TargetCreateTarget{URL: ""}); err != nil {
		s.close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	d.open.Add(1)
	zerolog.Ctx(ctx).Debug().Str("session", s.id).Bool("headless", ps.Headless).Msg("browser session opened")
	return s, nil
}

// EndSession closes the page and browser and kills the process. It is
// safe to call once per handle returned by BeginSession.
func (d *RodDriver) EndSession(h domain.SessionHandle) {
	s, ok := h.(*Session)
	if !ok || s == nil {
		return
	}
	s.close()
	d.open.Add(-1)
}

func (s *Session) close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.incog != nil {
		_ = s.incog.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launch != nil {
		s.launch.Kill()
		s.launch.Cleanup()
	}
}

// Screenshot captures the current viewport.
func (d *RodDriver) Screenshot(ctx context.Context, h domain.SessionHandle) ([]byte, error) {
	s, ok := h.(*Session)
	if !ok {
		return nil, ErrForeignHandle
	}
	return s.page.Context(ctx).Screenshot(false, nil)
}

// Interact logs in, fills and submits the form for sub.Kind, and returns
// the result page HTML and the downloaded PDF report.
func (d *RodDriver) Interact(ctx context.Context, h domain.SessionHandle, sub domain.Submission) ([]byte, []byte, error) {
	s, ok := h.(*Session)
	if !ok {
		return nil, nil, ErrForeignHandle
	}
	form, ok := FormFor(sub.Kind)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, sub.Kind)
	}

	ctx, span := otel.Tracer("driver/rod").Start(ctx, "RodDriver.Interact")
	defer span.End()
	span.SetAttributes(
		attribute.String("rpa.kind", string(sub.Kind)),
		attribute.String("rpa.message_id", sub.MessageID),
	)

	lg := zerolog.Ctx(ctx).With().Str("session", s.id).Str("kind", string(sub.Kind)).Logger()
	page := s.page.Context(ctx)
	vals := stepValues(sub, s.settings.Username, s.settings.Password)

	if err := page.Timeout(d.timeout()).Navigate(s.settings.LoginURL); err != nil {
		return nil, nil, fmt.Errorf("navigate login: %w", err)
	}
	if err := d.run(page, "login", LoginSteps, vals); err != nil {
		return nil, nil, err
	}
	lg.Debug().Msg("logged in")

	if err := d.run(page, string(sub.Kind), form.Steps, vals); err != nil {
		return nil, nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, nil, fmt.Errorf("capture html: %w", err)
	}

	report, err := d.downloadReport(s, page)
	if err != nil {
		return nil, nil, err
	}
	lg.Info().Int("html_bytes", len(html)).Int("pdf_bytes", len(report)).Msg("portal interaction complete")
	return []byte(html), report, nil
}

func (d *RodDriver) timeout() time.Duration {
	if d.StepTimeout <= 0 {
		return 2 * time.Minute
	}
	return d.StepTimeout
}

func (d *RodDriver) run(page *rod.Page, phase string, steps []Step, vals map[string]string) error {
	for i, st := range steps {
		if err := d.do(page, st, vals); err != nil {
			return fmt.Errorf("%s step %d (%s %s): %w", phase, i+1, st.Action, st.target(), err)
		}
	}
	return nil
}

func (d *RodDriver) do(page *rod.Page, st Step, vals map[string]string) error {
	t := d.timeout()
	if st.Action == ActWaitLoad {
		return page.Timeout(t).WaitLoad()
	}

	v, err := st.resolve(vals)
	if err != nil {
		return err
	}

	var el *rod.Element
	if st.CSS != "" {
		el, err = page.Timeout(t).Element(st.CSS)
	} else {
		el, err = page.Timeout(t).ElementX(st.XPath)
	}
	if err != nil {
		return err
	}
	el = el.CancelTimeout().Timeout(t)

	switch st.Action {
	case ActFill:
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(v)
	case ActSelect:
		return el.Select([]string{fmt.Sprintf("[value=%q]", v)}, true, rod.SelectorTypeCSSSector)
	case ActClick:
		return el.Click(proto.InputMouseButtonLeft, 1)
	case ActPressEnter:
		return el.Type(input.Enter)
	}
	return fmt.Errorf("unsupported action %s", st.Action)
}

// downloadReport clicks the report link and waits for the browser to
// finish writing the file, then reads and removes it.
func (d *RodDriver) downloadReport(s *Session, page *rod.Page) ([]byte, error) {
	dir, err := os.MkdirTemp(d.DownloadDir, "dl-"+s.id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wait := s.incog.Context(page.GetContext()).Timeout(d.timeout()).WaitDownload(dir)

	link, err := page.Timeout(d.timeout()).ElementX(ReportLinkXPath)
	if err != nil {
		return nil, fmt.Errorf("report link: %w", err)
	}
	if err := link.CancelTimeout().Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("click report link: %w", err)
	}

	info := wait()
	if info == nil || info.GUID == "" {
		return nil, ErrReportNotFound
	}
	data, err := os.ReadFile(filepath.Join(dir, info.GUID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportNotFound, err)
	}
	return data, nil
}
