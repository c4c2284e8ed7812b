// Package artifacts turns raw artifact content into a published, shareable
// object: write locally, upload, grant public read, fetch the link, and
// always remove the local copy.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// ErrPublishFailed wraps any failure of a publish step.
var ErrPublishFailed = errors.New("publish failed")

// ObjectStore is the remote store artifacts are uploaded to. Implementations
// upload into their configured container (folder or bucket).
type ObjectStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, name string, mime domain.MimeKind) (remoteID string, err error)
	SetPublicRead(ctx context.Context, remoteID string) error
	Link(ctx context.Context, remoteID string) (string, error)
}

// Pipeline publishes artifacts through a local scratch directory.
type Pipeline struct {
	Store ObjectStore
	Dir   string
	Now   func() time.Time
	// Suffix returns a collision-free tag appended to local file names.
	Suffix func() string
	// Observe, when set, receives the duration of every publish call.
	Observe func(mime domain.MimeKind, d time.Duration, err error)
}

// NewPipeline returns a pipeline writing scratch files under dir.
func NewPipeline(store ObjectStore, dir string) *Pipeline {
	return &Pipeline{Store: store, Dir: dir, Now: time.Now}
}

// Publish writes content to a local file derived from name, uploads it, makes
// it publicly readable and returns its remote id and link. The local file is
// removed before Publish returns, whatever the outcome.
func (p *Pipeline) Publish(ctx context.Context, content []byte, name string, mime domain.MimeKind) (res domain.UploadResult, err error) {
	tr := otel.Tracer("artifacts/Pipeline")
	ctx, span := tr.Start(ctx, "Publish", trace.WithAttributes(
		attribute.String("artifact.name", name),
		attribute.String("artifact.mime", string(mime)),
		attribute.Int("artifact.bytes", len(content)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		if p.Observe != nil {
			p.Observe(mime, time.Since(start), err)
		}
	}()

	lg := zerolog.Ctx(ctx).With().Str("artifact", name).Str("mime", string(mime)).Logger()

	art, err := p.writeLocal(content, name, mime)
	if err != nil {
		return res, fmt.Errorf("%w: write local: %w", ErrPublishFailed, err)
	}
	defer func() {
		if rerr := os.Remove(art.LocalPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			lg.Warn().Err(rerr).Str("path", art.LocalPath).Msg("remove local artifact")
			return
		}
		lg.Debug().Str("path", art.LocalPath).Msg("local artifact removed")
	}()
	lg.Debug().Str("path", art.LocalPath).Msg("local artifact written")

	f, err := os.Open(art.LocalPath)
	if err != nil {
		return res, fmt.Errorf("%w: open local: %w", ErrPublishFailed, err)
	}
	defer f.Close()

	remoteID, err := p.Store.Upload(ctx, f, int64(len(content)), filepath.Base(art.LocalPath), mime)
	if err != nil {
		return res, fmt.Errorf("%w: upload: %w", ErrPublishFailed, err)
	}
	if err := p.Store.SetPublicRead(ctx, remoteID); err != nil {
		return res, fmt.Errorf("%w: set public read %s: %w", ErrPublishFailed, remoteID, err)
	}
	link, err := p.Store.Link(ctx, remoteID)
	if err != nil {
		return res, fmt.Errorf("%w: link %s: %w", ErrPublishFailed, remoteID, err)
	}

	lg.Info().Str("remote_id", remoteID).Str("link", link).Msg("artifact published")
	return domain.UploadResult{RemoteID: remoteID, Link: link}, nil
}

// LocalName returns the scratch file name for an artifact:
// <name>_<YYYYmmdd_HHMMSS>_<suffix><ext>.
func LocalName(name string, mime domain.MimeKind, at time.Time, suffix string) string {
	return fmt.Sprintf("%s_%s_%s%s", name, at.Format("20060102_150405"), suffix, mime.Ext())
}

func (p *Pipeline) writeLocal(content []byte, name string, mime domain.MimeKind) (domain.Artifact, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	suffix := p.Suffix
	if suffix == nil {
		suffix = func() string { return uuid.NewString()[:8] }
	}
	dir := p.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Artifact{}, err
	}

	path := filepath.Join(dir, LocalName(name, mime, now(), suffix()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return domain.Artifact{}, err
	}
	if _, err := io.Copy(f, bytes.NewReader(content)); err != nil {
		f.Close()
		_ = os.Remove(path)
		return domain.Artifact{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return domain.Artifact{}, err
	}
	return domain.Artifact{LocalPath: path, Mime: mime, OwnerID: name}, nil
}
