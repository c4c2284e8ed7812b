// Package storage implements the remote object stores artifacts are
// published to: Google Drive (folder + "anyone with the link" permission)
// and MinIO/S3 (bucket + tag-gated public-read policy).
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// DriveStore uploads into a Drive folder (shared drives supported).
type DriveStore struct {
	svc      *drive.Service
	folderID string

	mu    sync.Mutex
	links map[string]string // remote id -> webViewLink from Create
}

// NewDriveStore builds a Drive client on top of an authorized HTTP client.
// Extra options are appended (tests point the endpoint at a fake server).
func NewDriveStore(ctx context.Context, client *http.Client, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("init drive client: %w", err)
	}
	return &DriveStore{svc: svc, folderID: folderID, links: map[string]string{}}, nil
}

// Upload creates the file and returns its Drive id.
func (d *DriveStore) Upload(ctx context.Context, r io.Reader, _ int64, name string, mime domain.MimeKind) (string, error) {
	meta := &drive.File{Name: name, MimeType: string(mime)}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}
	f, err := d.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(string(mime))).
		Fields("id, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive create %s: %w", name, err)
	}
	if f.WebViewLink != "" {
		d.mu.Lock()
		d.links[f.Id] = f.WebViewLink
		d.mu.Unlock()
	}
	return f.Id, nil
}

// SetPublicRead grants "anyone with the link" reader access.
func (d *DriveStore) SetPublicRead(ctx context.Context, remoteID string) error {
	_, err := d.svc.Permissions.Create(remoteID, &drive.Permission{Type: "anyone", Role: "reader"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive permission %s: %w", remoteID, err)
	}
	return nil
}

// Link returns the file's webViewLink.
func (d *DriveStore) Link(ctx context.Context, remoteID string) (string, error) {
	d.mu.Lock()
	link, ok := d.links[remoteID]
	delete(d.links, remoteID)
	d.mu.Unlock()
	if ok {
		return link, nil
	}

	f, err := d.svc.Files.Get(remoteID).
		Fields("webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive get %s: %w", remoteID, err)
	}
	if f.WebViewLink == "" {
		return "", fmt.Errorf("drive get %s: no webViewLink", remoteID)
	}
	return f.WebViewLink, nil
}
