package domain

// MimeKind is the content type an artifact is tagged with in the object store.
type MimeKind string

const (
	MimeHTML MimeKind = "text/html"
	MimePDF  MimeKind = "application/pdf"
	MimePNG  MimeKind = "image/png"
)

// Ext returns the file extension (with dot) used for local copies.
func (m MimeKind) Ext() string {
	switch m {
	case MimeHTML:
		return ".html"
	case MimePDF:
		return ".pdf"
	case MimePNG:
		return ".png"
	default:
		return ".bin"
	}
}

// Artifact is a locally materialized payload awaiting upload. It never
// outlives the publish call that created it.
type Artifact struct {
	LocalPath string
	Mime      MimeKind
	OwnerID   string
}

// UploadResult is what the object store hands back for a published artifact.
type UploadResult struct {
	RemoteID string `json:"remote_id"`
	Link     string `json:"link"`
}

// SessionHandle identifies one live automated portal session.
type SessionHandle interface {
	ID() string
}
