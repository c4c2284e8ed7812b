// Package credentials supplies an authorized HTTP client for Google Drive
// from an installed-app OAuth client file and a cached user token. Refreshed
// tokens are written back to the token file.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// ErrReauthRequired means no usable token is cached; run the auth command.
var ErrReauthRequired = errors.New("oauth token missing or revoked; re-authorization required")

// Provider loads OAuth client settings and the cached token.
type Provider struct {
	CredentialsFile string
	TokenFile       string
	Scopes          []string

	mu  sync.Mutex
	cfg *oauth2.Config
}

// NewProvider returns a provider for the Drive scope.
func NewProvider(credentialsFile, tokenFile string) *Provider {
	return &Provider{
		CredentialsFile: credentialsFile,
		TokenFile:       tokenFile,
		Scopes:          []string{drive.DriveScope},
	}
}

// Config parses the OAuth client file once.
func (p *Provider) Config() (*oauth2.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg != nil {
		return p.cfg, nil
	}
	raw, err := os.ReadFile(p.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(raw, p.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client file: %w", err)
	}
	p.cfg = cfg
	return cfg, nil
}

// TokenSource returns a refreshing token source seeded from the token file.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(p.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrReauthRequired
	}
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, ErrReauthRequired
	}
	base := cfg.TokenSource(ctx, tok)
	return oauth2.ReuseTokenSource(tok, &persistingSource{base: base, path: p.TokenFile, last: tok.AccessToken}), nil
}

// Client returns an HTTP client that authorizes requests.
func (p *Provider) Client(ctx context.Context) (*http.Client, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// AuthCodeURL is the consent URL for the offline-access authorization flow.
func (p *Provider) AuthCodeURL(state string) (string, error) {
	cfg, err := p.Config()
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for a token and caches it.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if err := SaveToken(p.TokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// LoadToken reads a JSON-encoded token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok atomically with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".token-*")
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := json.NewEncoder(tmp).Encode(tok); err != nil {
		tmp.Close()
		return fmt.Errorf("encode token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// persistingSource saves every newly minted token. It sits under
// oauth2.ReuseTokenSource, so it only runs when a refresh is needed.
type persistingSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("persist refreshed oauth token")
		} else {
			s.last = tok.AccessToken
		}
	}
	return tok, nil
}
