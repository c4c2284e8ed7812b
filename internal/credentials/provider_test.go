package credentials

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// writeClientFile writes an installed-app client file whose token endpoint
// points at tokenURL.
func writeClientFile(t *testing.T, dir, tokenURL string) string {
	t.Helper()
	body := fmt.Sprintf(`{"installed":{
		"client_id":"cid.apps.googleusercontent.com",
		"client_secret":"shh",
		"auth_uri":"https://accounts.example/o/oauth2/auth",
		"token_uri":%q,
		"redirect_uris":["http://localhost"]}}`, tokenURL)
	p := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func tokenServer(t *testing.T, hits *int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenSource_MissingTokenRequiresReauth(t *testing.T) {
	dir := t.TempDir()
	var hits int32
	srv := tokenServer(t, &hits, 200, `{}`)
	p := NewProvider(writeClientFile(t, dir, srv.URL), filepath.Join(dir, "token.json"))

	_, err := p.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrReauthRequired)

	_, err = p.Client(context.Background())
	assert.ErrorIs(t, err, ErrReauthRequired)
}

func TestTokenSource_ValidTokenNoRefresh(t *testing.T) {
	dir := t.TempDir()
	var hits int32
	srv := tokenServer(t, &hits, 200, `{}`)
	tokPath := filepath.Join(dir, "token.json")
	require.NoError(t, SaveToken(tokPath, &oauth2.Token{AccessToken: "live", Expiry: time.Now().Add(time.Hour)}))

	ts, err := NewProvider(writeClientFile(t, dir, srv.URL), tokPath).TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "live", tok.AccessToken)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestTokenSource_RefreshIsPersisted(t *testing.T) {
	dir := t.TempDir()
	var hits int32
	srv := tokenServer(t, &hits, 200, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	tokPath := filepath.Join(dir, "token.json")
	require.NoError(t, SaveToken(tokPath, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	ts, err := NewProvider(writeClientFile(t, dir, srv.URL), tokPath).TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	saved, err := LoadToken(tokPath)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "rt", saved.RefreshToken, "refresh token survives the refresh")

	info, err := os.Stat(tokPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTokenSource_RevokedRefreshToken(t *testing.T) {
	dir := t.TempDir()
	var hits int32
	srv := tokenServer(t, &hits, 400, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
	tokPath := filepath.Join(dir, "token.json")
	require.NoError(t, SaveToken(tokPath, &oauth2.Token{AccessToken: "stale", RefreshToken: "rt", Expiry: time.Now().Add(-time.Hour)}))

	ts, err := NewProvider(writeClientFile(t, dir, srv.URL), tokPath).TokenSource(context.Background())
	require.NoError(t, err)
	_, err = ts.Token()
	assert.ErrorIs(t, err, ErrReauthRequired)
}

func TestExpiredTokenWithoutRefreshRequiresReauth(t *testing.T) {
	dir := t.TempDir()
	var hits int32
	srv := tokenServer(t, &hits, 200, `{}`)
	tokPath := filepath.Join(dir, "token.json")
	require.NoError(t, SaveToken(tokPath, &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Minute)}))

	_, err := NewProvider(writeClientFile(t, dir, srv.URL), tokPath).TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrReauthRequired)
}

func TestExchangeAndAuthURL(t *testing.T) {
	dir := t.TempDir()
	var hits int32
	srv := tokenServer(t, &hits, 200, `{"access_token":"a1","refresh_token":"r1","token_type":"Bearer","expires_in":3600}`)
	tokPath := filepath.Join(dir, "token.json")
	p := NewProvider(writeClientFile(t, dir, srv.URL), tokPath)

	u, err := p.AuthCodeURL("st")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://accounts.example/o/oauth2/auth?"))
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "drive")

	tok, err := p.Exchange(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)

	saved, err := LoadToken(tokPath)
	require.NoError(t, err)
	assert.Equal(t, "r1", saved.RefreshToken)
}

func TestConfig_BadClientFile(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "nope.json"), "t.json")
	_, err := p.Config()
	assert.Error(t, err)
}
