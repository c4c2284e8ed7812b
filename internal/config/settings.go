package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
)

// Keys used in the portal settings file.
const (
	keyLoginURL = "LOGIN_URL"
	keyUsername = "USERNAME"
	keyPassword = "PASSWORD"
	keyBaseURL  = "BASE_URL"
	keyHeadless = "HEADLESS"
)

// PortalSettings are the credentials and endpoints the browser driver uses to
// reach the third-party portal. Values are immutable once published.
type PortalSettings struct {
	LoginURL string `json:"LOGIN_URL" binding:"required,url"`
	Username string `json:"USERNAME"  binding:"required"`
	Password string `json:"PASSWORD"  binding:"required"`
	BaseURL  string `json:"BASE_URL"`
	Headless bool   `json:"HEADLESS"`
}

// SettingsStore holds the current PortalSettings snapshot. Load happens once
// at startup; afterwards the snapshot only changes through Update or Reload.
// Snapshot is lock-free and safe for concurrent use.
type SettingsStore struct {
	path    string
	current atomic.Pointer[PortalSettings]
	writeMu sync.Mutex
}

// OpenSettings reads path and returns a store holding its contents. A missing
// file yields an empty snapshot (the admin API can populate it later).
func OpenSettings(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticSettings returns a store that serves ps and never touches disk
// unless Update is called with a non-empty path.
func NewStaticSettings(ps PortalSettings) *SettingsStore {
	s := &SettingsStore{}
	s.current.Store(&ps)
	return s
}

// Snapshot returns the current settings.
func (s *SettingsStore) Snapshot() PortalSettings {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return PortalSettings{}
}

// Reload re-reads the settings file and swaps the snapshot.
func (s *SettingsStore) Reload() error {
	if s.path == "" {
		return nil
	}
	env, err := godotenv.Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.current.Store(&PortalSettings{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings %s: %w", s.path, err)
	}
	ps := fromEnv(env)
	s.current.Store(&ps)
	return nil
}

// Update persists ps (preserving unrelated keys already in the file) and
// publishes it as the new snapshot.
func (s *SettingsStore) Update(ps PortalSettings) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.path != "" {
		env, err := godotenv.Read(s.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read settings %s: %w", s.path, err)
		}
		if env == nil {
			env = map[string]string{}
		}
		for k, v := range toEnv(ps) {
			env[k] = v
		}
		if err := godotenv.Write(env, s.path); err != nil {
			return fmt.Errorf("write settings %s: %w", s.path, err)
		}
	}
	s.current.Store(&ps)
	return nil
}

func fromEnv(env map[string]string) PortalSettings {
	headless, _ := parseBool(env[keyHeadless])
	return PortalSettings{
		LoginURL: strings.TrimSpace(env[keyLoginURL]),
		Username: env[keyUsername],
		Password: env[keyPassword],
		BaseURL:  strings.TrimSpace(env[keyBaseURL]),
		Headless: headless,
	}
}

func toEnv(ps PortalSettings) map[string]string {
	headless := "False"
	if ps.Headless {
		headless = "True"
	}
	return map[string]string{
		keyLoginURL: ps.LoginURL,
		keyUsername: ps.Username,
		keyPassword: ps.Password,
		keyBaseURL:  ps.BaseURL,
		keyHeadless: headless,
	}
}
