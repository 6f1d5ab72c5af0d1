// Package sessionfile handles reading and writing the kiosk session file.
// The session file stores the OAuth2-style token pair alongside the owner
// identity and origin server. It is the only durable state the resilience
// core requires, kept in one file so readers never observe a partial session.
package sessionfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts the session file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the session directory.
const DirPerms = 0o700

// Session is the durable credential bundle. Token carries the access token,
// refresh token, and expiry; Owner and Origin identify who the session
// belongs to and which server issued it.
type Session struct {
	Token  *oauth2.Token `json:"token"`
	Owner  string        `json:"owner"`
	Origin string        `json:"origin"`
}

// Valid reports whether the session's access token has not yet expired.
// It does not consult the authority; callers use Validate for that.
func (s *Session) Valid() bool {
	return s.Token != nil && s.Token.Valid()
}

// Store persists a single Session at a fixed path. All methods are
// synchronous and touch nothing but the file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file location.
func (st *Store) Path() string {
	return st.path
}

// Load reads the saved session from disk. Returns (nil, nil) if no session
// file exists. A file without a token is corrupt and returns an error —
// re-login is required.
func (st *Store) Load() (*Session, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("sessionfile: reading %s: %w", st.path, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("sessionfile: decoding %s: %w", st.path, err)
	}

	if s.Token == nil {
		return nil, fmt.Errorf("sessionfile: %s missing token field (re-login required)", st.path)
	}

	return &s, nil
}

// Save writes the session to disk atomically (write-to-temp + rename) with
// 0600 permissions. Never logs token values.
func (st *Store) Save(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionfile: encoding: %w", err)
	}

	dir := filepath.Dir(st.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("sessionfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("sessionfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial session file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sessionfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, st.path); err != nil {
		return fmt.Errorf("sessionfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Clear removes the session file. Returns nil if the file does not exist
// (already cleared).
func (st *Store) Clear() error {
	err := os.Remove(st.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("sessionfile: removing %s: %w", st.path, err)
	}

	return nil
}
