package auth

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var sessionCookiePattern = regexp.MustCompile(`(?i)sessionid=([^;\s]+)`)

// ParseSessionFile extracts the session id from the contents of a session
// file: either a cookie string containing sessionid=VALUE, or a bare value on
// the first non-empty line. Values shorter than MinSessionLength are rejected.
func ParseSessionFile(raw string) (string, error) {
	var value string
	if m := sessionCookiePattern.FindStringSubmatch(raw); m != nil {
		value = m[1]
	} else {
		for _, line := range strings.Split(raw, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				value = line
				break
			}
		}
	}

	if len(value) < MinSessionLength {
		return "", fmt.Errorf("%w: session file value too short", ErrInvalidCredentials)
	}
	return value, nil
}

// SessionFileStore reads a session from a plain text file such as
// IG_SESSIONID.txt. It is read-only.
type SessionFileStore struct {
	path string
}

// NewSessionFileStore creates a store over path
func NewSessionFileStore(path string) *SessionFileStore {
	return &SessionFileStore{path: path}
}

// Path returns the session file location
func (s *SessionFileStore) Path() string {
	return s.path
}

// Store is not supported; the file is maintained by hand
func (s *SessionFileStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve parses the file. Like the environment, the file holds a single
// session returned under any label.
func (s *SessionFileStore) Retrieve(label string) (*Credential, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to stat session file: %w", err)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	sessionID, err := ParseSessionFile(string(raw))
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = "file"
	}
	return &Credential{Label: label, SessionID: sessionID, LastModified: info.ModTime()}, nil
}

// List returns the file's session if it parses
func (s *SessionFileStore) List() ([]*Credential, error) {
	cred, err := s.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported; the file is maintained by hand
func (s *SessionFileStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the file holds an acceptable session
func (s *SessionFileStore) Exists(label string) bool {
	_, err := s.Retrieve(label)
	return err == nil
}
