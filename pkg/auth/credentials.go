package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// MinSessionLength is the shortest value accepted as a session id.
const MinSessionLength = 20

// DefaultLabel names the credential used when none is given.
const DefaultLabel = "default"

// Credential is a stored session for the target service
type Credential struct {
	Label        string    `json:"label"`
	SessionID    string    `json:"session_id"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks that the credential carries a usable session id
func (c *Credential) Validate() error {
	if c == nil {
		return ErrInvalidCredentials
	}
	if strings.TrimSpace(c.Label) == "" {
		return errors.New("label is required")
	}
	if len(strings.TrimSpace(c.SessionID)) < MinSessionLength {
		return fmt.Errorf("%w: session ID must be at least %d characters", ErrInvalidCredentials, MinSessionLength)
	}
	return nil
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential under its label
	Store(cred *Credential) error

	// Retrieve gets the credential for a label
	Retrieve(label string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a label
	Delete(label string) error

	// Exists checks if a credential exists for a label
	Exists(label string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager over the keychain, an encrypted
// file, the environment and the session file at sessionFile, in that order.
func NewManager(sessionFile string) (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	if sessionFile != "" {
		stores = append(stores, NewSessionFileStore(sessionFile))
	}

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential using the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	cred.SessionID = strings.TrimSpace(cred.SessionID)
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets a credential from the first store that has it. The
// environment and session file stores answer for any label, so they act as
// fallbacks behind the labelled stores.
func (m *Manager) Retrieve(label string) (*Credential, error) {
	if label == "" {
		label = DefaultLabel
	}
	for _, store := range m.stores {
		if cred, err := store.Retrieve(label); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, label)
}

// List returns all stored credentials from all stores
func (m *Manager) List() ([]*Credential, error) {
	byLabel := make(map[string]*Credential)
	var order []string

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			existing, ok := byLabel[cred.Label]
			if !ok {
				order = append(order, cred.Label)
			}
			// Use the most recently modified version
			if !ok || cred.LastModified.After(existing.LastModified) {
				byLabel[cred.Label] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(order))
	for _, label := range order {
		result = append(result, byLabel[label])
	}
	return result, nil
}

// Delete removes a credential from all stores
func (m *Manager) Delete(label string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(label)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrStoreUnavailable):
			// read-only store
		default:
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, label)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igharvest")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igharvest")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igharvest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igharvest")
		}
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeCredential returns a copy with the session id masked
func SanitizeCredential(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}

	return &Credential{
		Label:        cred.Label,
		SessionID:    MaskString(cred.SessionID),
		UserAgent:    cred.UserAgent,
		LastModified: cred.LastModified,
	}
}

// MaskString masks all but the first 4 and last 4 characters of a string
func MaskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
