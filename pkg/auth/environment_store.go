package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// sessionFromEnv prefers IGHARVEST_SESSION_ID over the legacy IG_SESSIONID
func sessionFromEnv() string {
	if id := os.Getenv("IGHARVEST_SESSION_ID"); id != "" {
		return id
	}
	return os.Getenv("IG_SESSIONID")
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets the session from environment variables. The environment
// holds a single session, returned under whatever label is asked for.
func (e *EnvironmentStore) Retrieve(label string) (*Credential, error) {
	sessionID := sessionFromEnv()
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}
	if label == "" {
		label = "environment"
	}

	return &Credential{
		Label:        label,
		SessionID:    sessionID,
		UserAgent:    os.Getenv("IGHARVEST_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if the environment has one
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment session is set
func (e *EnvironmentStore) Exists(label string) bool {
	return sessionFromEnv() != ""
}
