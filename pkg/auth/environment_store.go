package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvEmail    = "QUICKPIC_EMAIL"
	EnvPassword = "QUICKPIC_PASSWORD"
)

// EnvironmentStore is a read-only CredentialStore backed by
// QUICKPIC_EMAIL and QUICKPIC_PASSWORD
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account when its email matches, or for
// any caller passing an empty email
func (e *EnvironmentStore) Retrieve(email string) (*Account, error) {
	envEmail := os.Getenv(EnvEmail)
	password := os.Getenv(EnvPassword)

	if envEmail == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}
	if email != "" && email != envEmail {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Email:        envEmail,
		Password:     password,
		LastModified: time.Time{},
	}, nil
}

// List returns a single account if the environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(email string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for email
func (e *EnvironmentStore) Exists(email string) bool {
	_, err := e.Retrieve(email)
	return err == nil
}
