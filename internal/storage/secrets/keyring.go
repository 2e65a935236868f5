package secrets

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zalando/go-keyring"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

// SaveError is returned when a secret could not be written to the keyring
type SaveError struct {
	ConnectionID int64
	Err          error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save api key for connection %d: %v", e.ConnectionID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Store keeps connection API keys in the OS keyring, keyed by connection id
type Store struct {
	service string
}

// New creates a store that files secrets under service
func New(service string) *Store {
	return &Store{service: service}
}

func (s *Store) Save(id int64, apiKey string) error {
	if apiKey == "" {
		// Don't keep empty keys around
		return s.Delete(id)
	}
	if err := keyring.Set(s.service, makeKey(id), apiKey); err != nil {
		return &SaveError{ConnectionID: id, Err: err}
	}
	return nil
}

// Get returns models.ErrSecretNotFound when nothing is stored for id
func (s *Store) Get(id int64) (string, error) {
	v, err := keyring.Get(s.service, makeKey(id))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", models.ErrSecretNotFound
		}
		return "", fmt.Errorf("failed to read api key from keyring: %w", err)
	}
	return v, nil
}

func (s *Store) Delete(id int64) error {
	err := keyring.Delete(s.service, makeKey(id))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete api key from keyring: %w", err)
	}
	return nil
}

func makeKey(id int64) string {
	return "connection:" + strconv.FormatInt(id, 10)
}
