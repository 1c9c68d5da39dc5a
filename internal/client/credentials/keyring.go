// Package credentials keeps the login session in the OS keyring.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const sessionAccount = "session"

var ErrNoSession = errors.New("no stored session")

// Session is what the CLI needs to resume without a password and to verify
// a password while offline.
type Session struct {
	Username     string `json:"username"`
	Salt         []byte `json:"salt"`
	Verifier     []byte `json:"verifier"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Keyring abstracts the secret store so tests can swap it.
type Keyring interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

type systemKeyring struct{}

func (systemKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (systemKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

type Store struct {
	service string
	ring    Keyring
}

type Option func(*Store)

func WithKeyring(k Keyring) Option {
	return func(s *Store) { s.ring = k }
}

// NewStore returns a Store backed by the OS keyring under service.
func NewStore(service string, opts ...Option) *Store {
	s := &Store{service: service, ring: systemKeyring{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Load() (Session, error) {
	raw, err := s.ring.Get(s.service, sessionAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("keyring get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *Store) Save(sess Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.ring.Set(s.service, sessionAccount, string(b)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// SetRefreshToken replaces the refresh token of the stored session. It is a
// no-op when no session is stored.
func (s *Store) SetRefreshToken(token string) error {
	sess, err := s.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	sess.RefreshToken = token
	return s.Save(sess)
}

// Clear removes the stored session. A missing session is not an error.
func (s *Store) Clear() error {
	err := s.ring.Delete(s.service, sessionAccount)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
