// Package services contains application services for the finkeeper client.
// This file defines the authentication service: register, online and
// offline login, session resume and logout.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/cryptox"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
)

// ErrNoSession is returned by Resume and OfflineLogin when nothing is stored.
var ErrNoSession = credentials.ErrNoSession

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	Register(ctx context.Context, username string, password []byte) error
	OnlineLogin(ctx context.Context, username string, password []byte) error
	OfflineLogin(ctx context.Context, username string, password []byte) error
	Resume(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionStore persists the login session between CLI invocations.
type SessionStore interface {
	Load() (credentials.Session, error)
	Save(credentials.Session) error
	Clear() error
}

type authService struct {
	client   client.Client
	sessions SessionStore
	log      logging.Logger
}

func NewAuthService(c client.Client, sessions SessionStore, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{client: c, sessions: sessions, log: log.With("module", "auth")}
}

// Register creates a new account. A random salt and the verifier derived
// from the password are sent; the password itself never leaves the client.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	if err := a.client.Register(ctx, username, salt, verifier); err != nil {
		return err
	}
	a.log.Info(ctx, "user registered", "username", username)
	return nil
}

// OnlineLogin authenticates against the server and stores the session
// (username, salt, verifier, refresh token) in the keyring.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) error {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	if err := a.client.Login(ctx, username, verifier); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	sess := credentials.Session{
		Username:     username,
		Salt:         salt,
		Verifier:     verifier,
		RefreshToken: a.client.RefreshToken(),
	}
	if err := a.sessions.Save(sess); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}

// OfflineLogin checks the password against the stored verifier without
// contacting the server.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) error {
	sess, err := a.sessions.Load()
	if err != nil {
		return err
	}
	if sess.Username != username {
		return client.ErrUnauthorized
	}

	key := cryptox.DeriveMasterKey(password, sess.Salt)
	defer common.WipeByteArray(key)
	if !cryptox.VerifierEqual(sess.Verifier, cryptox.MakeVerifier(key)) {
		return client.ErrUnauthorized
	}
	return nil
}

// Resume restores the server session from the stored refresh token and
// returns the username. Transport failures are returned as is so callers can
// keep working offline.
func (a *authService) Resume(ctx context.Context) (string, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		return "", err
	}
	if err := a.client.Resume(ctx, sess.RefreshToken); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.log.Warn(ctx, "stored session rejected", "username", sess.Username)
		}
		return sess.Username, err
	}

	sess.RefreshToken = a.client.RefreshToken()
	if err := a.sessions.Save(sess); err != nil {
		a.log.Warn(ctx, "cannot persist refreshed session", "error", err)
	}
	return sess.Username, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.Logout()
	return a.sessions.Clear()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
