// Package session derives the signed-in state from the stored bearer token and
// gates the local shells on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/settings"
)

// ErrCredentialsRequired is returned when a login is attempted with a blank
// username or password.
var ErrCredentialsRequired = errors.New("username and password are required")

// State is the current authentication state.
type State struct {
	Authenticated bool
	Username      string
	// ExpiresAt is zero when the token carries no expiry.
	ExpiresAt time.Time
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (backend.LoginResult, error)
}

// GateConfig holds configuration for the Gate.
type GateConfig struct {
	Store  *settings.Store
	Client Authenticator
	Logger zerolog.Logger

	// Now overrides the clock (optional).
	Now func() time.Time
}

// Gate answers "is the user signed in" from the stored token.
type Gate struct {
	store  *settings.Store
	client Authenticator
	logger zerolog.Logger
	now    func() time.Time
}

// NewGate creates a new Gate.
func NewGate(cfg GateConfig) *Gate {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{
		store:  cfg.Store,
		client: cfg.Client,
		logger: cfg.Logger,
		now:    now,
	}
}

// Current returns the authentication state for the stored token.
func (g *Gate) Current() State {
	snap := g.store.Snapshot()
	state := Inspect(snap.Token, g.now())
	if state.Authenticated && state.Username == "" {
		state.Username = snap.Username
	}
	return state
}

// Login authenticates against the backend and stores the token.
func (g *Gate) Login(ctx context.Context, username, password string) (State, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return State{}, ErrCredentialsRequired
	}

	res, err := g.client.Login(ctx, username, password)
	if err != nil {
		return State{}, fmt.Errorf("login: %w", err)
	}

	if err := g.store.Update(ctx, func(s *settings.Settings) {
		s.Token = res.Token
		s.Username = res.Username
	}); err != nil {
		return State{}, err
	}

	g.logger.Info().Str("username", res.Username).Msg("signed in")
	return g.Current(), nil
}

// Logout clears the stored token and username.
func (g *Gate) Logout(ctx context.Context) error {
	return g.store.Update(ctx, func(s *settings.Settings) {
		s.Token = ""
		s.Username = ""
	})
}

// Middleware passes requests through only while signed in; otherwise deny
// handles the request.
func (g *Gate) Middleware(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.Current().Authenticated {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Inspect reads the claims of token without verifying its signature. The
// backend is the authority on validity; this only decides what to show.
// Tokens that are not JWTs are accepted as opaque with no expiry.
func Inspect(token string, now time.Time) State {
	token = strings.TrimSpace(token)
	if token == "" {
		return State{}
	}
	if strings.Count(token, ".") != 2 {
		return State{Authenticated: true}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return State{}
	}

	state := State{Authenticated: true}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		state.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return State{}
		}
	}
	if name, ok := claims["username"].(string); ok && name != "" {
		state.Username = name
	} else if sub, err := claims.GetSubject(); err == nil {
		state.Username = sub
	}
	return state
}
