// Package services contains the client-side application services: the
// authenticated session the entity stores are bound to, and attachment
// transfer for interactions.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// refreshLeeway is how close to expiry an access token may get before
// AccessToken trades the refresh token for a new pair.
const refreshLeeway = 10 * time.Second

// ErrNotLoggedIn is returned by AccessToken when there is no session.
var ErrNotLoggedIn = fmt.Errorf("not logged in: %w", common.ErrorUnauthorized)

// AuthAPI is the slice of the HTTP client the session needs.
type AuthAPI interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (common.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (common.TokenPair, error)
	Ping(ctx context.Context) error
	Close() error
}

// AuthService owns the current session. It implements store.Session, so
// stores bound to it are refreshed on login and reset on logout.
type AuthService struct {
	api  AuthAPI
	repo metadata.Repository
	log  logging.Logger
	now  func() time.Time

	// refreshMu serializes token refreshes so concurrent callers of
	// AccessToken trade the refresh token once.
	refreshMu sync.Mutex

	mu        sync.Mutex
	username  string
	userID    string
	access    string
	accessExp time.Time
	refresh   string
	subs      map[int]func(context.Context, store.AuthEvent)
	nextSub   int
}

var _ store.Session = (*AuthService)(nil)

func NewAuthService(api AuthAPI, repo metadata.Repository, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{
		api:  api,
		repo: repo,
		log:  log.With("module", "auth"),
		now:  time.Now,
		subs: make(map[int]func(context.Context, store.AuthEvent)),
	}
}

func (a *AuthService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required: %w", common.ErrValidation)
	}
	if err := a.api.Register(ctx, username, password); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

// Login authenticates against the server and persists the session so that
// Resume can restore it after a restart.
func (a *AuthService) Login(ctx context.Context, username, password string) error {
	pair, err := a.api.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	return a.establish(ctx, username, pair)
}

// Resume restores a persisted session by trading the saved refresh token.
// It reports false when nothing was saved. A rejected token wipes the
// saved session.
func (a *AuthService) Resume(ctx context.Context) (bool, error) {
	saved, err := a.repo.List(ctx)
	if err != nil {
		return false, fmt.Errorf("read session: %w", err)
	}
	token := string(saved[metadata.KeyRefreshToken])
	if token == "" {
		return false, nil
	}

	pair, err := a.api.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			a.log.Info(ctx, "saved session rejected, clearing")
			if derr := a.repo.Delete(ctx, sessionKeys...); derr != nil {
				a.log.Warn(ctx, "clear saved session failed", "error", derr)
			}
		}
		return false, fmt.Errorf("resume session: %w", err)
	}
	if err := a.establish(ctx, string(saved[metadata.KeyUsername]), pair); err != nil {
		return false, err
	}
	return true, nil
}

// Logout forgets the session locally and in the metadata store.
func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	was := a.userID
	a.username, a.userID, a.access, a.refresh = "", "", "", ""
	a.accessExp = time.Time{}
	a.mu.Unlock()

	err := a.repo.Delete(ctx, sessionKeys...)
	if was != "" {
		a.log.Info(ctx, "logged out", "user_id", was)
		a.emit(ctx, store.AuthEvent{Authenticated: false})
	}
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (a *AuthService) UserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID
}

func (a *AuthService) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username
}

// AccessToken returns a bearer token for the API, refreshing the pair when
// the current one expires within refreshLeeway.
func (a *AuthService) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := a.freshToken(); ok {
		return tok, nil
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if tok, ok := a.freshToken(); ok {
		return tok, nil
	}

	a.mu.Lock()
	username, refresh := a.username, a.refresh
	a.mu.Unlock()
	if refresh == "" {
		return "", ErrNotLoggedIn
	}

	pair, err := a.api.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			_ = a.Logout(ctx)
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if err := a.establish(ctx, username, pair); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.access, nil
}

func (a *AuthService) freshToken() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.access == "" {
		return "", false
	}
	return a.access, a.accessExp.Sub(a.now()) > refreshLeeway
}

// Subscribe registers fn for login and logout transitions.
func (a *AuthService) Subscribe(fn func(ctx context.Context, ev store.AuthEvent)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

func (a *AuthService) Close(ctx context.Context) error {
	return a.api.Close()
}

var sessionKeys = []string{metadata.KeyUsername, metadata.KeyUserID, metadata.KeyRefreshToken}

// establish installs pair as the current session, persists it and emits a
// login event when the user changed.
func (a *AuthService) establish(ctx context.Context, username string, pair common.TokenPair) error {
	userID, exp, err := parseAccessToken(pair.AccessToken)
	if err != nil {
		return err
	}

	if err := a.repo.SetMany(ctx, map[string][]byte{
		metadata.KeyUsername:     []byte(username),
		metadata.KeyUserID:       []byte(userID),
		metadata.KeyRefreshToken: []byte(pair.RefreshToken),
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	a.mu.Lock()
	changed := a.userID != userID
	a.username, a.userID = username, userID
	a.access, a.accessExp, a.refresh = pair.AccessToken, exp, pair.RefreshToken
	a.mu.Unlock()

	if changed {
		a.log.Info(ctx, "logged in", "user_id", userID, "username", username)
		a.emit(ctx, store.AuthEvent{Authenticated: true, UserID: userID})
	}
	return nil
}

func (a *AuthService) emit(ctx context.Context, ev store.AuthEvent) {
	a.mu.Lock()
	fns := make([]func(context.Context, store.AuthEvent), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}

// parseAccessToken reads sub and exp without verifying the signature; the
// server verifies it on every call.
func parseAccessToken(token string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, fmt.Errorf("parse access token: %w", common.ErrInvalidToken)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, fmt.Errorf("access token lacks sub or exp: %w", common.ErrInvalidToken)
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}
