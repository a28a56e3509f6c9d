// Package session keeps the signed-in user of the command line client in the local cache.
package session

import (
	"context"
	"strings"
	"time"

	"checkclass/internal/apiclient"
	"checkclass/internal/cache"
	"checkclass/internal/domain"
)

// Authenticator exchanges credentials for tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (apiclient.Login, error)
}

// Current is the persisted sign-in.
type Current struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

// Principal returns the signed-in user as an operation caller.
func (c Current) Principal() domain.Principal {
	return domain.Principal{UserID: c.User.ID, Name: c.User.Name, Role: c.User.Role}
}

// Manager signs users in and out.
type Manager struct {
	cache cache.Cache
	auth  Authenticator
	now   func() time.Time
}

func New(c cache.Cache, auth Authenticator) *Manager {
	return &Manager{cache: c, auth: auth, now: time.Now}
}

// Login authenticates and persists the session. A failed login keeps the previous session.
func (m *Manager) Login(ctx context.Context, email, password string) (Current, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Current{}, domain.Invalid("email and password are required")
	}
	l, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return Current{}, err
	}
	cur := Current{User: l.User, AccessToken: l.AccessToken, RefreshToken: l.RefreshToken, ExpiresAt: l.Expires()}
	if err := m.cache.Set(ctx, cache.KeyCurrentUser, cur); err != nil {
		return Current{}, domain.Persistence("could not save session", err)
	}
	return cur, nil
}

// Logout forgets the signed-in user. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.cache.Delete(ctx, cache.KeyCurrentUser); err != nil {
		return domain.Persistence("could not clear session", err)
	}
	return nil
}

// Current returns the signed-in user. Expired sessions count as signed out.
func (m *Manager) Current(ctx context.Context) (Current, error) {
	var cur Current
	ok, err := m.cache.Get(ctx, cache.KeyCurrentUser, &cur)
	if err != nil {
		return Current{}, domain.Persistence("could not read session", err)
	}
	if !ok || cur.AccessToken == "" {
		return Current{}, domain.Unauthenticated("not signed in, run login first")
	}
	if !cur.ExpiresAt.IsZero() && m.now().After(cur.ExpiresAt) {
		return Current{}, domain.Unauthenticated("session expired, run login again")
	}
	return cur, nil
}

// View resolves the screen the current user may open. Without a session it is the login view.
func (m *Manager) View(ctx context.Context, requested domain.View) domain.View {
	cur, err := m.Current(ctx)
	if err != nil {
		return domain.ViewLogin
	}
	return domain.Gate(cur.User.Role, requested)
}
