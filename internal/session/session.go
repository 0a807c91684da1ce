// Package session is the board's auth provider: it signs admins in with
// email and password, holds the resulting token, and notifies observers
// whenever the signed-in user changes.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

const invalidCredentialsMsg = "Invalid email or password. Please try again."

// Provider holds one signed-in session.
type Provider struct {
	db     *sql.DB
	secret string

	mu        sync.Mutex
	token     string
	claims    *auth.Claims
	observers map[int]func(*auth.Claims)
	nextID    int
}

// New returns a signed-out Provider.
func New(db *sql.DB, secret string) *Provider {
	return &Provider{
		db:        db,
		secret:    secret,
		observers: make(map[int]func(*auth.Claims)),
	}
}

// Login checks credentials and issues a token without touching any
// session state. HTTP handlers use it directly.
func Login(ctx context.Context, db *sql.DB, secret, email, password string) (string, *model.User, error) {
	if email == "" || password == "" {
		return "", nil, model.Errorf(model.KindInvalidInput, "Please enter both email and password.")
	}

	user, err := store.GetUserByEmail(ctx, db, email)
	if err != nil {
		return "", nil, model.Wrap(model.KindUnavailable, "Sign-in is temporarily unavailable. Please try again.", err)
	}
	if user == nil {
		return "", nil, model.Errorf(model.KindPermissionDenied, invalidCredentialsMsg)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed", "email", email)
		return "", nil, model.Errorf(model.KindPermissionDenied, invalidCredentialsMsg)
	}

	token, err := auth.GenerateToken(secret, user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("generating token: %w", err)
	}
	return token, user, nil
}

// Verify validates a token and rejects revoked ones.
func Verify(ctx context.Context, db *sql.DB, secret, token string) (*auth.Claims, error) {
	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		return nil, model.Wrap(model.KindPermissionDenied, "Your session is invalid. Please sign in again.", err)
	}
	if claims.ID != "" {
		revoked, err := store.IsTokenRevoked(ctx, db, claims.ID)
		if err != nil {
			return nil, model.Wrap(model.KindUnavailable, "Sign-in is temporarily unavailable. Please try again.", err)
		}
		if revoked {
			return nil, model.Errorf(model.KindPermissionDenied, "Your session has ended. Please sign in again.")
		}
	}
	return claims, nil
}

// Revoke invalidates a token's JTI until it would have expired anyway.
func Revoke(ctx context.Context, db *sql.DB, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	expires := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(ctx, db, claims.ID, expires); err != nil {
		return model.Wrap(model.KindUnavailable, "Error signing out.", err)
	}
	return nil
}

// SignIn authenticates and makes the user current. Observers run after the
// state has changed.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*auth.Claims, error) {
	token, user, err := Login(ctx, p.db, p.secret, email, password)
	if err != nil {
		return nil, err
	}

	claims, err := auth.ValidateToken(p.secret, token)
	if err != nil {
		return nil, fmt.Errorf("validating new token: %w", err)
	}

	p.mu.Lock()
	p.token = token
	p.claims = claims
	p.mu.Unlock()

	slog.Info("user signed in", "email", user.Email, "role", user.Role)
	p.notify(claims)
	return claims, nil
}

// SignOut revokes the current token and clears the session.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	claims := p.claims
	p.mu.Unlock()
	if claims == nil {
		return nil
	}

	if err := Revoke(ctx, p.db, claims); err != nil {
		return err
	}

	p.mu.Lock()
	p.token = ""
	p.claims = nil
	p.mu.Unlock()

	slog.Info("user signed out", "email", claims.Email)
	p.notify(nil)
	return nil
}

// CurrentUser returns the signed-in user's claims, or nil. An expired
// token counts as signed out.
func (p *Provider) CurrentUser() *auth.Claims {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claims == nil {
		return nil
	}
	if p.claims.ExpiresAt != nil && time.Now().After(p.claims.ExpiresAt.Time) {
		return nil
	}
	return p.claims
}

// Token returns the raw token of the current session.
func (p *Provider) Token() string {
	if p.CurrentUser() == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Context attaches the current user's claims to ctx for store
// authorization. A signed-out session returns ctx unchanged.
func (p *Provider) Context(ctx context.Context) context.Context {
	if claims := p.CurrentUser(); claims != nil {
		return auth.NewContext(ctx, claims)
	}
	return ctx
}

// OnAuthStateChanged calls fn with the current user right away and again
// after every sign-in and sign-out. The returned func unregisters fn.
func (p *Provider) OnAuthStateChanged(fn func(*auth.Claims)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	fn(p.CurrentUser())

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(claims *auth.Claims) {
	p.mu.Lock()
	fns := make([]func(*auth.Claims), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(claims)
	}
}
