package web

import (
	"context"
	"net/http"

	"github.com/erazemk/najdeno/internal/auth"
)

const pendingCookie = "pending_delete"

// pendingMaxAge bounds how long a parked resolve survives without a sign-in.
const pendingMaxAge = 60 * 60

// cookieSlot keeps the browser's parked resolve request in a cookie, so a
// request parked before sign-in is replayed by the login handler.
type cookieSlot struct {
	w  http.ResponseWriter
	id string
}

func newCookieSlot(w http.ResponseWriter, r *http.Request) *cookieSlot {
	s := &cookieSlot{w: w}
	if c, err := r.Cookie(pendingCookie); err == nil {
		s.id = c.Value
	}
	return s
}

func (s *cookieSlot) Park(id string) {
	s.id = id
	http.SetCookie(s.w, &http.Cookie{
		Name:     pendingCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   pendingMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *cookieSlot) Take() (string, bool) {
	id := s.id
	if id == "" {
		return "", false
	}
	s.id = ""
	http.SetCookie(s.w, &http.Cookie{
		Name:     pendingCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}

func (s *cookieSlot) Peek() (string, bool) {
	return s.id, s.id != ""
}

// requestAuth is the auth state of a single request. signIn notifies
// observers the way a long-lived session would.
type requestAuth struct {
	claims    *auth.Claims
	observers []func(*auth.Claims)
}

func (a *requestAuth) CurrentUser() *auth.Claims {
	return a.claims
}

func (a *requestAuth) Context(ctx context.Context) context.Context {
	if a.claims == nil {
		return ctx
	}
	return auth.NewContext(ctx, a.claims)
}

func (a *requestAuth) OnAuthStateChanged(fn func(*auth.Claims)) func() {
	a.observers = append(a.observers, fn)
	fn(a.claims)
	return func() { a.observers = nil }
}

func (a *requestAuth) signIn(claims *auth.Claims) {
	a.claims = claims
	for _, fn := range a.observers {
		fn(claims)
	}
}
