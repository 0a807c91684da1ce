package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/session"
)

const resolvedMsg = "Item marked as resolved."

type loginPage struct {
	PageData
	Email   string
	Pending bool
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	_, pending := newCookieSlot(w, r).Peek()
	s.Templates.Render(w, "login.html", &loginPage{
		PageData: pageData(r, "Admin sign-in"),
		Pending:  pending,
	})
}

// LoginSubmit handles POST /login. A resolve request parked before
// sign-in runs right after the session is established.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	slot := newCookieSlot(w, r)

	token, user, err := session.Login(r.Context(), s.DB, s.JWTSecret, email, password)
	if err != nil {
		if model.KindOf(err) == model.KindPermissionDenied {
			slog.Warn("login failed", "email", email, "remote", r.RemoteAddr)
		}
		_, pending := slot.Peek()
		data := &loginPage{PageData: pageData(r, "Admin sign-in"), Email: email, Pending: pending}
		data.Success = ""
		data.Error = board.UserMessage(err)
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", data)
		return
	}

	claims, err := auth.ValidateToken(s.JWTSecret, token)
	if err != nil {
		s.Templates.Render(w, "login.html", &loginPage{
			PageData: PageData{Title: "Admin sign-in", Error: "Error signing in."},
			Email:    email,
		})
		return
	}

	setAuthCookie(w, token)
	slog.Info("user logged in", "email", user.Email, "role", user.Role)

	var result *board.DeleteResult
	ra := &requestAuth{}
	d := board.NewDeleter(s.Records, ra,
		board.WithSlot(slot),
		board.WithResults(func(res board.DeleteResult) {
			if res.State == board.DeleteDone || res.State == board.DeleteFailed {
				result = &res
			}
		}),
	)
	ra.signIn(claims)
	d.Close()

	switch {
	case result == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case result.State == board.DeleteDone:
		redirectFlash(w, r, "/", "msg", resolvedMsg)
	default:
		redirectFlash(w, r, "/", "err", board.UserMessage(result.Err))
	}
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil {
		if err := session.Revoke(r.Context(), s.DB, claims); err != nil {
			slog.Error("failed to revoke token", "error", err)
		} else {
			slog.Info("user logged out", "email", claims.Email)
		}
	}
	clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
