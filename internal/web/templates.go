package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	webembed "github.com/erazemk/najdeno/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"isAdmin": func(c *auth.Claims) bool {
			return c != nil && model.RoleAtLeast(c.Role, model.RoleAdmin)
		},
		"typeName": func(t model.Type) string {
			switch t {
			case model.TypeLost:
				return "Lost"
			case model.TypeFound:
				return "Found"
			default:
				return string(t)
			}
		},
		"badgeClass": func(t model.Type) string {
			return "badge-" + string(t)
		},
		// Inline images are data URIs, which html/template would otherwise
		// replace with "#ZgotmplZ".
		"imageURL": func(s string) template.URL {
			if model.IsInlineImage(s) || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
				return template.URL(s)
			}
			return ""
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	// Read layout.
	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"gallery.html",
		"report.html",
		"item.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with a non-default status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// pageData fills the common fields from the request, including flash
// messages passed as ?msg= and ?err=.
func pageData(r *http.Request, title string) PageData {
	q := r.URL.Query()
	return PageData{
		Title:   title,
		User:    GetWebClaims(r.Context()),
		Success: q.Get("msg"),
		Error:   q.Get("err"),
	}
}

// redirectFlash redirects to path with a success or error message.
func redirectFlash(w http.ResponseWriter, r *http.Request, path, key, message string) {
	if message != "" {
		path += "?" + url.Values{key: {message}}.Encode()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
	Records   *store.Records
	Gallery   *board.Gallery
	Submitter *board.Submitter
}
