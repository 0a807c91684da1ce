package web

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/store"
	webembed "github.com/erazemk/najdeno/web"
)

// NewRouter creates the web page router with all page routes registered.
// gallery must already be attached to records.
func NewRouter(db *sql.DB, jwtSecret string, records *store.Records, gallery *board.Gallery) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
		Records:   records,
		Gallery:   gallery,
		Submitter: board.NewSubmitter(records, nil),
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Sign-in.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.Handle("POST /logout", cookieAuth(http.HandlerFunc(s.Logout)))

	// Board. Claims are optional here; resolving parks the request until
	// an admin signs in.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.GalleryPage)))
	mux.Handle("GET /report/{type}", cookieAuth(http.HandlerFunc(s.ReportPage)))
	mux.Handle("POST /report/{type}", cookieAuth(http.HandlerFunc(s.ReportSubmit)))
	mux.Handle("GET /items/{id}", cookieAuth(http.HandlerFunc(s.ItemDetailPage)))
	mux.Handle("POST /items/{id}/resolve", cookieAuth(http.HandlerFunc(s.ItemResolveSubmit)))

	return mux, nil
}
