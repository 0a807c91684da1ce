package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/model"
)

// GalleryPage handles GET /.
func (s *Server) GalleryPage(w http.ResponseWriter, r *http.Request) {
	items := s.Gallery.View()
	if len(items) == 0 {
		// The subscription catches up asynchronously; render what was loaded.
		records, err := board.Load(r.Context(), s.Records)
		if err != nil {
			slog.Error("failed to load board", "error", err)
		}
		items = board.Project(records)
	}

	data := &struct {
		PageData
		Items []board.ViewItem
	}{
		PageData: pageData(r, "Lost & Found"),
		Items:    items,
	}
	s.Templates.Render(w, "gallery.html", data)
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, ok := s.Gallery.Find(id)
	if !ok {
		got, err := s.Records.Get(r.Context(), id)
		if err != nil {
			if model.KindOf(err) == model.KindNotFound {
				redirectFlash(w, r, "/", "err", board.UserMessage(err))
				return
			}
			slog.Error("failed to get item", "id", id, "error", err)
			http.Error(w, board.UserMessage(err), http.StatusServiceUnavailable)
			return
		}
		rec = *got
	}

	detail := board.Detail(rec)
	s.Templates.Render(w, "item.html", &struct {
		PageData
		Item board.ItemDetail
	}{
		PageData: pageData(r, detail.Title),
		Item:     detail,
	})
}

// ItemResolveSubmit handles POST /items/{id}/resolve. Without an admin
// session the request is parked and the visitor sent to sign in.
func (s *Server) ItemResolveSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ra := &requestAuth{claims: GetWebClaims(r.Context())}
	d := board.NewDeleter(s.Records, ra, board.WithSlot(newCookieSlot(w, r)))
	defer d.Close()

	state, err := d.Request(r.Context(), id)
	switch state {
	case board.DeleteAwaitingLogin:
		redirectFlash(w, r, "/login", "msg", "Please sign in as an admin to mark this item as resolved.")
	case board.DeleteDone:
		redirectFlash(w, r, "/", "msg", resolvedMsg)
	default:
		target := "/items/" + id
		if model.KindOf(err) == model.KindNotFound {
			target = "/"
		}
		redirectFlash(w, r, target, "err", board.UserMessage(err))
	}
}
