package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// maxFormOverhead is the room left for text fields next to the image.
const maxFormOverhead = 1 << 20

// ItemsHandler handles the lost-and-found board endpoints.
type ItemsHandler struct {
	Records   *store.Records
	Submitter *board.Submitter
}

type createItemResponse struct {
	ID string `json:"id"`
}

// List handles GET /api/items. An empty board is seeded once.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := board.Load(r.Context(), h.Records)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, board.Project(records))
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, board.Detail(*rec))
}

// Create handles POST /api/items as a multipart form with an optional
// "image" file.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+maxFormOverhead)

	if err := r.ParseMultipartForm(imaging.MaxUploadSize + maxFormOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusBadRequest, "File size exceeds 5MB. Please choose a smaller image.")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	sub, err := submissionFromForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.Submitter.Submit(r.Context(), sub, func(s board.State) {
		slog.Debug("submission progress", "state", s.String())
	})
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, createItemResponse{ID: id})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Records.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item resolved"})
}

// submissionFromForm reads a report from a parsed multipart form.
func submissionFromForm(r *http.Request) (board.Submission, error) {
	sub := board.Submission{
		Type:        model.Type(r.FormValue("type")),
		Name:        r.FormValue("name"),
		Location:    r.FormValue("location"),
		Date:        r.FormValue("date"),
		Description: r.FormValue("description"),
		Contact:     r.FormValue("contact"),
		TurnedIn:    r.FormValue("turned_in"),
	}

	upload, err := imaging.FormUpload(r, "image")
	if err != nil {
		return sub, err
	}
	sub.Image = upload
	return sub, nil
}

