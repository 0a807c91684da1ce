package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
)

const maxFormOverhead = 1 << 20

// reportForm is the report page model. Field values survive a failed
// submission.
type reportForm struct {
	PageData
	Type        model.Type
	Name        string
	Location    string
	Date        string
	Description string
	Contact     string
	TurnedIn    string
	Offices     []office
	MaxUpload   int
}

type office struct {
	Key   string
	Label string
}

var officeOrder = []string{"security", "admin", "library"}

func newReportForm(r *http.Request, typ model.Type) *reportForm {
	title := "Report a lost item"
	if typ == model.TypeFound {
		title = "Report a found item"
	}
	f := &reportForm{
		PageData:  pageData(r, title),
		Type:      typ,
		Date:      time.Now().Format(model.DateLayout),
		MaxUpload: imaging.MaxUploadSize >> 20,
	}
	for _, key := range officeOrder {
		f.Offices = append(f.Offices, office{Key: key, Label: board.Offices[key]})
	}
	return f
}

func reportType(r *http.Request) (model.Type, bool) {
	typ := model.Type(r.PathValue("type"))
	return typ, typ.Valid()
}

// ReportPage handles GET /report/{type}.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	typ, ok := reportType(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.Templates.Render(w, "report.html", newReportForm(r, typ))
}

// ReportSubmit handles POST /report/{type}.
func (s *Server) ReportSubmit(w http.ResponseWriter, r *http.Request) {
	typ, ok := reportType(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	form := newReportForm(r, typ)

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+maxFormOverhead)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize + maxFormOverhead); err != nil {
		form.Error = "The form could not be read. Please try again."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			form.Error = "File size exceeds 5MB. Please choose a smaller image."
		}
		s.Templates.RenderStatus(w, http.StatusBadRequest, "report.html", form)
		return
	}
	defer r.MultipartForm.RemoveAll()

	form.Name = r.FormValue("name")
	form.Location = r.FormValue("location")
	form.Date = r.FormValue("date")
	form.Description = r.FormValue("description")
	form.Contact = r.FormValue("contact")
	form.TurnedIn = r.FormValue("turned_in")

	sub := board.Submission{
		Type:        typ,
		Name:        form.Name,
		Location:    form.Location,
		Date:        form.Date,
		Description: form.Description,
		Contact:     form.Contact,
		TurnedIn:    form.TurnedIn,
	}

	upload, err := imaging.FormUpload(r, "image")
	if err == nil {
		sub.Image = upload
		_, err = s.Submitter.Submit(r.Context(), sub, nil)
	}
	if err != nil {
		form.Error = board.UserMessage(err)
		status := http.StatusBadRequest
		switch model.KindOf(err) {
		case model.KindCompressionFailed:
			status = http.StatusUnprocessableEntity
		case model.KindUnavailable:
			status = http.StatusServiceUnavailable
		}
		s.Templates.RenderStatus(w, status, "report.html", form)
		return
	}

	redirectFlash(w, r, "/", "msg", "Report submitted successfully!")
}
