package board

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
)

// State is a step of the submission flow.
type State int

// Submission states. Done and Failed are terminal.
const (
	StateIdle State = iota
	StateValidating
	StateCompressing
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateCompressing:
		return "compressing"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlaceholderBase is the image used when a report has no photo. The item
// name is appended as the text parameter.
const PlaceholderBase = "https://via.placeholder.com/300?text="

const submitFailedMsg = "Failed to submit report. Please try again."

// Offices a found item can be turned in to.
var Offices = map[string]string{
	"security": "Security Office",
	"admin":    "Admin Office",
	"library":  "Library Front Desk",
}

// Submission is a report as entered in the form. Fields are used verbatim.
type Submission struct {
	Type        model.Type
	Name        string
	Location    string
	Date        string
	Description string
	Contact     string
	// TurnedIn is an Offices key. When set on a found report, the contact
	// becomes "<office> (Reported by: <contact>)".
	TurnedIn string
	Image    *imaging.Upload
}

// Progress receives each state the flow enters.
type Progress func(State)

// RecordCreator is the part of the record store the submission flow writes to.
type RecordCreator interface {
	Create(ctx context.Context, rec model.Record) (string, error)
}

// ImagePreparer turns an upload into an inline image.
type ImagePreparer interface {
	Prepare(u imaging.Upload) (*imaging.InlineImage, error)
}

// Submitter runs the report flow: validate, compress the photo, persist.
type Submitter struct {
	store  RecordCreator
	images ImagePreparer
}

// NewSubmitter returns a Submitter. A nil images uses the default
// preprocessing pipeline.
func NewSubmitter(store RecordCreator, images ImagePreparer) *Submitter {
	if images == nil {
		images = imaging.Default()
	}
	return &Submitter{store: store, images: images}
}

// Submit validates sub, prepares its image and creates the record,
// reporting every state to progress. It returns the new record's id. A
// failure in any step ends the flow in StateFailed with nothing persisted
// by that step.
func (s *Submitter) Submit(ctx context.Context, sub Submission, progress Progress) (string, error) {
	if progress == nil {
		progress = func(State) {}
	}
	progress(StateIdle)

	fail := func(err error) (string, error) {
		progress(StateFailed)
		slog.Warn("report submission failed", "type", sub.Type, "kind", model.KindOf(err), "error", err)
		return "", err
	}

	progress(StateValidating)
	if err := validate(sub); err != nil {
		return fail(err)
	}

	image := Placeholder(sub.Name)
	if sub.Image != nil {
		progress(StateCompressing)
		prepared, err := s.images.Prepare(*sub.Image)
		if err != nil {
			return fail(err)
		}
		image = prepared.DataURI
	}

	progress(StatePersisting)
	rec := model.Record{
		Type:        sub.Type,
		Name:        sub.Name,
		Location:    sub.Location,
		Date:        sub.Date,
		Description: sub.Description,
		Contact:     contact(sub),
		Image:       image,
	}
	id, err := s.store.Create(ctx, rec)
	if err != nil {
		switch model.KindOf(err) {
		case model.KindInvalidInput, model.KindPermissionDenied:
		default:
			err = model.Wrap(model.KindUnavailable, submitFailedMsg, err)
		}
		return fail(err)
	}

	progress(StateDone)
	slog.Info("report submitted", "id", id, "type", sub.Type, "name", sub.Name)
	return id, nil
}

// Placeholder returns the placeholder image URL for an item name.
func Placeholder(name string) string {
	return PlaceholderBase + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

func validate(sub Submission) error {
	if !sub.Type.Valid() {
		return model.Errorf(model.KindInvalidInput, "Please choose whether the item was lost or found.")
	}
	if sub.Name == "" || sub.Location == "" || sub.Date == "" || sub.Description == "" || sub.Contact == "" {
		return model.Errorf(model.KindInvalidInput, "Please fill in all required fields.")
	}
	if _, err := time.Parse(model.DateLayout, sub.Date); err != nil {
		return model.Errorf(model.KindInvalidInput, "Please enter the date as YYYY-MM-DD.")
	}
	if sub.TurnedIn != "" {
		if sub.Type != model.TypeFound {
			return model.Errorf(model.KindInvalidInput, "Only found items can be turned in to an office.")
		}
		if _, ok := Offices[sub.TurnedIn]; !ok {
			return model.Errorf(model.KindInvalidInput, "Unknown office %q.", sub.TurnedIn)
		}
	}
	return nil
}

func contact(sub Submission) string {
	office, ok := Offices[sub.TurnedIn]
	if !ok || sub.Type != model.TypeFound {
		return sub.Contact
	}
	return office + " (Reported by: " + sub.Contact + ")"
}
