package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
)

type fakeCreator struct {
	created []model.Record
	err     error
}

func (f *fakeCreator) Create(_ context.Context, rec model.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, rec)
	return "id-1", nil
}

type fakePreparer struct {
	err   error
	calls int
}

func (f *fakePreparer) Prepare(u imaging.Upload) (*imaging.InlineImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &imaging.InlineImage{MIME: "image/jpeg", DataURI: "data:image/jpeg;base64,AAAA"}, nil
}

func validSubmission() Submission {
	return Submission{
		Type:        model.TypeLost,
		Name:        "Blue Hydro Flask",
		Location:    "Library",
		Date:        "2025-12-16",
		Description: "Dark blue with stickers",
		Contact:     "ali@uni.edu",
	}
}

func recordStates(states *[]State) Progress {
	return func(s State) { *states = append(*states, s) }
}

func TestSubmitWithoutImageUsesPlaceholder(t *testing.T) {
	store := &fakeCreator{}
	images := &fakePreparer{}
	s := NewSubmitter(store, images)

	var states []State
	id, err := s.Submit(context.Background(), validSubmission(), recordStates(&states))
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, []State{StateIdle, StateValidating, StatePersisting, StateDone}, states)
	assert.Zero(t, images.calls)

	require.Len(t, store.created, 1)
	assert.Equal(t, "https://via.placeholder.com/300?text=Blue%20Hydro%20Flask", store.created[0].Image)
	assert.Equal(t, "ali@uni.edu", store.created[0].Contact)
}

func TestSubmitWithImage(t *testing.T) {
	store := &fakeCreator{}
	s := NewSubmitter(store, &fakePreparer{})

	sub := validSubmission()
	sub.Image = &imaging.Upload{Filename: "a.jpg", MIME: "image/jpeg", Data: []byte{1}}

	var states []State
	_, err := s.Submit(context.Background(), sub, recordStates(&states))
	require.NoError(t, err)
	assert.Equal(t, []State{StateIdle, StateValidating, StateCompressing, StatePersisting, StateDone}, states)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", store.created[0].Image)
}

func TestSubmitTurnedIn(t *testing.T) {
	store := &fakeCreator{}
	s := NewSubmitter(store, &fakePreparer{})

	sub := validSubmission()
	sub.Type = model.TypeFound
	sub.TurnedIn = "security"
	_, err := s.Submit(context.Background(), sub, nil)
	require.NoError(t, err)
	assert.Equal(t, "Security Office (Reported by: ali@uni.edu)", store.created[0].Contact)

	sub.Type = model.TypeLost
	_, err = s.Submit(context.Background(), sub, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	sub.Type = model.TypeFound
	sub.TurnedIn = "basement"
	_, err = s.Submit(context.Background(), sub, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Submission)
	}{
		{"missing name", func(s *Submission) { s.Name = "" }},
		{"missing contact", func(s *Submission) { s.Contact = "" }},
		{"bad type", func(s *Submission) { s.Type = "stolen" }},
		{"bad date", func(s *Submission) { s.Date = "16/12/2025" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeCreator{}
			images := &fakePreparer{}
			sub := validSubmission()
			tt.modify(&sub)

			var states []State
			_, err := NewSubmitter(store, images).Submit(context.Background(), sub, recordStates(&states))
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			assert.Equal(t, []State{StateIdle, StateValidating, StateFailed}, states)
			assert.Empty(t, store.created)
			assert.Zero(t, images.calls)
		})
	}
}

func TestSubmitCompressionFailed(t *testing.T) {
	store := &fakeCreator{}
	images := &fakePreparer{err: model.Errorf(model.KindCompressionFailed, "Failed to compress image. Please try a different image.")}

	sub := validSubmission()
	sub.Image = &imaging.Upload{MIME: "image/png", Data: []byte{1}}

	var states []State
	_, err := NewSubmitter(store, images).Submit(context.Background(), sub, recordStates(&states))
	assert.ErrorIs(t, err, model.ErrCompressionFailed)
	assert.Equal(t, StateFailed, states[len(states)-1])
	assert.NotContains(t, states, StatePersisting)
	assert.Empty(t, store.created)
}

func TestSubmitStoreFailure(t *testing.T) {
	store := &fakeCreator{err: model.Errorf(model.KindUnavailable, "timeout")}

	var states []State
	_, err := NewSubmitter(store, &fakePreparer{}).Submit(context.Background(), validSubmission(), recordStates(&states))
	assert.ErrorIs(t, err, model.ErrUnavailable)
	assert.Equal(t, submitFailedMsg, UserMessage(err))
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "compressing", StateCompressing.String())
	assert.Equal(t, "awaiting login", DeleteAwaitingLogin.String())
}
