package board

import (
	"context"
	"log/slog"
	"sync"

	"github.com/erazemk/najdeno/internal/auth"
)

// DeleteState is the outcome of a delete request.
type DeleteState int

// Delete states.
const (
	DeleteRequested DeleteState = iota
	DeleteAwaitingLogin
	DeleteDeleting
	DeleteDone
	DeleteFailed
)

func (s DeleteState) String() string {
	switch s {
	case DeleteRequested:
		return "requested"
	case DeleteAwaitingLogin:
		return "awaiting login"
	case DeleteDeleting:
		return "deleting"
	case DeleteDone:
		return "done"
	case DeleteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecordDeleter is the part of the record store the delete flow uses.
type RecordDeleter interface {
	Delete(ctx context.Context, id string) error
}

// AuthProvider exposes the signed-in user and sign-in events.
type AuthProvider interface {
	CurrentUser() *auth.Claims
	Context(ctx context.Context) context.Context
	OnAuthStateChanged(fn func(*auth.Claims)) func()
}

// DeleteResult reports a step of a delete request.
type DeleteResult struct {
	ID    string
	State DeleteState
	Err   error
}

// PendingSlot holds at most one parked record id.
type PendingSlot interface {
	// Park stores id, replacing any earlier one.
	Park(id string)
	// Take returns and clears the parked id.
	Take() (string, bool)
	// Peek returns the parked id without clearing it.
	Peek() (string, bool)
}

// MemorySlot is an in-process PendingSlot.
type MemorySlot struct {
	mu sync.Mutex
	id string
}

func (s *MemorySlot) Park(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *MemorySlot) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id
	s.id = ""
	return id, id != ""
}

func (s *MemorySlot) Peek() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

// DeleterOption configures a Deleter.
type DeleterOption func(*Deleter)

// WithSlot replaces the in-memory pending slot.
func WithSlot(slot PendingSlot) DeleterOption {
	return func(d *Deleter) { d.slot = slot }
}

// WithResults registers fn to receive every state a request passes through.
func WithResults(fn func(DeleteResult)) DeleterOption {
	return func(d *Deleter) { d.onResult = fn }
}

// Deleter runs the admin "mark as resolved" flow. A request made while
// signed out is parked in a single pending slot (a later request replaces
// it) and runs automatically after the next sign-in.
type Deleter struct {
	store    RecordDeleter
	auth     AuthProvider
	onResult func(DeleteResult)
	slot     PendingSlot

	mu   sync.Mutex
	stop func()
}

// NewDeleter returns a Deleter listening to auth state changes.
func NewDeleter(store RecordDeleter, ap AuthProvider, opts ...DeleterOption) *Deleter {
	d := &Deleter{
		store:    store,
		auth:     ap,
		onResult: func(DeleteResult) {},
		slot:     &MemorySlot{},
	}
	for _, opt := range opts {
		opt(d)
	}
	stop := ap.OnAuthStateChanged(d.authChanged)
	d.mu.Lock()
	d.stop = stop
	d.mu.Unlock()
	return d
}

// Request deletes the record with the given id, or parks the request if
// nobody is signed in.
func (d *Deleter) Request(ctx context.Context, id string) (DeleteState, error) {
	d.onResult(DeleteResult{ID: id, State: DeleteRequested})
	if d.auth.CurrentUser() == nil {
		if replaced, ok := d.slot.Peek(); ok && replaced != id {
			slog.Debug("pending delete replaced", "old", replaced, "new", id)
		}
		d.slot.Park(id)
		d.onResult(DeleteResult{ID: id, State: DeleteAwaitingLogin})
		return DeleteAwaitingLogin, nil
	}
	return d.run(ctx, id)
}

// Pending returns the parked record id, if any.
func (d *Deleter) Pending() (string, bool) {
	return d.slot.Peek()
}

// Close stops listening for sign-ins. A parked request stays in its slot.
func (d *Deleter) Close() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (d *Deleter) authChanged(claims *auth.Claims) {
	if claims == nil {
		return
	}
	id, ok := d.slot.Take()
	if !ok {
		return
	}

	slog.Info("replaying pending delete", "id", id, "user", claims.Email)
	d.run(context.Background(), id)
}

func (d *Deleter) run(ctx context.Context, id string) (DeleteState, error) {
	d.onResult(DeleteResult{ID: id, State: DeleteDeleting})
	if err := d.store.Delete(d.auth.Context(ctx), id); err != nil {
		slog.Warn("delete failed", "id", id, "error", err)
		d.onResult(DeleteResult{ID: id, State: DeleteFailed, Err: err})
		return DeleteFailed, err
	}
	d.onResult(DeleteResult{ID: id, State: DeleteDone})
	return DeleteDone, nil
}
