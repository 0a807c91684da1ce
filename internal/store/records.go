package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/model"
)

// DefaultTimeout bounds every record operation. Expiry is reported as
// model.ErrUnavailable.
const DefaultTimeout = 10 * time.Second

const unavailableMsg = "The board is temporarily unavailable. Please try again."

// Unsubscribe stops a subscription. Calling it more than once is safe.
type Unsubscribe = func()

// Records is the lost-and-found document collection. Every operation is
// applied in full or not at all.
type Records struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time
	seed    []model.Record
	broker  *broker
	seeding singleflight.Group
}

// Option configures Records.
type Option func(*Records)

// WithTimeout sets the per-operation timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Records) { s.timeout = d }
}

// WithClock sets the clock used for created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Records) { s.now = now }
}

// WithSeed replaces the demonstration records written by SeedIfEmpty.
func WithSeed(records []model.Record) Option {
	return func(s *Records) { s.seed = records }
}

// NewRecords returns a record store backed by db.
func NewRecords(db *sql.DB, opts ...Option) *Records {
	s := &Records{
		db:      db,
		timeout: DefaultTimeout,
		now:     time.Now,
		seed:    DefaultSeed(),
		broker:  newBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Records) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// unavailable classifies a driver or deadline failure.
func unavailable(op string, err error) error {
	return model.Wrap(model.KindUnavailable, unavailableMsg, fmt.Errorf("%s: %w", op, err))
}

// Create appends rec and returns its new id. Field contents are not
// validated beyond what the collection requires: a known type and an image
// within model.MaxDocumentSize.
func (s *Records) Create(ctx context.Context, rec model.Record) (string, error) {
	if !rec.Type.Valid() {
		return "", model.Errorf(model.KindInvalidInput, "Unknown report type %q.", rec.Type)
	}
	if len(rec.Image) > model.MaxDocumentSize {
		return "", model.Errorf(model.KindInvalidInput, "The image is too large to store.")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := uuid.NewString()
	if err := insertRecord(ctx, s.db, id, rec, s.now().UTC()); err != nil {
		return "", unavailable("creating record", err)
	}

	s.broker.publish()
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, id string, rec model.Record, createdAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO records (id, type, name, location, date, description, contact, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(rec.Type), rec.Name, rec.Location, rec.Date, rec.Description, rec.Contact, rec.Image, createdAt,
	)
	return err
}

// Get returns a single record.
func (s *Records) Get(ctx context.Context, id string) (*model.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec model.Record
	var typ string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, type, name, location, date, description, contact, image, created_at
		 FROM records WHERE id = ?`, id,
	).Scan(&rec.ID, &typ, &rec.Name, &rec.Location, &rec.Date, &rec.Description, &rec.Contact, &rec.Image, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "This item no longer exists.")
	}
	if err != nil {
		return nil, unavailable("getting record", err)
	}
	rec.Type = model.Type(typ)
	return &rec, nil
}

// ListOrdered returns all records, newest date first. Records sharing a
// date keep their insertion order.
func (s *Records) ListOrdered(ctx context.Context) ([]model.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, name, location, date, description, contact, image, created_at
		 FROM records ORDER BY date DESC, seq ASC`,
	)
	if err != nil {
		return nil, unavailable("listing records", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var rec model.Record
		var typ string
		if err := rows.Scan(&rec.ID, &typ, &rec.Name, &rec.Location, &rec.Date, &rec.Description, &rec.Contact, &rec.Image, &rec.CreatedAt); err != nil {
			return nil, unavailable("scanning record", err)
		}
		rec.Type = model.Type(typ)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing records", err)
	}
	return records, nil
}

// Delete removes a record. The caller must carry admin claims in ctx
// (see auth.NewContext).
func (s *Records) Delete(ctx context.Context, id string) error {
	claims := auth.FromContext(ctx)
	if claims == nil || !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		return model.Errorf(model.KindPermissionDenied, "Permission denied. Please make sure you're signed in as an admin.")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return unavailable("deleting record", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("deleting record", err)
	}
	if n == 0 {
		return model.Errorf(model.KindNotFound, "This item no longer exists.")
	}

	slog.Info("record deleted", "id", id, "by", claims.Email)
	s.broker.publish()
	return nil
}

// SeedIfEmpty writes the demonstration records if and only if the
// collection is empty. The check and all inserts share one transaction, so
// either every seed record is written or none is. Concurrent callers share
// a single attempt. It reports whether records were written.
func (s *Records) SeedIfEmpty(ctx context.Context) (bool, error) {
	v, err, _ := s.seeding.Do("seed", func() (any, error) {
		return s.seedIfEmpty(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Records) seedIfEmpty(ctx context.Context) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("starting seed", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return false, unavailable("counting records", err)
	}
	if count > 0 {
		return false, nil
	}

	createdAt := s.now().UTC()
	for _, rec := range s.seed {
		if err := insertRecord(ctx, tx, uuid.NewString(), rec, createdAt); err != nil {
			return false, unavailable("seeding record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, unavailable("committing seed", err)
	}

	slog.Info("seed records written", "count", len(s.seed))
	s.broker.publish()
	return true, nil
}

// Subscribe calls fn with the current ordered record set before returning,
// then again after every committed insert or delete until ctx is done or
// the returned Unsubscribe is called. Calls to fn are serialized. Changes
// arriving while fn runs are coalesced into a single later call, so fn
// always sees the latest state but not necessarily every intermediate one.
func (s *Records) Subscribe(ctx context.Context, fn func([]model.Record)) (Unsubscribe, error) {
	sub := s.broker.add()

	records, err := s.ListOrdered(ctx)
	if err != nil {
		s.broker.remove(sub)
		return nil, err
	}
	fn(records)

	go s.deliver(ctx, sub, fn)

	return func() { s.broker.remove(sub) }, nil
}

func (s *Records) deliver(ctx context.Context, sub *subscriber, fn func([]model.Record)) {
	for {
		select {
		case <-ctx.Done():
			s.broker.remove(sub)
			return
		case <-sub.done:
			return
		case <-sub.signal:
		}

		records, err := s.ListOrdered(context.WithoutCancel(ctx))
		if err != nil {
			slog.Warn("failed to refresh subscription", "error", err)
			continue
		}

		// Unsubscribed while reading: drop the stale delivery.
		select {
		case <-sub.done:
			return
		default:
		}
		fn(records)
	}
}
