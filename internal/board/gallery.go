// Package board holds the lost-and-found workflows that sit between the
// record store and the user: the gallery projection, the report
// submission flow and the admin delete flow.
package board

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/erazemk/najdeno/internal/model"
)

// SummaryLength is the rune limit of a card summary.
const SummaryLength = 120

// Badge labels.
const (
	BadgeLost  = "LOST"
	BadgeFound = "FOUND"
)

// ViewItem is one gallery card.
type ViewItem struct {
	ID       string     `json:"id"`
	Type     model.Type `json:"type"`
	Badge    string     `json:"badge"`
	Title    string     `json:"title"`
	Location string     `json:"location"`
	Date     string     `json:"date"`
	Summary  string     `json:"summary"`
	Image    string     `json:"image"`
}

// ItemDetail is the full view of a single record.
type ItemDetail struct {
	ViewItem
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

// Project maps an ordered record set to gallery cards, one per record, in
// the same order. It has no side effects.
func Project(records []model.Record) []ViewItem {
	items := make([]ViewItem, 0, len(records))
	for _, rec := range records {
		items = append(items, card(rec))
	}
	return items
}

// Detail returns the detail view of rec.
func Detail(rec model.Record) ItemDetail {
	return ItemDetail{
		ViewItem:    card(rec),
		Description: rec.Description,
		Contact:     rec.Contact,
	}
}

func card(rec model.Record) ViewItem {
	badge := BadgeFound
	if rec.Type == model.TypeLost {
		badge = BadgeLost
	}
	return ViewItem{
		ID:       rec.ID,
		Type:     rec.Type,
		Badge:    badge,
		Title:    rec.Name,
		Location: rec.Location,
		Date:     rec.Date,
		Summary:  summarize(rec.Description, SummaryLength),
		Image:    rec.Image,
	}
}

func summarize(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), " ") + "…"
}

// Subscriber is the part of the record store a Gallery listens to.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func([]model.Record)) (func(), error)
}

// Gallery owns the currently displayed record set. Each store notification
// replaces the set wholesale; nothing is merged.
type Gallery struct {
	mu        sync.RWMutex
	records   []model.Record
	view      []ViewItem
	observers []func([]ViewItem)
	stop      func()
}

// NewGallery returns an empty Gallery.
func NewGallery() *Gallery {
	return &Gallery{view: []ViewItem{}}
}

// Attach subscribes the gallery to sub. The current record set is in place
// when Attach returns.
func (g *Gallery) Attach(ctx context.Context, sub Subscriber) error {
	stop, err := sub.Subscribe(ctx, g.Replace)
	if err != nil {
		return err
	}
	g.mu.Lock()
	prev := g.stop
	g.stop = stop
	g.mu.Unlock()
	if prev != nil {
		prev()
	}
	return nil
}

// Close detaches the gallery from its store.
func (g *Gallery) Close() {
	g.mu.Lock()
	stop := g.stop
	g.stop = nil
	g.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Replace swaps in a new record set and notifies observers.
func (g *Gallery) Replace(records []model.Record) {
	view := Project(records)

	g.mu.Lock()
	g.records = records
	g.view = view
	observers := append([]func([]ViewItem){}, g.observers...)
	g.mu.Unlock()

	slog.Debug("gallery updated", "items", len(view))
	for _, fn := range observers {
		fn(view)
	}
}

// View returns the current cards.
func (g *Gallery) View() []ViewItem {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ViewItem{}, g.view...)
}

// Find returns the displayed record with the given id.
func (g *Gallery) Find(id string) (model.Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, rec := range g.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return model.Record{}, false
}

// Len returns the number of displayed records.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// OnChange registers fn to run after every replacement.
func (g *Gallery) OnChange(fn func([]ViewItem)) {
	g.mu.Lock()
	g.observers = append(g.observers, fn)
	g.mu.Unlock()
}

// Lister is the part of the record store used to load the board.
type Lister interface {
	ListOrdered(ctx context.Context) ([]model.Record, error)
	SeedIfEmpty(ctx context.Context) (bool, error)
}

// Load lists the records, seeding the demonstration set once if the
// collection is empty. A failed seed is logged and the empty list returned.
func Load(ctx context.Context, s Lister) ([]model.Record, error) {
	records, err := s.ListOrdered(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return records, nil
	}

	if _, err := s.SeedIfEmpty(ctx); err != nil {
		slog.Warn("seeding board failed", "error", err)
		return records, nil
	}
	return s.ListOrdered(ctx)
}
