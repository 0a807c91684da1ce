package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func newRecord(typ model.Type, name, date string) model.Record {
	return model.Record{
		Type:        typ,
		Name:        name,
		Location:    "Library",
		Date:        date,
		Description: "desc",
		Contact:     "desk",
		Image:       "https://example.com/x.png",
	}
}

func adminContext() context.Context {
	return auth.NewContext(context.Background(), &auth.Claims{UserID: 1, Email: "admin@example.com", Role: model.RoleAdmin})
}

func names(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestCreateAndGetRecord(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	id, err := records.Create(ctx, newRecord(model.TypeLost, "Umbrella", "2025-12-01"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("expected store-assigned id")
	}

	got, err := records.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Umbrella" || got.Type != model.TypeLost || got.ID != id {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	_, err = records.Get(ctx, "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCreateRejectsOversizeImage(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))

	rec := newRecord(model.TypeFound, "Poster", "2025-12-01")
	rec.Image = "data:image/jpeg;base64," + strings.Repeat("A", model.MaxDocumentSize)
	_, err := records.Create(context.Background(), rec)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestListOrderedByDateDescStable(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	for _, r := range []model.Record{
		newRecord(model.TypeLost, "old", "2025-01-01"),
		newRecord(model.TypeLost, "tie-a", "2025-06-01"),
		newRecord(model.TypeFound, "newest", "2025-12-31"),
		newRecord(model.TypeFound, "tie-b", "2025-06-01"),
	} {
		if _, err := records.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	want := []string{"newest", "tie-a", "tie-b", "old"}
	for i := 0; i < 3; i++ {
		list, err := records.ListOrdered(ctx)
		if err != nil {
			t.Fatalf("ListOrdered: %v", err)
		}
		if got := strings.Join(names(list), ","); got != strings.Join(want, ",") {
			t.Fatalf("call %d: expected %v, got %v", i, want, names(list))
		}
	}
}

func TestListOrderedEmpty(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))

	list, err := records.ListOrdered(context.Background())
	if err != nil {
		t.Fatalf("ListOrdered: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	seeded, err := records.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("SeedIfEmpty: %v", err)
	}
	if !seeded {
		t.Fatal("expected seed on empty collection")
	}

	list, _ := records.ListOrdered(ctx)
	if len(list) != len(DefaultSeed()) {
		t.Fatalf("expected %d seed records, got %d", len(DefaultSeed()), len(list))
	}
	// 2025-12-17 twice (insertion order), then 16th, then 15th.
	want := "Scientific Calculator,Car Keys,Blue Hydro Flask,Black Hoodie"
	if got := strings.Join(names(list), ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	seeded, err = records.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("second SeedIfEmpty: %v", err)
	}
	if seeded {
		t.Error("expected second seed to be a no-op")
	}
}

func TestSeedIfEmptyNoopWhenNotEmpty(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	records.Create(ctx, newRecord(model.TypeLost, "Wallet", "2025-05-05"))

	seeded, err := records.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("SeedIfEmpty: %v", err)
	}
	if seeded {
		t.Error("expected no seed when a record exists")
	}

	list, _ := records.ListOrdered(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 record, got %d", len(list))
	}
}

func TestSeedIfEmptyConcurrent(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := records.SeedIfEmpty(ctx); err != nil {
				t.Errorf("SeedIfEmpty: %v", err)
			}
		}()
	}
	wg.Wait()

	list, _ := records.ListOrdered(ctx)
	if len(list) != len(DefaultSeed()) {
		t.Errorf("expected exactly one seed set, got %d records", len(list))
	}
}

func TestSeedIfEmptyAtomic(t *testing.T) {
	bad := DefaultSeed()
	bad[2].Type = "stolen" // rejected by the table's CHECK constraint
	records := NewRecords(db.NewTestDB(t), WithSeed(bad))
	ctx := context.Background()

	_, err := records.SeedIfEmpty(ctx)
	if !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}

	list, _ := records.ListOrdered(ctx)
	if len(list) != 0 {
		t.Errorf("expected no partial seed, got %d records", len(list))
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	id, _ := records.Create(ctx, newRecord(model.TypeLost, "Phone", "2025-03-03"))

	err := records.Delete(ctx, id)
	if !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected PermissionDenied without claims, got %v", err)
	}

	userCtx := auth.NewContext(ctx, &auth.Claims{UserID: 2, Role: model.RoleUser})
	err = records.Delete(userCtx, id)
	if !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected PermissionDenied for non-admin, got %v", err)
	}

	if _, err := records.Get(ctx, id); err != nil {
		t.Errorf("record should survive denied deletes: %v", err)
	}

	if err := records.Delete(adminContext(), id); err != nil {
		t.Fatalf("admin Delete: %v", err)
	}
	if _, err := records.Get(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected record to be gone, got %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	records.Create(ctx, newRecord(model.TypeLost, "Keep", "2025-03-03"))

	err := records.Delete(adminContext(), "does-not-exist")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	list, _ := records.ListOrdered(ctx)
	if len(list) != 1 {
		t.Errorf("expected other records untouched, got %d", len(list))
	}
}

func TestUnavailableWhenStoreDown(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.EnsureSchema(database); err != nil {
		t.Fatal(err)
	}
	records := NewRecords(database)
	database.Close()

	ctx := context.Background()
	if _, err := records.Create(ctx, newRecord(model.TypeLost, "x", "2025-01-01")); !errors.Is(err, model.ErrUnavailable) {
		t.Errorf("Create: expected Unavailable, got %v", err)
	}
	if _, err := records.ListOrdered(ctx); !errors.Is(err, model.ErrUnavailable) {
		t.Errorf("ListOrdered: expected Unavailable, got %v", err)
	}
	if err := records.Delete(adminContext(), "x"); !errors.Is(err, model.ErrUnavailable) {
		t.Errorf("Delete: expected Unavailable, got %v", err)
	}
	if _, err := records.SeedIfEmpty(ctx); !errors.Is(err, model.ErrUnavailable) {
		t.Errorf("SeedIfEmpty: expected Unavailable, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx := context.Background()

	records.Create(ctx, newRecord(model.TypeLost, "first", "2025-01-01"))

	updates := make(chan []model.Record, 16)
	unsubscribe, err := records.Subscribe(ctx, func(list []model.Record) {
		updates <- list
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Immediate delivery of the current set.
	select {
	case list := <-updates:
		if len(list) != 1 || list[0].Name != "first" {
			t.Fatalf("unexpected initial set: %v", names(list))
		}
	default:
		t.Fatal("expected synchronous initial delivery")
	}

	id, _ := records.Create(ctx, newRecord(model.TypeFound, "second", "2025-02-01"))
	list := waitFor(t, updates, func(list []model.Record) bool { return len(list) == 2 })
	if list[0].Name != "second" {
		t.Errorf("expected newest first, got %v", names(list))
	}

	records.Delete(adminContext(), id)
	waitFor(t, updates, func(list []model.Record) bool { return len(list) == 1 })

	unsubscribe()
	unsubscribe()
	if n := records.broker.len(); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}

	records.Create(ctx, newRecord(model.TypeLost, "third", "2025-03-01"))
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case list := <-updates:
			// A delivery already in flight may still land; it must not include the new record.
			if len(list) != 1 {
				t.Fatalf("unexpected delivery after unsubscribe: %v", names(list))
			}
		case <-timeout:
			return
		}
	}
}

func TestSubscribeEndsWithContext(t *testing.T) {
	records := NewRecords(db.NewTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := records.Subscribe(ctx, func([]model.Record) {}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for records.broker.len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestParseSeedRejectsUnknownType(t *testing.T) {
	_, err := ParseSeed([]byte("- type: stolen\n  name: x\n"))
	if err == nil {
		t.Error("expected error for unknown type")
	}
}

// waitFor drains updates until cond holds or a second passes.
func waitFor(t *testing.T, updates <-chan []model.Record, cond func([]model.Record) bool) []model.Record {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case list := <-updates:
			if cond(list) {
				return list
			}
		case <-timeout:
			t.Fatal("timed out waiting for subscription update")
			return nil
		}
	}
}
