package store

import (
	"context"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettingsUpsert(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	missing, err := GetSetting(ctx, database, "board_title")
	if err != nil {
		t.Fatal(err)
	}
	if missing != "" {
		t.Errorf("expected empty value, got %q", missing)
	}

	if err := SetSetting(ctx, database, "board_title", "Lost & Found"); err != nil {
		t.Fatal(err)
	}
	if err := SetSetting(ctx, database, "board_title", "Campus Lost & Found"); err != nil {
		t.Fatal(err)
	}

	got, _ := GetSetting(ctx, database, "board_title")
	if got != "Campus Lost & Found" {
		t.Errorf("expected updated value, got %q", got)
	}
}
