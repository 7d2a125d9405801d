package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(id, userID, description string, createdAt time.Time) *domain.PersistedRun {
	return &domain.PersistedRun{
		ID:          id,
		UserID:      userID,
		Description: description,
		Results: domain.RunResult{
			"architect": domain.SuccessResult(json.RawMessage(`{"stack":["go"]}`)),
			"pm":        domain.ErrorResult("timeout", "raw text"),
		},
		CreatedAt: createdAt,
	}
}

func TestSQLiteStoreSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	if err := store.SaveRun(ctx, testRun("r1", "u1", "first project", base)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.SaveRun(ctx, testRun("r2", "u1", "second project", base.Add(time.Minute))); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.LatestRun(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if got.ID != "r2" || got.Description != "second project" {
		t.Fatalf("unexpected latest run: %+v", got)
	}
	if !got.Results["architect"].OK() {
		t.Fatalf("architect result should round-trip as a success")
	}
	if got.Results["pm"].Err != "timeout" || got.Results["pm"].Raw != "raw text" {
		t.Fatalf("pm error result should round-trip: %+v", got.Results["pm"])
	}
}

func TestSQLiteStoreLatestRunByDescription(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, desc := range []string{"alpha", "beta", "alpha"} {
		run := testRun("r"+string(rune('1'+i)), "u1", desc, base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	got, err := store.LatestRunByDescription(ctx, "u1", "alpha")
	if err != nil {
		t.Fatalf("LatestRunByDescription failed: %v", err)
	}
	if got.ID != "r3" {
		t.Fatalf("expected the newer alpha run, got %+v", got)
	}

	_, err = store.LatestRunByDescription(ctx, "u1", "gamma")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreUserIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	if err := store.SaveRun(ctx, testRun("r1", "u1", "mine", base)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.SaveRun(ctx, testRun("r2", "u2", "theirs", base.Add(time.Minute))); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.LatestRun(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if got.ID != "r1" {
		t.Fatalf("u1 should only see their own runs, got %+v", got)
	}

	_, err = store.LatestRun(ctx, "u3")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a user with no runs, got %v", err)
	}
}
