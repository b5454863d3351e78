package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pulsefit/coach-backend/internal/shared"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb), mr
}

func TestStore_StartedCreatesActiveRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Started(ctx, "sess_1", "user_1"); err != nil {
		t.Fatalf("Started: %v", err)
	}

	rec, err := store.Get(ctx, "sess_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.UserID != "user_1" {
		t.Errorf("expected user_1, got %s", rec.UserID)
	}
	if rec.Status != StatusActive {
		t.Errorf("expected status active, got %s", rec.Status)
	}
	if rec.StartedAt.IsZero() {
		t.Error("expected StartedAt set")
	}
	if rec.EndedAt != nil {
		t.Error("active record must not have EndedAt")
	}
}

func TestStore_EndedMarksRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Started(ctx, "sess_1", "user_1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Ended(ctx, "sess_1"); err != nil {
		t.Fatalf("Ended: %v", err)
	}

	rec, err := store.Get(ctx, "sess_1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusEnded {
		t.Errorf("expected status ended, got %s", rec.Status)
	}
	if rec.EndedAt == nil {
		t.Error("expected EndedAt set")
	}
}

func TestStore_TurnAndInterruptionCounters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Started(ctx, "sess_1", "user_1"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := store.TurnCompleted(ctx, "sess_1"); err != nil {
			t.Fatalf("TurnCompleted: %v", err)
		}
	}
	if err := store.Interrupted(ctx, "sess_1"); err != nil {
		t.Fatalf("Interrupted: %v", err)
	}

	rec, err := store.Get(ctx, "sess_1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Turns != 3 {
		t.Errorf("expected 3 turns, got %d", rec.Turns)
	}
	if rec.Interruptions != 1 {
		t.Errorf("expected 1 interruption, got %d", rec.Interruptions)
	}
}

func TestStore_EndedUnknownSession(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Ended(context.Background(), "sess_missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RecordsExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Started(ctx, "sess_1", "user_1"); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(activeTTL + 1)

	if _, err := store.Get(ctx, "sess_1"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected record to expire, got %v", err)
	}
}

func TestStore_ListByUserFiltersAndSorts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"sess_a", "sess_b"} {
		if err := store.Started(ctx, id, "user_1"); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Started(ctx, "sess_other", "user_2"); err != nil {
		t.Fatal(err)
	}

	records, err := store.ListByUser(ctx, "user_1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.UserID != "user_1" {
			t.Errorf("record for wrong user: %s", rec.UserID)
		}
	}
	if records[0].StartedAt.Before(records[1].StartedAt) {
		t.Error("expected newest-first ordering")
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Started(ctx, "sess_1", "user_1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "sess_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "sess_1"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected deleted record gone, got %v", err)
	}
}
