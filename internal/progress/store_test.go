package progress

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "progress.json"))

	if _, ok, err := store.Get("book1", "ch1"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	rec := Record{
		BookID:      "book1",
		ChapterID:   "ch1",
		PositionSec: 93.5,
		DurationSec: 300,
		UpdatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Completed:   false,
	}
	if err := store.Set(rec); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, err := store.Get("book1", "ch1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected record to exist")
	}
	if got.PositionSec != rec.PositionSec || got.DurationSec != rec.DurationSec {
		t.Errorf("got %+v, want %+v", got, rec)
	}
	if !got.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("updatedAt: got %v, want %v", got.UpdatedAt, rec.UpdatedAt)
	}
}

func TestFileStoreOverwritesByKey(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "progress.json"))

	first := Record{BookID: "b", ChapterID: "c", PositionSec: 10}
	second := Record{BookID: "b", ChapterID: "c", PositionSec: 20, Completed: true}
	other := Record{BookID: "b", ChapterID: "c2", PositionSec: 5}

	for _, rec := range []Record{first, second, other} {
		if err := store.Set(rec); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}
	}

	got, ok, _ := store.Get("b", "c")
	if !ok || got.PositionSec != 20 || !got.Completed {
		t.Errorf("expected latest record for key, got %+v (ok=%v)", got, ok)
	}
	if got, ok, _ := store.Get("b", "c2"); !ok || got.PositionSec != 5 {
		t.Errorf("sibling chapter clobbered: %+v (ok=%v)", got, ok)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	if err := NewFileStore(path).Set(Record{
		BookID: "b", ChapterID: "c", PositionSec: 42,
	}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, err := NewFileStore(path).Get("b", "c")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok || got.PositionSec != 42 {
		t.Errorf("expected persisted record, got %+v (ok=%v)", got, ok)
	}
}
