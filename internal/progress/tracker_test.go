package progress

import (
	"fmt"
	"testing"
	"time"

	"github.com/jwhsu/storycast/internal/logging"
)

// in-memory store recording every write, for policy assertions
type memoryStore struct {
	records map[string]Record
	writes  []Record
	failSet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]Record{}}
}

func (s *memoryStore) Get(bookID, chapterID string) (Record, bool, error) {
	rec, ok := s.records[bookID+"/"+chapterID]
	return rec, ok, nil
}

func (s *memoryStore) Set(rec Record) error {
	if s.failSet {
		return fmt.Errorf("store unavailable")
	}
	s.records[rec.BookID+"/"+rec.ChapterID] = rec
	s.writes = append(s.writes, rec)
	return nil
}

func newTestTracker(store Store) (*Tracker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(store, logging.NewNop())
	tracker.now = func() time.Time { return now }
	return tracker, &now
}

func TestRecordWithoutContextIsNoOp(t *testing.T) {
	store := newMemoryStore()
	tracker, _ := newTestTracker(store)

	tracker.Record(Snapshot{Position: 42, Force: true})
	if len(store.writes) != 0 {
		t.Errorf("expected no writes without context, got %d", len(store.writes))
	}
}

func TestRecordDebounce(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	// delta 3 < 5: suppressed
	tracker.Record(Snapshot{Position: 3})
	if len(store.writes) != 0 {
		t.Fatalf("delta below threshold should not persist, got %d writes",
			len(store.writes))
	}

	// delta 6 >= 5 but only milliseconds elapsed: still suppressed
	*now = now.Add(5 * time.Millisecond)
	tracker.Record(Snapshot{Position: 6})
	if len(store.writes) != 0 {
		t.Fatalf("time below threshold should not persist, got %d writes",
			len(store.writes))
	}

	// both thresholds met: persists
	*now = now.Add(10 * time.Second)
	tracker.Record(Snapshot{Position: 7})
	if len(store.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(store.writes))
	}
	if store.writes[0].PositionSec != 7 {
		t.Errorf("expected position 7, got %v", store.writes[0].PositionSec)
	}

	// deltas measured from the persisted state
	*now = now.Add(time.Minute)
	tracker.Record(Snapshot{Position: 9})
	if len(store.writes) != 1 {
		t.Errorf("delta from persisted position is 2, should not persist")
	}
}

func TestRecordForceBypassesThresholds(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	tracker.Record(Snapshot{Position: 1, Force: true})
	if len(store.writes) != 1 {
		t.Fatalf("forced snapshot must persist, got %d writes", len(store.writes))
	}

	tracker.Record(Snapshot{Position: 1.5, Force: true})
	if len(store.writes) != 2 {
		t.Errorf("second forced snapshot must persist too, got %d writes",
			len(store.writes))
	}
}

func TestRecordCompletionClampsToDuration(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	tracker.Record(Snapshot{Position: 10, Duration: 300, Force: true})
	tracker.Record(Snapshot{Position: 295, Completed: true})

	last := store.writes[len(store.writes)-1]
	if last.PositionSec < 300 {
		t.Errorf("completed record position %v should be >= duration 300",
			last.PositionSec)
	}
	if !last.Completed {
		t.Error("record should be marked completed")
	}
}

func TestRecordDurationLearnedOnce(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	tracker.Record(Snapshot{Position: 0, Duration: 300, Force: true})
	tracker.Record(Snapshot{Position: 1, Duration: 999, Force: true})

	last := store.writes[len(store.writes)-1]
	if last.DurationSec != 300 {
		t.Errorf("duration should stay 300 once learned, got %v",
			last.DurationSec)
	}
}

func TestRecordSanitizesNegativePosition(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	tracker.Record(Snapshot{Position: -4, Force: true})
	if store.writes[0].PositionSec != 0 {
		t.Errorf("negative position should clamp to 0, got %v",
			store.writes[0].PositionSec)
	}
}

func TestUpdateContextSeedsFromStore(t *testing.T) {
	store := newMemoryStore()
	store.records["book1/ch1"] = Record{
		BookID:      "book1",
		ChapterID:   "ch1",
		PositionSec: 120,
		DurationSec: 300,
		UpdatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", nil)

	// delta from the stored 120 is 2: suppressed even long after
	*now = now.Add(time.Hour)
	tracker.Record(Snapshot{Position: 122})
	if len(store.writes) != 0 {
		t.Errorf("expected debounce against stored position, got %d writes",
			len(store.writes))
	}

	tracker.Record(Snapshot{Position: 130})
	if len(store.writes) != 1 {
		t.Errorf("expected write once past stored position, got %d writes",
			len(store.writes))
	}
}

func TestUpdateContextWithEmptyIDClears(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	tracker.UpdateContext("", "", nil)
	tracker.Record(Snapshot{Position: 50, Force: true})
	if len(store.writes) != 0 {
		t.Errorf("cleared context should drop records, got %d writes",
			len(store.writes))
	}
}

func TestUpdateContextDiscardsPreviousChapterState(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)

	tracker.UpdateContext("book1", "ch1", &Record{
		PositionSec: 200,
		DurationSec: 300,
		UpdatedAt:   *now,
	})
	tracker.UpdateContext("book1", "ch2", nil)

	// fresh chapter: duration and position from ch1 must not leak
	*now = now.Add(time.Hour)
	tracker.Record(Snapshot{Position: 6})
	if len(store.writes) != 1 {
		t.Fatalf("expected write in new chapter, got %d", len(store.writes))
	}
	rec := store.writes[0]
	if rec.ChapterID != "ch2" {
		t.Errorf("expected chapter ch2, got %q", rec.ChapterID)
	}
	if rec.DurationSec != 0 {
		t.Errorf("duration leaked from previous chapter: %v", rec.DurationSec)
	}
}

func TestResetClearsMemoryNotStore(t *testing.T) {
	store := newMemoryStore()
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})
	tracker.Record(Snapshot{Position: 60, Force: true})

	tracker.Reset()

	if len(store.records) != 1 {
		t.Errorf("reset must not touch durable records, have %d",
			len(store.records))
	}
	tracker.Record(Snapshot{Position: 90, Force: true})
	if len(store.writes) != 1 {
		t.Errorf("records after reset should be dropped, got %d writes",
			len(store.writes))
	}
}

func TestRecordSurvivesStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.failSet = true
	tracker, now := newTestTracker(store)
	tracker.UpdateContext("book1", "ch1", &Record{UpdatedAt: *now})

	// must not panic, and the failed position must not be remembered
	tracker.Record(Snapshot{Position: 60, Force: true})

	store.failSet = false
	*now = now.Add(time.Minute)
	tracker.Record(Snapshot{Position: 60})
	if len(store.writes) != 1 {
		t.Errorf("expected retry to persist after failure, got %d writes",
			len(store.writes))
	}
}
