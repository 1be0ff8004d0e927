package progress

import (
	"math"
	"sync"
	"time"

	"github.com/jwhsu/storycast/internal/logging"
)

// Snapshot is one position report from the player clock.
type Snapshot struct {
	Position  float64 // seconds
	Duration  float64 // seconds, 0 when unknown
	Force     bool    // bypass the debounce thresholds
	Completed bool    // chapter reached its end
}

// Tracker decides when playback positions become durable. Player ticks
// arrive far more often than progress is worth writing, so ordinary
// snapshots are debounced behind a position delta and a wall-clock
// interval; forced and completion snapshots always write. All
// operations are serialized: a late tick can never overwrite a forced
// completion record from another goroutine.
type Tracker struct {
	MinPositionDelta float64       // seconds of movement before an ordinary write
	MinSaveInterval  time.Duration // wall-clock spacing between ordinary writes

	mu    sync.Mutex
	store Store
	log   *logging.Logger
	now   func() time.Time

	bookID         string
	chapterID      string
	lastPosition   float64
	lastSavedAt    time.Time
	storedDuration float64
}

func NewTracker(store Store, log *logging.Logger) *Tracker {
	return &Tracker{
		MinPositionDelta: 5,
		MinSaveInterval:  10 * time.Second,
		store:            store,
		log:              log,
		now:              time.Now,
	}
}

// UpdateContext switches the tracker to a new chapter. Empty ids clear
// the context entirely. Cached state is seeded from the supplied
// initial record, else from the store, else zeroed; nothing from the
// previous chapter carries over.
func (t *Tracker) UpdateContext(bookID, chapterID string, initial *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked()
	if bookID == "" || chapterID == "" {
		return
	}

	t.bookID = bookID
	t.chapterID = chapterID

	if initial != nil {
		t.lastPosition = initial.PositionSec
		t.lastSavedAt = initial.UpdatedAt
		t.storedDuration = initial.DurationSec
		return
	}

	rec, ok, err := t.store.Get(bookID, chapterID)
	if err != nil {
		t.log.Warnw("failed to load stored progress",
			"book", bookID,
			"chapter", chapterID,
			"error", err,
		)
		return
	}
	if ok {
		t.lastPosition = rec.PositionSec
		t.lastSavedAt = rec.UpdatedAt
		t.storedDuration = rec.DurationSec
	}
}

// Record applies the write policy to one snapshot. Without a context it
// is a no-op. Store failures are logged and swallowed; playback never
// blocks on persistence.
func (t *Tracker) Record(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bookID == "" || t.chapterID == "" {
		return
	}

	position := snap.Position
	if position < 0 {
		position = 0
	}

	// duration is learned once and then trusted
	if snap.Duration > 0 && t.storedDuration <= 0 {
		t.storedDuration = snap.Duration
	}

	now := t.now()
	if !snap.Force && !snap.Completed {
		if math.Abs(position-t.lastPosition) < t.MinPositionDelta {
			return
		}
		if now.Sub(t.lastSavedAt) < t.MinSaveInterval {
			return
		}
	}

	// a finished chapter must read as 100%
	if snap.Completed && position < t.storedDuration {
		position = t.storedDuration
	}

	rec := Record{
		BookID:      t.bookID,
		ChapterID:   t.chapterID,
		PositionSec: position,
		DurationSec: t.storedDuration,
		UpdatedAt:   now,
		Completed:   snap.Completed,
	}
	if err := t.store.Set(rec); err != nil {
		t.log.Warnw("failed to persist progress",
			"book", t.bookID,
			"chapter", t.chapterID,
			"position", position,
			"error", err,
		)
		return
	}

	// deltas are measured from the durable state, not the raw snapshot
	t.lastPosition = position
	t.lastSavedAt = now
}

// Position returns the last durable position for the current context,
// used to resume playback where the listener left off.
func (t *Tracker) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPosition
}

// Reset clears all in-memory state without touching the store.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

func (t *Tracker) clearLocked() {
	t.bookID = ""
	t.chapterID = ""
	t.lastPosition = 0
	t.lastSavedAt = time.Time{}
	t.storedDuration = 0
}
