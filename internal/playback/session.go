package playback

import (
	"context"
	"sync"
	"time"

	"github.com/jwhsu/storycast/internal/logging"
	"github.com/jwhsu/storycast/internal/progress"
	"github.com/jwhsu/storycast/internal/subtitle"
)

// Snapshot is the UI-facing view of the session, recomputed on every
// clock tick.
type Snapshot struct {
	CurrentTime float64
	Duration    float64
	State       State
	Progress    float64 // 0..1
}

// Session glues the transport, the two subtitle timelines, and the
// progress tracker into one unit. All state changes happen under a
// single mutex; subscriber callbacks run inside that serialization and
// must not call back into the session.
type Session struct {
	TickInterval time.Duration

	mu        sync.Mutex
	log       *logging.Logger
	transport Transport
	tracker   *progress.Tracker
	segmenter *subtitle.Segmenter

	words     subtitle.Timeline
	sentences subtitle.Timeline
	mode      subtitle.DisplayMode

	state       State
	duration    float64
	position    float64
	activeIndex int

	snapshotSubs []func(Snapshot)
	itemSubs     []func(subtitle.TimedItem, bool)
}

func NewSession(transport Transport, tracker *progress.Tracker, log *logging.Logger) *Session {
	return &Session{
		TickInterval: 100 * time.Millisecond,
		log:          log,
		transport:    transport,
		tracker:      tracker,
		segmenter:    subtitle.NewSegmenter(),
		mode:         subtitle.ModeSentence,
		state:        State{Phase: PhaseIdle},
		activeIndex:  -1,
	}
}

// OnSnapshot registers a callback for every published snapshot.
func (s *Session) OnSnapshot(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotSubs = append(s.snapshotSubs, fn)
}

// OnActiveItem registers a callback fired whenever the active subtitle
// item changes. ok is false when no item is active.
func (s *Session) OnActiveItem(fn func(item subtitle.TimedItem, ok bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemSubs = append(s.itemSubs, fn)
}

// Load points the session at a chapter: media through the transport,
// the word timeline from the alignment file, and the progress context.
// Playback resumes from the stored position when one exists.
func (s *Session) Load(ctx context.Context, bookID, chapterID, url string, words subtitle.Timeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setStateLocked(State{Phase: PhaseLoading})

	if err := s.transport.Load(ctx, url); err != nil {
		s.setStateLocked(Errored(err.Error()))
		return err
	}

	s.words = words
	s.sentences = s.segmenter.Segment(words)
	s.duration = s.transport.Duration()
	s.position = 0
	s.activeIndex = -1

	s.tracker.UpdateContext(bookID, chapterID, nil)
	if resume := s.tracker.Position(); resume > 0 && resume < s.duration {
		if err := s.transport.Seek(resume); err != nil {
			s.log.Warnw("failed to seek to stored position",
				"position", resume,
				"error", err,
			)
		} else {
			s.position = resume
		}
	}

	s.recomputeIndexLocked(true)
	s.setStateLocked(State{Phase: PhaseReady})
	return nil
}

// Play starts or resumes playback. From the finished state it replays
// the chapter from the beginning.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Phase {
	case PhaseReady, PhasePaused, PhaseFinished:
	case PhasePlaying:
		return nil
	default:
		return nil
	}

	if s.state.Phase == PhaseFinished {
		if err := s.transport.Seek(0); err != nil {
			s.setStateLocked(Errored(err.Error()))
			return err
		}
		s.position = 0
		s.recomputeIndexLocked(true)
	}

	if err := s.transport.Play(); err != nil {
		s.setStateLocked(Errored(err.Error()))
		return err
	}
	s.setStateLocked(State{Phase: PhasePlaying})
	return nil
}

// Pause suspends playback without persisting anything beyond the
// ordinary tick policy.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseLocked(false)
}

// PauseForInteraction suspends playback because the user grabbed the
// controls, forcing a progress write so the pause point is never lost.
func (s *Session) PauseForInteraction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseLocked(true)
}

func (s *Session) pauseLocked(force bool) error {
	if s.state.Phase != PhasePlaying {
		return nil
	}
	if err := s.transport.Pause(); err != nil {
		s.setStateLocked(Errored(err.Error()))
		return err
	}
	if pos, ok := s.transport.CurrentTime(); ok {
		s.position = pos
	}
	s.setStateLocked(State{Phase: PhasePaused})
	if force {
		s.tracker.Record(progress.Snapshot{
			Position: s.position,
			Duration: s.duration,
			Force:    true,
		})
	}
	return nil
}

// Seek moves playback to t. The position and subtitle index update
// immediately so the display never lags the scrubber. commit marks a
// user-committed seek and forces a progress write; scrubbing seeks
// pass false to avoid spamming the store.
func (s *Session) Seek(t float64, commit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(t, commit)
}

// Skip jumps relative to the current position.
func (s *Session) Skip(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(s.position+delta, true)
}

func (s *Session) seekLocked(t float64, commit bool) error {
	if t < 0 {
		t = 0
	}
	if s.duration > 0 && t > s.duration {
		t = s.duration
	}

	if err := s.transport.Seek(t); err != nil {
		s.setStateLocked(Errored(err.Error()))
		return err
	}

	s.position = t
	s.recomputeIndexLocked(false)
	s.publishSnapshotLocked()

	if commit {
		s.tracker.Record(progress.Snapshot{
			Position: t,
			Duration: s.duration,
			Force:    true,
		})
	}
	return nil
}

// SetDisplayMode toggles word-level and sentence-level display. The
// active index is recomputed from scratch against the other timeline;
// there is no mapping between word and sentence indices.
func (s *Session) SetDisplayMode(mode subtitle.DisplayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.mode {
		return
	}
	s.mode = mode
	s.recomputeIndexLocked(true)
}

// DisplayMode returns the current display mode.
func (s *Session) DisplayMode() subtitle.DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Snapshot returns the current UI snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ActiveItem returns the subtitle item active in the current display
// mode, false when none is active yet.
func (s *Session) ActiveItem() (subtitle.TimedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtitle.ItemAt(s.timelineLocked(), s.activeIndex)
}

// SentenceContext returns the active sentence with its neighbors,
// regardless of display mode. Used by explanation requests.
func (s *Session) SentenceContext() (subtitle.SentenceContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := subtitle.IndexForTime(s.sentences, s.position)
	return subtitle.ContextAround(s.sentences, idx)
}

// Run drives the session with a periodic tick until the context is
// cancelled or playback finishes or errors. A host that replays the
// chapter calls Play and then Run again.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}

		s.mu.Lock()
		phase := s.state.Phase
		s.mu.Unlock()
		if phase == PhaseFinished || phase == PhaseError {
			return
		}
	}
}

// tick recomputes the snapshot from the playback clock, refreshes the
// active subtitle, and forwards an ordinary progress record.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhasePlaying {
		return
	}

	if pos, ok := s.transport.CurrentTime(); ok {
		s.position = pos
	}

	// the position decides end-of-media; the done signal is consulted
	// only when the duration is unknown, since a transport's done
	// channel can be stale right after a replay seek
	ended := s.duration > 0 && s.position >= s.duration
	if !ended && s.duration <= 0 {
		select {
		case <-s.transport.Done():
			ended = true
		default:
		}
	}
	if ended {
		s.finishLocked()
		return
	}

	s.recomputeIndexLocked(false)
	s.publishSnapshotLocked()

	s.tracker.Record(progress.Snapshot{
		Position: s.position,
		Duration: s.duration,
	})
}

func (s *Session) finishLocked() {
	if s.duration > 0 {
		s.position = s.duration
	}
	s.recomputeIndexLocked(false)
	s.setStateLocked(State{Phase: PhaseFinished})
	s.tracker.Record(progress.Snapshot{
		Position:  s.position,
		Duration:  s.duration,
		Force:     true,
		Completed: true,
	})
}

func (s *Session) timelineLocked() subtitle.Timeline {
	if s.mode == subtitle.ModeWord {
		return s.words
	}
	return s.sentences
}

// recomputeIndexLocked refreshes the active item, notifying item
// subscribers on change. notifyAlways pushes the current item even when
// the index is unchanged, for loads and mode switches.
func (s *Session) recomputeIndexLocked(notifyAlways bool) {
	timeline := s.timelineLocked()
	idx := subtitle.IndexForTime(timeline, s.position)
	if idx == s.activeIndex && !notifyAlways {
		return
	}
	s.activeIndex = idx

	item, ok := subtitle.ItemAt(timeline, idx)
	for _, fn := range s.itemSubs {
		fn(item, ok)
	}
}

func (s *Session) setStateLocked(state State) {
	s.state = state
	s.publishSnapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	prog := 0.0
	if s.duration > 0 {
		prog = s.position / s.duration
		if prog < 0 {
			prog = 0
		}
		if prog > 1 {
			prog = 1
		}
	}
	return Snapshot{
		CurrentTime: s.position,
		Duration:    s.duration,
		State:       s.state,
		Progress:    prog,
	}
}

func (s *Session) publishSnapshotLocked() {
	snap := s.snapshotLocked()
	for _, fn := range s.snapshotSubs {
		fn(snap)
	}
}
