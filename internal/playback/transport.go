package playback

import (
	"context"
	"sync"
	"time"
)

// Transport is the media backend the session drives. Implementations
// own decode and output on their own threads; the session only
// observes time and issues transport commands.
type Transport interface {
	Load(ctx context.Context, url string) error
	Play() error
	Pause() error
	Seek(seconds float64) error

	// CurrentTime reports the playback position, false when no media
	// is loaded.
	CurrentTime() (float64, bool)
	Duration() float64

	// Done is closed when the media reaches its end.
	Done() <-chan struct{}
}

// ClockTransport simulates playback against the wall clock. It backs
// the play command and tests; a real app substitutes an audio engine.
type ClockTransport struct {
	mu        sync.Mutex
	duration  float64
	base      float64 // position when playback last resumed or paused
	resumedAt time.Time
	playing   bool
	loaded    bool
	done      chan struct{}
	doneOnce  sync.Once
}

func NewClockTransport(duration float64) *ClockTransport {
	return &ClockTransport{
		duration: duration,
		done:     make(chan struct{}),
	}
}

func (t *ClockTransport) Load(ctx context.Context, url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded = true
	t.base = 0
	t.playing = false
	return ctx.Err()
}

func (t *ClockTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		t.resumedAt = time.Now()
		t.playing = true
	}
	return nil
}

func (t *ClockTransport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = t.positionLocked()
	t.playing = false
	return nil
}

func (t *ClockTransport) Seek(seconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if seconds > t.duration {
		seconds = t.duration
	}
	t.base = seconds
	t.resumedAt = time.Now()

	// seeking back from the end re-arms end-of-media, so a replay does
	// not observe the previous run's done signal
	if seconds < t.duration {
		select {
		case <-t.done:
			t.done = make(chan struct{})
			t.doneOnce = sync.Once{}
		default:
		}
	}
	return nil
}

func (t *ClockTransport) CurrentTime() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return 0, false
	}
	pos := t.positionLocked()
	if pos >= t.duration {
		t.base = t.duration
		t.playing = false
		t.doneOnce.Do(func() { close(t.done) })
		return t.duration, true
	}
	return pos, true
}

func (t *ClockTransport) Duration() float64 {
	return t.duration
}

func (t *ClockTransport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *ClockTransport) positionLocked() float64 {
	pos := t.base
	if t.playing {
		pos += time.Since(t.resumedAt).Seconds()
	}
	if pos > t.duration {
		pos = t.duration
	}
	return pos
}
