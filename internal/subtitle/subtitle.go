package subtitle

// TimedItem is a single timed subtitle unit, either a word-level item
// straight from the alignment file or a sentence built by the segmenter.
type TimedItem struct {
	ID        int
	StartTime float64 // seconds
	EndTime   float64 // seconds
	Text      string
}

// Duration returns the span of the item in seconds.
func (it TimedItem) Duration() float64 {
	return it.EndTime - it.StartTime
}

// Contains reports whether t falls inside the item's closed interval.
func (it TimedItem) Contains(t float64) bool {
	return it.StartTime <= t && t <= it.EndTime
}

// Timeline is a sequence of TimedItem sorted ascending by start time.
type Timeline []TimedItem

// TotalDuration returns the end time of the last item, or 0 when empty.
func (tl Timeline) TotalDuration() float64 {
	if len(tl) == 0 {
		return 0
	}
	return tl[len(tl)-1].EndTime
}

// DisplayMode selects which timeline drives the subtitle display.
type DisplayMode string

const (
	ModeWord     DisplayMode = "word"
	ModeSentence DisplayMode = "sentence"
)

// SentenceContext is a read-only window around one sentence, handed to
// translation/explanation requests so they see the surrounding text.
type SentenceContext struct {
	Index    int
	Previous *TimedItem
	Current  TimedItem
	Next     *TimedItem
}
