package subtitle

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func words(items ...TimedItem) Timeline {
	for i := range items {
		items[i].ID = i + 1
	}
	return items
}

func TestSegmentMergesUntilTerminator(t *testing.T) {
	input := words(
		TimedItem{StartTime: 0.0, EndTime: 1.5, Text: "Hello"},
		TimedItem{StartTime: 1.5, EndTime: 4.0, Text: "world."},
	)

	sentences := NewSegmenter().Segment(input)
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}

	got := sentences[0]
	if got.ID != 1 {
		t.Errorf("expected sentence id 1, got %d", got.ID)
	}
	if got.Text != "Hello world." {
		t.Errorf("expected text %q, got %q", "Hello world.", got.Text)
	}
	// anticipation lead clamps at zero
	if got.StartTime != 0.0 {
		t.Errorf("expected start 0.0, got %v", got.StartTime)
	}
	if got.EndTime != 4.0 {
		t.Errorf("expected end 4.0, got %v", got.EndTime)
	}
}

func TestSegmentAppliesAnticipationLead(t *testing.T) {
	input := words(
		TimedItem{StartTime: 2.0, EndTime: 2.5, Text: "Hi."},
	)

	sentences := NewSegmenter().Segment(input)
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}
	if got := sentences[0].StartTime; got != 1.7 {
		t.Errorf("expected start 1.7 (2.0 - 0.3 lead), got %v", got)
	}
}

func TestSegmentSplitsOnEachTerminator(t *testing.T) {
	input := words(
		TimedItem{StartTime: 0, EndTime: 1, Text: "One."},
		TimedItem{StartTime: 1, EndTime: 2, Text: "Two?"},
		TimedItem{StartTime: 2, EndTime: 3, Text: "Three!"},
	)

	sentences := NewSegmenter().Segment(input)
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(sentences))
	}
	for i, want := range []string{"One.", "Two?", "Three!"} {
		if sentences[i].Text != want {
			t.Errorf("sentence %d: got %q, want %q", i, sentences[i].Text, want)
		}
		if sentences[i].ID != i+1 {
			t.Errorf("sentence %d: got id %d, want %d", i, sentences[i].ID, i+1)
		}
	}
}

func TestSegmentFlushesTrailingWords(t *testing.T) {
	input := words(
		TimedItem{StartTime: 0, EndTime: 1, Text: "Done."},
		TimedItem{StartTime: 1, EndTime: 2, Text: "trailing"},
		TimedItem{StartTime: 2, EndTime: 3, Text: "words"},
	)

	sentences := NewSegmenter().Segment(input)
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[1].Text != "trailing words" {
		t.Errorf("trailing words lost: got %q", sentences[1].Text)
	}
}

func TestSegmentSplitsAtLargestGap(t *testing.T) {
	// 20 words forces a split; the widest pause sits after word 5.
	var input Timeline
	cursor := 0.0
	for i := 0; i < 20; i++ {
		gap := 0.01
		if i == 5 {
			gap = 2.0
		}
		input = append(input, TimedItem{
			ID:        i + 1,
			StartTime: cursor,
			EndTime:   cursor + 0.2,
			Text:      fmt.Sprintf("w%d", i),
		})
		cursor += 0.2 + gap
	}

	sentences := NewSegmenter().Segment(input)
	if len(sentences) < 2 {
		t.Fatalf("expected at least 2 sentences, got %d", len(sentences))
	}

	first := strings.Fields(sentences[0].Text)
	if len(first) != 6 {
		t.Errorf("expected split after the widest pause (6 words), got %d: %q",
			len(first), sentences[0].Text)
	}

	// only the first sub-group gets the anticipation lead
	if sentences[0].StartTime != 0.0 {
		t.Errorf("first sub-group start: got %v, want 0.0", sentences[0].StartTime)
	}
	secondStart := input[6].StartTime
	if sentences[1].StartTime != secondStart {
		t.Errorf("second sub-group start: got %v, want first word start %v",
			sentences[1].StartTime, secondStart)
	}
}

func TestSegmentMidpointFallbackForZeroGaps(t *testing.T) {
	// contiguous words, no pause data anywhere
	var input Timeline
	for i := 0; i < 20; i++ {
		input = append(input, TimedItem{
			ID:        i + 1,
			StartTime: float64(i),
			EndTime:   float64(i + 1),
			Text:      fmt.Sprintf("w%d", i),
		})
	}

	sentences := NewSegmenter().Segment(input)
	if len(sentences) < 2 {
		t.Fatalf("expected midpoint split, got %d sentences", len(sentences))
	}
	// count/2 - 1 = 9, so the first half carries 10 words
	first := strings.Fields(sentences[0].Text)
	if len(first) != 10 {
		t.Errorf("expected 10 words in first half, got %d", len(first))
	}
}

func TestSegmentTwoWordMidpointSplitsAfterFirst(t *testing.T) {
	seg := NewSegmenter()
	seg.MaxChars = 5 // force a split on a tiny group

	input := words(
		TimedItem{StartTime: 0, EndTime: 1, Text: "alpha"},
		TimedItem{StartTime: 1, EndTime: 2, Text: "omega."},
	)

	sentences := seg.Segment(input)
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].Text != "alpha" || sentences[1].Text != "omega." {
		t.Errorf("unexpected split: %q / %q", sentences[0].Text, sentences[1].Text)
	}
}

func TestSegmentLengthBound(t *testing.T) {
	// sparse punctuation narration: 60 words, one terminator at the end
	var input Timeline
	for i := 0; i < 60; i++ {
		text := "narration"
		if i == 59 {
			text = "narration."
		}
		input = append(input, TimedItem{
			ID:        i + 1,
			StartTime: float64(i) * 0.4,
			EndTime:   float64(i)*0.4 + 0.3,
			Text:      text,
		})
	}

	seg := NewSegmenter()
	for _, s := range seg.Segment(input) {
		wordCount := len(strings.Fields(s.Text))
		charCount := utf8.RuneCountInString(s.Text)
		if wordCount > seg.MaxWords && charCount > seg.MaxChars && wordCount > 1 {
			t.Errorf("sentence exceeds both bounds: %d words, %d chars: %q",
				wordCount, charCount, s.Text)
		}
	}
}

func TestSegmentIsDeterministic(t *testing.T) {
	input := words(
		TimedItem{StartTime: 0, EndTime: 1, Text: "a"},
		TimedItem{StartTime: 1.2, EndTime: 2, Text: "b."},
		TimedItem{StartTime: 2.5, EndTime: 3, Text: "c"},
	)

	seg := NewSegmenter()
	first := seg.Segment(input)
	second := seg.Segment(input)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic segmentation: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("sentence %d differs between runs: %+v vs %+v",
				i, first[i], second[i])
		}
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	if got := NewSegmenter().Segment(nil); len(got) != 0 {
		t.Errorf("expected empty output for empty input, got %d", len(got))
	}
}

func TestEndsSentence(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"world.", true},
		{"really?", true},
		{"stop!", true},
		{"note:", true},
		{"pause;", true},
		{"好。", true},
		{"嗎？", true},
		{"word", false},
		{"", false},
		{"end.\"", true},  // terminator behind trailing quote
		{"wait...", true}, // ellipsis of plain periods
		{"item7", false},
		{"(aside)", false}, // punctuation only, no terminator
		{"a.b", false},     // terminator buried before a letter
		{"  spaced.  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := endsSentence(tt.text); got != tt.want {
				t.Errorf("endsSentence(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
