package subtitle

import (
	"strings"
	"testing"
)

func TestWriteSRT(t *testing.T) {
	items := Timeline{
		{ID: 1, StartTime: 0, EndTime: 1.5, Text: "Hello"},
		{ID: 2, StartTime: 1.5, EndTime: 4, Text: "world."},
	}

	var sb strings.Builder
	if err := WriteSRT(&sb, items); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}

	want := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n" +
		"2\n00:00:01,500 --> 00:00:04,000\nworld.\n\n"
	if sb.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", sb.String(), want)
	}
}

func TestWriteSRTRoundTrip(t *testing.T) {
	original := Timeline{
		{ID: 1, StartTime: 0.25, EndTime: 1.5, Text: "one"},
		{ID: 2, StartTime: 2, EndTime: 3.125, Text: "two\nlines"},
		{ID: 3, StartTime: 3723.004, EndTime: 3724, Text: "three"},
	}

	var sb strings.Builder
	if err := WriteSRT(&sb, original); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}

	parsed, err := ParseString(sb.String())
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("expected %d items, got %d", len(original), len(parsed))
	}
	for i := range original {
		if parsed[i] != original[i] {
			t.Errorf("item %d: got %+v, want %+v", i, parsed[i], original[i])
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{3723.004, "01:02:03,004"},
		{-2, "00:00:00,000"},
		{0.0004, "00:00:00,000"}, // rounds down
		{0.0006, "00:00:00,001"}, // rounds up
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatTimestamp(tt.seconds); got != tt.want {
				t.Errorf("formatTimestamp(%v) = %q, want %q",
					tt.seconds, got, tt.want)
			}
		})
	}
}
