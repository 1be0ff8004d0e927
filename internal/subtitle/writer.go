package subtitle

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// WriteSRT renders a timeline as SubRip text. The timestamp format is
// kept bit-exact with the one the offline alignment pipeline emits, so
// segmented output can feed back into the same tools.
func WriteSRT(w io.Writer, items Timeline) error {
	var sb strings.Builder
	for i, item := range items {
		// index (1-based)
		sb.WriteString(fmt.Sprintf("%d\n", i+1))

		// timestamps: 00:00:00,000 --> 00:00:00,000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatTimestamp(item.StartTime),
			formatTimestamp(item.EndTime)))

		sb.WriteString(item.Text)
		sb.WriteString("\n\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	return nil
}

// WriteSRTFile writes a timeline to the given path, creating parent
// directories as needed.
func WriteSRTFile(path string, items Timeline) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}
	defer file.Close()

	return WriteSRT(file, items)
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds * 1000))

	hours := total / 3600000
	minutes := (total / 60000) % 60
	secs := (total / 1000) % 60
	millis := total % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
