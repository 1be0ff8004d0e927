package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Parse reads SRT-style word-timing text and returns a word-level
// timeline sorted ascending by start time.
//
// The format is the one produced by the offline alignment pipeline:
// blocks separated by blank lines, each block holding an integer index
// line, a "HH:MM:SS,mmm --> HH:MM:SS,mmm" line, and one or more text
// lines joined with newlines preserved. Malformed blocks are skipped
// rather than failing the whole parse; completely unusable input
// yields an empty timeline so playback can still proceed audio-only.
func Parse(r io.Reader) (Timeline, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks [][]string
	var current []string
	lineNum := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}

		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle text: %w", err)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	var items Timeline
	for _, block := range blocks {
		item, ok := parseBlock(block)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	// source order is not trusted
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime < items[j].StartTime
	})

	for i := range items {
		items[i].ID = i + 1
	}

	return items, nil
}

// ParseString parses SRT text held in memory.
func ParseString(text string) (Timeline, error) {
	return Parse(strings.NewReader(text))
}

// ParseFile parses an SRT file from disk.
func ParseFile(path string) (Timeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// parseBlock converts one raw block into a TimedItem. A block needs at
// least an index line, a timestamp line, and one text line.
func parseBlock(lines []string) (TimedItem, bool) {
	if len(lines) < 3 {
		return TimedItem{}, false
	}

	if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
		return TimedItem{}, false
	}

	start, end, ok := parseTimestampLine(lines[1])
	if !ok {
		return TimedItem{}, false
	}

	return TimedItem{
		StartTime: start,
		EndTime:   end,
		Text:      strings.Join(lines[2:], "\n"),
	}, true
}

func parseTimestampLine(line string) (start, end float64, ok bool) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, false
	}

	start, err := parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, false
	}
	end, err = parseTimestamp(parts[1])
	if err != nil {
		return 0, 0, false
	}

	return start, end, true
}

// parseTimestamp converts "HH:MM:SS,mmm" to seconds.
func parseTimestamp(s string) (float64, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ':' || r == ','
	})
	if len(fields) != 4 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	values := make([]int, 4)
	for i, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		values[i] = v
	}

	return float64(values[0])*3600 +
		float64(values[1])*60 +
		float64(values[2]) +
		float64(values[3])/1000, nil
}
