package subtitle

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentence terminators, western and CJK full-width
var sentenceTerminators = map[rune]bool{
	'.': true, '?': true, '!': true, ':': true, ';': true,
	'。': true, '？': true, '！': true, '：': true, '；': true,
}

// Segmenter merges word-level items into sentence-level items using
// punctuation and length heuristics. The thresholds are tunables; the
// defaults match the values the client apps were calibrated against.
type Segmenter struct {
	MaxWords         int     // groups longer than this are split
	MaxChars         int     // joined-text length cap for groups within MaxWords
	AnticipationLead float64 // seconds a sentence appears before its first word
}

const (
	DefaultMaxWords         = 18
	DefaultMaxChars         = 50
	DefaultAnticipationLead = 0.3
)

func NewSegmenter() *Segmenter {
	return &Segmenter{
		MaxWords:         DefaultMaxWords,
		MaxChars:         DefaultMaxChars,
		AnticipationLead: DefaultAnticipationLead,
	}
}

// Segment builds the sentence-level timeline from a word-level one.
// It is a pure function of its input: word items are accumulated until
// one ends with a sentence terminator, oversized groups are split at
// the largest inter-word pause, and any trailing words without final
// punctuation are flushed as a last sentence so nothing is lost.
func (s *Segmenter) Segment(words Timeline) Timeline {
	if len(words) == 0 {
		return nil
	}

	var sentences Timeline
	nextID := words[0].ID

	var pending []TimedItem
	for _, word := range words {
		pending = append(pending, word)
		if endsSentence(word.Text) {
			sentences, nextID = s.emitGroup(pending, sentences, nextID)
			pending = nil
		}
	}
	if len(pending) > 0 {
		sentences, _ = s.emitGroup(pending, sentences, nextID)
	}

	return sentences
}

// emitGroup splits one closed group if needed and appends the resulting
// sentences. The anticipation lead applies only to the first sub-group;
// later sub-groups start exactly at their first word.
func (s *Segmenter) emitGroup(group []TimedItem, out Timeline, nextID int) (Timeline, int) {
	for i, part := range s.splitOversized(group) {
		text := joinWords(part)
		if text == "" {
			continue
		}

		start := part[0].StartTime
		if i == 0 {
			start -= s.AnticipationLead
			if start < 0 {
				start = 0
			}
		}

		end := part[len(part)-1].EndTime
		if end < start {
			end = start
		}

		out = append(out, TimedItem{
			ID:        nextID,
			StartTime: start,
			EndTime:   end,
			Text:      text,
		})
		nextID++
	}
	return out, nextID
}

// splitOversized recursively splits a group that exceeds the size
// thresholds, preferring the largest pause between consecutive words
// and falling back to the structural midpoint when no pause data
// exists. Sub-groups come back in left-to-right order.
func (s *Segmenter) splitOversized(group []TimedItem) [][]TimedItem {
	if len(group) <= 1 || !s.oversized(group) {
		return [][]TimedItem{group}
	}

	splitAfter := len(group)/2 - 1
	largestGap := 0.0
	for i := 0; i < len(group)-1; i++ {
		gap := group[i+1].StartTime - group[i].EndTime
		if gap < 0 {
			gap = 0
		}
		if gap > largestGap {
			largestGap = gap
			splitAfter = i
		}
	}

	left := group[:splitAfter+1]
	right := group[splitAfter+1:]
	return append(s.splitOversized(left), s.splitOversized(right)...)
}

func (s *Segmenter) oversized(group []TimedItem) bool {
	if len(group) > s.MaxWords {
		return true
	}
	return utf8.RuneCountInString(joinWords(group)) > s.MaxChars
}

func joinWords(group []TimedItem) string {
	texts := make([]string, len(group))
	for i, item := range group {
		texts[i] = item.Text
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// endsSentence reports whether the word's trailing punctuation run
// contains a sentence terminator. Scanning walks backward from the end
// and stops as soon as a letter or digit is seen, so terminators buried
// inside a word do not close a sentence.
func endsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if sentenceTerminators[r] {
			return true
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return false
}
