package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwhsu/storycast/internal/subtitle"
	"github.com/spf13/cobra"
)

var segmentCmd = &cobra.Command{
	Use:   "segment [word_srt]",
	Short: "Group word-level subtitles into sentence subtitles",
	Long: `Read an SRT file where each entry is a single timed word and write
an SRT file of full sentences.

Words are merged until sentence-ending punctuation, then oversized
sentences are split at the largest timing gap. Sentence start times are
pulled slightly earlier so the display switches before the voice does.

Examples:
  storycast segment chapter01.words.srt
  storycast segment chapter01.words.srt -o chapter01.srt --max-words 12
  storycast segment chapter01.words.srt --lead 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)

	segmentCmd.Flags().
		Int("max-words", subtitle.DefaultMaxWords, "Maximum words per sentence subtitle")
	segmentCmd.Flags().
		Int("max-chars", subtitle.DefaultMaxChars, "Maximum characters per sentence subtitle")
	segmentCmd.Flags().
		Float64("lead", subtitle.DefaultAnticipationLead, "Seconds to pull each sentence start earlier")
}

func runSegment(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	maxWords, _ := cmd.Flags().GetInt("max-words")
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	lead, _ := cmd.Flags().GetFloat64("lead")
	outputPath, _ := cmd.Flags().GetString("output")

	if maxWords <= 0 {
		return fmt.Errorf("max-words must be positive, got %d", maxWords)
	}
	if maxChars <= 0 {
		return fmt.Errorf("max-chars must be positive, got %d", maxChars)
	}
	if lead < 0 {
		return fmt.Errorf("lead must not be negative, got %f", lead)
	}

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", inputPath)
	}

	if outputPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		base = strings.TrimSuffix(base, ".words")
		outputPath = base + ".sentences.srt"
	}

	words, err := subtitle.ParseFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(words) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	segmenter := subtitle.NewSegmenter()
	segmenter.MaxWords = maxWords
	segmenter.MaxChars = maxChars
	segmenter.AnticipationLead = lead

	sentences := segmenter.Segment(words)

	logger.Infow("Segmented word timeline",
		"input", inputPath,
		"words", len(words),
		"sentences", len(sentences),
	)

	if err := subtitle.WriteSRTFile(outputPath, sentences); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Sentence subtitles written: %s\n", absOutput)
	fmt.Printf("  Words in: %d\n", len(words))
	fmt.Printf("  Sentences out: %d\n", len(sentences))

	return nil
}
