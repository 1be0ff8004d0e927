package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwhsu/storycast/internal/media"
	"github.com/jwhsu/storycast/internal/subtitle"
	"github.com/spf13/cobra"
)

var clipCmd = &cobra.Command{
	Use:   "clip [audio_file]",
	Short: "Export the audio for a single sentence",
	Long: `Cut the audio span of one sentence out of a chapter file, for
repeat-after-me practice.

The word-level subtitle file is segmented into sentences and the chosen
sentence's time range is extracted without re-encoding.

Examples:
  storycast clip chapter01.mp3 -s chapter01.words.srt --sentence 3
  storycast clip chapter01.mp3 -s chapter01.words.srt --sentence 3 -o line.mp3
  storycast clip chapter01.mp3 -s chapter01.words.srt --sentence 3 --pad 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runClip,
}

func init() {
	rootCmd.AddCommand(clipCmd)

	clipCmd.Flags().
		StringP("subtitles", "s", "", "Word-level SRT file for the chapter (required)")
	clipCmd.Flags().
		IntP("sentence", "n", 0, "1-based sentence number to export (required)")
	clipCmd.Flags().
		Float64("pad", 0, "Extra seconds of audio on each side of the sentence")

	_ = clipCmd.MarkFlagRequired("subtitles")
	_ = clipCmd.MarkFlagRequired("sentence")
}

func runClip(cmd *cobra.Command, args []string) error {
	audioPath := args[0]

	subtitlePath, _ := cmd.Flags().GetString("subtitles")
	sentenceNum, _ := cmd.Flags().GetInt("sentence")
	pad, _ := cmd.Flags().GetFloat64("pad")
	outputPath, _ := cmd.Flags().GetString("output")

	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return fmt.Errorf("audio file not found: %s", audioPath)
	}
	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}
	if pad < 0 {
		return fmt.Errorf("pad must not be negative, got %f", pad)
	}

	words, err := subtitle.ParseFile(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}

	sentences := subtitle.NewSegmenter().Segment(words)
	if sentenceNum < 1 || sentenceNum > len(sentences) {
		return fmt.Errorf(
			"sentence %d out of range: file has %d sentences",
			sentenceNum,
			len(sentences),
		)
	}
	sentence := sentences[sentenceNum-1]

	start := sentence.StartTime - pad
	if start < 0 {
		start = 0
	}
	end := sentence.EndTime + pad

	if outputPath == "" {
		ext := filepath.Ext(audioPath)
		base := baseName(audioPath)
		outputPath = fmt.Sprintf("%s.sentence%03d%s", base, sentenceNum, ext)
	}

	logger.Infow("Exporting sentence clip",
		"audio", audioPath,
		"sentence", sentenceNum,
		"start", start,
		"end", end,
		"text", sentence.Text,
	)

	ctx := context.Background()
	if err := media.ExtractClip(
		ctx,
		audioPath,
		outputPath,
		start,
		end,
	); err != nil {
		return fmt.Errorf("clip export failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Sentence clip exported: %s\n", absOutput)
	fmt.Printf("  Text: %s\n", sentence.Text)
	fmt.Printf("  Range: %.2fs - %.2fs\n", start, end)

	return nil
}
