package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jwhsu/storycast/internal/media"
	"github.com/jwhsu/storycast/internal/playback"
	"github.com/jwhsu/storycast/internal/progress"
	"github.com/jwhsu/storycast/internal/subtitle"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [audio_file]",
	Short: "Play a chapter with synced sentence subtitles",
	Long: `Simulate chapter playback against the system clock, printing each
sentence as it becomes active and recording resumable progress.

The audio file is probed for its duration; playback itself is a clock
simulation, so no audio device is needed. Progress is stored per
book/chapter pair and playback resumes from the stored position.

Examples:
  storycast play chapter01.mp3 --subtitles chapter01.words.srt
  storycast play chapter01.mp3 -s chapter01.words.srt --book odyssey --chapter ch01
  storycast play chapter01.mp3 -s chapter01.words.srt --mode word --from 90`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().
		StringP("subtitles", "s", "", "Word-level SRT file for the chapter (required)")
	playCmd.Flags().
		String("book", "", "Book identifier for progress tracking (defaults to audio file name)")
	playCmd.Flags().
		String("chapter", "", "Chapter identifier for progress tracking (defaults to subtitle file name)")
	playCmd.Flags().
		String("progress-file", "", "Progress store path (default ~/.storycast/progress.json)")
	playCmd.Flags().
		String("mode", "sentence", "Subtitle display mode (sentence, word)")
	playCmd.Flags().
		Float64("from", -1, "Start position in seconds, overriding stored progress")
	playCmd.Flags().
		Duration("tick", 100*time.Millisecond, "Clock tick interval")

	_ = playCmd.MarkFlagRequired("subtitles")
}

func runPlay(cmd *cobra.Command, args []string) error {
	audioPath := args[0]

	subtitlePath, _ := cmd.Flags().GetString("subtitles")
	bookID, _ := cmd.Flags().GetString("book")
	chapterID, _ := cmd.Flags().GetString("chapter")
	progressPath, _ := cmd.Flags().GetString("progress-file")
	modeStr, _ := cmd.Flags().GetString("mode")
	from, _ := cmd.Flags().GetFloat64("from")
	tick, _ := cmd.Flags().GetDuration("tick")

	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return fmt.Errorf("audio file not found: %s", audioPath)
	}
	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}
	if !media.IsAudioFile(audioPath) {
		return fmt.Errorf(
			"unsupported audio format %q",
			filepath.Ext(audioPath),
		)
	}

	mode, err := parseDisplayMode(modeStr)
	if err != nil {
		return err
	}

	if tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", tick)
	}

	if bookID == "" {
		bookID = baseName(audioPath)
	}
	if chapterID == "" {
		chapterID = baseName(subtitlePath)
	}

	if progressPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		progressPath = filepath.Join(home, ".storycast", "progress.json")
	}

	ctx, stop := signal.NotifyContext(
		cmd.Context(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	words, err := subtitle.ParseFile(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(words) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	duration, err := media.Duration(audioPath)
	if err != nil {
		return fmt.Errorf("failed to probe audio duration: %w", err)
	}

	logger.Infow("Starting playback",
		"audio", audioPath,
		"subtitles", subtitlePath,
		"book", bookID,
		"chapter", chapterID,
		"duration", duration,
		"mode", modeStr,
	)

	store := progress.NewFileStore(progressPath)
	tracker := progress.NewTracker(store, logger)
	transport := playback.NewClockTransport(duration)

	session := playback.NewSession(transport, tracker, logger)
	session.TickInterval = tick
	session.SetDisplayMode(mode)

	session.OnActiveItem(func(item subtitle.TimedItem, ok bool) {
		if !ok {
			return
		}
		fmt.Printf(
			"[%7.2fs] %s\n",
			item.StartTime,
			item.Text,
		)
	})

	if err := session.Load(ctx, bookID, chapterID, audioPath, words); err != nil {
		return fmt.Errorf("failed to load chapter: %w", err)
	}

	if from >= 0 {
		if err := session.Seek(from, true); err != nil {
			return fmt.Errorf("failed to seek to %.2fs: %w", from, err)
		}
	}

	if err := session.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	session.Run(ctx)

	if err := ctx.Err(); err != nil {
		// interrupted; persist the stop point before exiting
		if perr := session.PauseForInteraction(); perr != nil {
			logger.Warnw("failed to pause on interrupt", "error", perr)
		}
		snap := session.Snapshot()
		fmt.Printf("\nStopped at %.2fs of %.2fs\n", snap.CurrentTime, snap.Duration)
		return nil
	}

	snap := session.Snapshot()
	if snap.State.Phase == playback.PhaseError {
		return fmt.Errorf("playback failed: %s", snap.State.Message)
	}

	fmt.Printf("\nChapter finished (%.2fs)\n", snap.Duration)
	return nil
}

func parseDisplayMode(s string) (subtitle.DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sentence", "":
		return subtitle.ModeSentence, nil
	case "word":
		return subtitle.ModeWord, nil
	default:
		return subtitle.ModeSentence, fmt.Errorf(
			"invalid display mode %q: use sentence or word",
			s,
		)
	}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
