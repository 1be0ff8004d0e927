package cli

import (
	"github.com/jwhsu/storycast/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storycast",
	Short: "Audiobook player core for language learners",
	Long: `Storycast is a CLI around an audiobook playback engine built for
language learning.

It turns word-level timing files into sentence subtitles, plays chapters
with synced subtitles and resumable progress, and can ask an AI provider
to explain any sentence in context.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}
