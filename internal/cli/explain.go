package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jwhsu/storycast/internal/explain"
	"github.com/jwhsu/storycast/internal/subtitle"
	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain [word_srt]",
	Short: "Translate and explain sentences using AI",
	Long: `Ask an AI provider to translate a sentence into the learner's
native language and explain its vocabulary and grammar.

The word-level subtitle file is segmented into sentences, and the
neighboring sentences are sent along as context. With --all, every
sentence in the chapter is explained using concurrent batched requests.

Examples:
  storycast explain chapter01.words.srt --sentence 3 --target-language chinese
  storycast explain chapter01.words.srt --all -t japanese --provider anthropic
  storycast explain chapter01.words.srt -n 3 -t spanish --provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().
		StringP("target-language", "t", "", "Learner's native language (required)")
	explainCmd.Flags().
		IntP("sentence", "n", 0, "1-based sentence number to explain")
	explainCmd.Flags().
		Bool("all", false, "Explain every sentence in the chapter")
	explainCmd.Flags().
		StringP("source-language", "l", "", "Language of the audiobook text")
	explainCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY env var)")
	explainCmd.Flags().
		String("model", "", "Model to use (provider-specific, uses sensible defaults)")
	explainCmd.Flags().
		String("provider", "gemini", "Explanation provider (gemini, openai, anthropic)")
	explainCmd.Flags().
		Int("concurrency", 3, "Number of parallel explanation workers")
	explainCmd.Flags().
		Int("batch-size", explain.DefaultBatchSize, "Number of sentences per API request")

	_ = explainCmd.MarkFlagRequired("target-language")
}

func runExplain(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := context.Background()

	targetLang, _ := cmd.Flags().GetString("target-language")
	sentenceNum, _ := cmd.Flags().GetInt("sentence")
	all, _ := cmd.Flags().GetBool("all")
	sourceLang, _ := cmd.Flags().GetString("source-language")
	apiKey, _ := cmd.Flags().GetString("api-key")
	model, _ := cmd.Flags().GetString("model")
	providerStr, _ := cmd.Flags().GetString("provider")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}

	if !all && sentenceNum < 1 {
		return fmt.Errorf("use --sentence N or --all")
	}
	if all && sentenceNum > 0 {
		return fmt.Errorf("--sentence and --all are mutually exclusive")
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	provider := explain.Provider(providerStr)

	if apiKey == "" {
		apiKey = os.Getenv(providerEnvVar(provider))
	}
	if apiKey == "" {
		return fmt.Errorf(
			"API key is required: use --api-key flag or set %s environment variable",
			providerEnvVar(provider),
		)
	}

	words, err := subtitle.ParseFile(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}

	sentences := subtitle.NewSegmenter().Segment(words)
	if len(sentences) == 0 {
		return fmt.Errorf("subtitle file contains no sentences")
	}

	var items []explain.Item
	if all {
		items = make([]explain.Item, 0, len(sentences))
		for i := range sentences {
			sc, _ := subtitle.ContextAround(sentences, i)
			items = append(items, explain.ItemFromContext(sc))
		}
	} else {
		if sentenceNum > len(sentences) {
			return fmt.Errorf(
				"sentence %d out of range: file has %d sentences",
				sentenceNum,
				len(sentences),
			)
		}
		sc, ok := subtitle.ContextAround(sentences, sentenceNum-1)
		if !ok {
			return fmt.Errorf("sentence %d out of range", sentenceNum)
		}
		items = append(items, explain.ItemFromContext(sc))
	}

	opts := explain.Options{
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		Model:          model,
		BatchSize:      batchSize,
	}

	explainer, err := explain.Factory(ctx, provider, apiKey, opts)
	if err != nil {
		return fmt.Errorf("failed to create explainer: %w", err)
	}

	logger.Infow("Requesting explanations",
		"input", subtitlePath,
		"sentences", len(items),
		"provider", providerStr,
		"target_language", targetLang,
		"concurrency", concurrency,
	)

	var results []explain.Result
	if concurrentExplainer, ok := explainer.(explain.ConcurrentExplainer); ok && all {
		results, err = concurrentExplainer.ExplainWithConcurrency(
			ctx,
			items,
			concurrency,
		)
	} else {
		results, err = explainer.Explain(ctx, items)
	}
	if err != nil {
		return fmt.Errorf("explanation failed: %w", err)
	}

	byIndex := make(map[int]explain.Result, len(results))
	for _, result := range results {
		byIndex[result.Index] = result
	}

	for _, item := range items {
		result, ok := byIndex[item.Index]
		if !ok {
			logger.Warnw("No result for sentence", "index", item.Index)
			continue
		}
		fmt.Printf("Sentence %d: %s\n", item.Index+1, item.Text)
		fmt.Printf("  Translation: %s\n", result.Translation)
		fmt.Printf("  Explanation: %s\n\n", result.Explanation)
	}

	return nil
}

func providerEnvVar(provider explain.Provider) string {
	switch provider {
	case explain.ProviderGemini:
		return "GEMINI_API_KEY"
	case explain.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case explain.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "API_KEY"
	}
}
