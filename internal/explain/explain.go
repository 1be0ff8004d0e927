package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jwhsu/storycast/internal/subtitle"
)

// single sentence to explain, with surrounding sentences for context
type Item struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

// translation and learner explanation for one sentence
type Result struct {
	Index       int    `json:"index"`
	Translation string `json:"translation"`
	Explanation string `json:"explanation"`
}

// interface for sentence explanation
type Explainer interface {
	Explain(
		ctx context.Context,
		items []Item,
	) ([]Result, error)
}

// optional interface for explainers that support concurrent batch processing
type ConcurrentExplainer interface {
	Explainer
	ExplainWithConcurrency(
		ctx context.Context,
		items []Item,
		concurrency int,
	) ([]Result, error)
}

// explanation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

type Options struct {
	SourceLanguage string
	TargetLanguage string // learner's native language
	Model          string
	Prompt         string
	BatchSize      int // items per API request (default 20)
}

const DefaultBatchSize = 20

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

// creates Explainer based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Explainer, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiExplainer(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAIExplainer(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicExplainer(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported explanation provider: %s", provider)
	}
}

// ItemFromContext builds an explanation item from a sentence and its neighbors.
func ItemFromContext(sc subtitle.SentenceContext) Item {
	item := Item{
		Index: sc.Index,
		Text:  sc.Current.Text,
	}
	if sc.Previous != nil {
		item.Previous = sc.Previous.Text
	}
	if sc.Next != nil {
		item.Next = sc.Next.Text
	}
	return item
}

// BuildPrompt creates the explanation prompt for LLM providers
func BuildPrompt(opts Options, items []Item) string {
	var sb strings.Builder

	if opts.SourceLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"You are helping a language learner understand %s sentences "+
				"from an audiobook. The learner's native language is %s.\n\n",
			opts.SourceLanguage,
			opts.TargetLanguage,
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"You are helping a language learner understand sentences "+
				"from an audiobook. The learner's native language is %s.\n\n",
			opts.TargetLanguage,
		))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString(fmt.Sprintf(
		"1. For each sentence, provide a natural %s translation.\n",
		opts.TargetLanguage,
	))
	sb.WriteString(fmt.Sprintf(
		"2. Add a short explanation in %s covering vocabulary, grammar, "+
			"or idioms worth noting.\n",
		opts.TargetLanguage,
	))
	sb.WriteString(
		"3. Use the 'previous' and 'next' fields only as context; " +
			"explain only the 'text' field.\n",
	)
	sb.WriteString("4. Return ONLY a JSON array.\n")
	sb.WriteString(
		"5. Each object must have 'index', 'translation' and " +
			"'explanation' fields.\n",
	)
	sb.WriteString(
		"6. The 'index' values must match the input indices exactly.\n",
	)
	sb.WriteString("7. Do not add any markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(
			fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt),
		)
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the JSON array only:")

	return sb.String()
}

// explainBatchFunc issues one API request for a single batch of items.
type explainBatchFunc func(
	ctx context.Context,
	items []Item,
) ([]Result, error)

func splitBatches(items []Item, batchSize int) [][]Item {
	var batches [][]Item
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// runs batches one after another, stopping on the first failure
func explainSequential(
	ctx context.Context,
	items []Item,
	batchSize int,
	fn explainBatchFunc,
) ([]Result, error) {
	if len(items) == 0 {
		return []Result{}, nil
	}

	if len(items) <= batchSize {
		return fn(ctx, items)
	}

	var allResults []Result
	for i, batch := range splitBatches(items, batchSize) {
		results, err := fn(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d failed: %w", i, err)
		}
		allResults = append(allResults, results...)
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].Index < allResults[j].Index
	})

	return allResults, nil
}

// Items are split into batches of BatchSize (default 20). Each batch becomes
// one API request. Workers (up to concurrency) pull batches from a shared queue.
func explainConcurrent(
	ctx context.Context,
	items []Item,
	batchSize int,
	concurrency int,
	fn explainBatchFunc,
) ([]Result, error) {
	if len(items) == 0 {
		return []Result{}, nil
	}

	if concurrency <= 0 {
		concurrency = 3
	}

	batches := splitBatches(items, batchSize)
	if len(batches) == 1 {
		return fn(ctx, batches[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batchResult struct {
		Index   int
		Results []Result
		Error   error
	}

	workChan := make(chan int)
	resultChan := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < concurrency && i < len(batches); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case batchIdx, ok := <-workChan:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						return
					}

					results, err := fn(ctx, batches[batchIdx])
					if err != nil {
						cancel()
					}
					resultChan <- batchResult{
						Index:   batchIdx,
						Results: results,
						Error:   err,
					}
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i := range batches {
			select {
			case <-ctx.Done():
				return
			case workChan <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]batchResult, 0, len(batches))
	var firstErr error
	for result := range resultChan {
		if result.Error != nil && firstErr == nil {
			firstErr = fmt.Errorf(
				"batch %d failed: %w",
				result.Index,
				result.Error,
			)
			cancel()
		}
		if result.Error == nil {
			results = append(results, result)
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	var allResults []Result
	for _, r := range results {
		allResults = append(allResults, r.Results...)
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].Index < allResults[j].Index
	})

	return allResults, nil
}

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	jsonBlockRegex := regexp.MustCompile("```(?:json)?\\s*")
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	s = strings.TrimSpace(s)

	return s
}

// fixes invalid JSON escape sequences the model may produce, escaping the
// backslash so JSON can parse it while preserving the literal text.
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if i < len(s)-1 && s[i] == '\\' {
			next := s[i+1]
			// Valid JSON escape sequences: ", \, /, b, f, n, r, t, u
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				result.WriteByte(s[i])
				result.WriteByte(s[i+1])
				i += 2
			default:
				result.WriteString("\\\\")
				result.WriteByte(next)
				i += 2
			}
		} else {
			result.WriteByte(s[i])
			i++
		}
	}

	return result.String()
}

func extractResults(text string) ([]Result, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if results, ok := tryExtractResults(raw); ok && len(results) > 0 {
			return results, nil
		}
	}
	return nil, fmt.Errorf("no valid explanation JSON found in response")
}

func tryExtractResults(raw json.RawMessage) ([]Result, bool) {
	var results []Result
	if err := json.Unmarshal(
		raw,
		&results,
	); err == nil &&
		validateResults(results) {
		return results, true
	}

	wrapperKeys := []string{"results", "explanations", "data", "items"}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range wrapperKeys {
		if fieldRaw, exists := wrapper[key]; exists {
			var fieldResults []Result
			if err := json.Unmarshal(
				fieldRaw,
				&fieldResults,
			); err == nil && validateResults(fieldResults) {
				return fieldResults, true
			}
		}
	}

	for _, fieldRaw := range wrapper {
		var fieldResults []Result
		if err := json.Unmarshal(
			fieldRaw,
			&fieldResults,
		); err == nil && validateResults(fieldResults) {
			return fieldResults, true
		}
	}

	return nil, false
}

func validateResults(results []Result) bool {
	for _, r := range results {
		if r.Translation != "" || r.Explanation != "" {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func checkCount(results []Result, expected int) ([]Result, error) {
	if len(results) != expected {
		return nil, fmt.Errorf(
			"expected %d results, got %d",
			expected,
			len(results),
		)
	}
	return results, nil
}
