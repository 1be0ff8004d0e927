package explain

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Explainer using OpenAI Chat Completions
type OpenAIExplainer struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAIExplainer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIExplainer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIExplainer{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *OpenAIExplainer) Explain(
	ctx context.Context,
	items []Item,
) ([]Result, error) {
	return explainSequential(
		ctx,
		items,
		e.options.batchSize(),
		e.explainBatch,
	)
}

func (e *OpenAIExplainer) ExplainWithConcurrency(
	ctx context.Context,
	items []Item,
	concurrency int,
) ([]Result, error) {
	return explainConcurrent(
		ctx,
		items,
		e.options.batchSize(),
		concurrency,
		e.explainBatch,
	)
}

func (e *OpenAIExplainer) explainBatch(
	ctx context.Context,
	items []Item,
) ([]Result, error) {
	prompt := BuildPrompt(e.options, items)

	completion, err := e.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: e.model,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("explanation failed: %w", err)
	}

	return e.parseResponse(completion, len(items))
}

func (e *OpenAIExplainer) parseResponse(
	completion *openai.ChatCompletion,
	expectedCount int,
) ([]Result, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := completion.Choices[0].Message.Content

	if responseText == "" {
		return nil, fmt.Errorf("no text in OpenAI response")
	}

	responseText = cleanJSONResponse(responseText)

	results, err := extractResults(responseText)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			truncateString(responseText, 200),
		)
	}

	return checkCount(results, expectedCount)
}

func (e *OpenAIExplainer) Close() error {
	return nil
}
