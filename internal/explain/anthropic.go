package explain

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// implements Explainer using Anthropic Claude
type AnthropicExplainer struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicExplainer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*AnthropicExplainer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicExplainer{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *AnthropicExplainer) Explain(
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

func (e *AnthropicExplainer) ExplainWithConcurrency(
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

func (e *AnthropicExplainer) explainBatch(
	ctx context.Context,
	items []Item,
) ([]Result, error) {
	prompt := BuildPrompt(e.options, items)

	message, err := e.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     e.model,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("explanation failed: %w", err)
	}

	return e.parseResponse(message, len(items))
}

func (e *AnthropicExplainer) parseResponse(
	message *anthropic.Message,
	expectedCount int,
) ([]Result, error) {
	if message == nil || len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from Anthropic")
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text in Anthropic response")
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

func (e *AnthropicExplainer) Close() error {
	return nil
}
