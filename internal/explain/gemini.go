package explain

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// implements Explainer using Google Gemini
type GeminiExplainer struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiExplainer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiExplainer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiExplainer{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *GeminiExplainer) Explain(
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

func (e *GeminiExplainer) ExplainWithConcurrency(
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

func (e *GeminiExplainer) explainBatch(
	ctx context.Context,
	items []Item,
) ([]Result, error) {
	prompt := BuildPrompt(e.options, items)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("explanation failed: %w", err)
	}

	return e.parseResponse(result, len(items))
}

func (e *GeminiExplainer) parseResponse(
	result *genai.GenerateContentResponse,
	expectedCount int,
) ([]Result, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text in Gemini response")
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

func (e *GeminiExplainer) Close() error {
	return nil
}
