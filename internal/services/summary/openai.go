package summary

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const userPromptPrefix = "Transform this document into an engaging, easy-to-read summary with contextually relevant emojis and proper markdown formatting:\n\n"

const maxOutputTokens int64 = 1500

// OpenAI calls OpenAI's Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI backend. Extra options (base URL, HTTP
// client) are appended after the API key.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	// The SDK retries by default; a run makes exactly one attempt.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name implements Backend.
func (o *OpenAI) Name() string { return "openai" }

// Complete implements Backend.
func (o *OpenAI) Complete(ctx context.Context, systemPrompt, text string) (string, string, error) {
	resp, err := o.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(maxOutputTokens),
		Instructions:    openai.String(systemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(userPromptPrefix + text),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("do request: %w", err)
	}

	if resp.Status == "incomplete" {
		return "", "", fmt.Errorf("response is incomplete (reason = %s)", resp.IncompleteDetails.Reason)
	}

	model := string(resp.Model)
	if model == "" {
		model = o.model
	}
	return resp.OutputText(), model, nil
}
