package summary

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Gemini calls Google's Gemini models through their OpenAI-compatible
// chat completions endpoint, so it shares the openai-go client.
type Gemini struct {
	client openai.Client
	model  string
}

// NewGemini creates a Gemini backend that talks to baseURL.
func NewGemini(apiKey, model, baseURL string, opts ...option.RequestOption) *Gemini {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}, opts...)
	return &Gemini{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name implements Backend.
func (g *Gemini) Name() string { return "gemini" }

// Complete implements Backend.
func (g *Gemini) Complete(ctx context.Context, systemPrompt, text string) (string, string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPromptPrefix + text),
		},
		Temperature:         openai.Float(0.7),
		MaxCompletionTokens: openai.Int(maxOutputTokens),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to do request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("chat completion choices are missing")
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return resp.Choices[0].Message.Content, model, nil
}
