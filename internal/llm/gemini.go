package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient answers prompts with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient(): failed to create client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("llm: gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
