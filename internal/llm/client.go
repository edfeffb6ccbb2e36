/**
* Name: 			client.go
* Description: 		Chat completion 서버 연결
* Workflow: 		프롬프트 전송, 첫 번째 choice의 텍스트 수신
 */

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama3-70b-8192"
)

var ErrEmptyResponse = errors.New("llm: response has no choices")

// Asker sends a single prompt and returns the generated text.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// APIError is returned when the provider answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: chat completion failed with status %d: %s", e.StatusCode, e.Body)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// GroqClient talks to an OpenAI-compatible /chat/completions endpoint.
type GroqClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGroqClient(baseURL, apiKey, model string, timeout time.Duration) *GroqClient {
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	if model == "" {
		model = DefaultGroqModel
	}
	return &GroqClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *GroqClient) Ask(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(ChatRequest{
		Model:    c.model,
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return chatResp.Choices[0].Message.Content, nil
}
