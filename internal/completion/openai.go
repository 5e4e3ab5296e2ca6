package completion

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService implements Service with the OpenAI chat completions API.
// The client is safe for concurrent use, so one instance is shared across
// concurrent regeneration cycles.
type OpenAIService struct {
	client *openai.Client
	model  string
}

// NewOpenAIService creates a completion service for the given chat model.
// baseURL overrides the API endpoint when non-empty.
func NewOpenAIService(apiKey, baseURL, model string) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete sends one chat completion request and returns the raw response text.
// Low temperature keeps regenerated chart values stable between cycles.
func (s *OpenAIService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
		MaxTokens:   3000,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
