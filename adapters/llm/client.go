package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ciasx/ports"
)

// OpenAIClient implements ports.LLMClient over the chat-completions API
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client; baseURL may be empty for the public API.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}, nil
}

func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ports.LLMRequest) (*ports.LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("missing model")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            messages,
		Temperature:         float32(req.Temperature),
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}

	return &ports.LLMResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: &ports.UsageData{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Model:            resp.Model,
			Provider:         "openai",
		},
	}, nil
}

// MockLLMClient is a mock LLM client for testing
type MockLLMClient struct {
	Response string // Set this for testing
	Error    error  // Set this to simulate errors
	Requests []ports.LLMRequest
}

func (m *MockLLMClient) ChatCompletion(ctx context.Context, req ports.LLMRequest) (*ports.LLMResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.Error != nil {
		return nil, m.Error
	}
	content := m.Response
	if content == "" {
		content = "```json\n[{\"recon_family\": \"CIAS-Core\", \"uq_scheme\": \"Conformal\", \"uq_params\": {\"alpha\": 0.1}}]\n```"
	}
	return &ports.LLMResponse{Content: content, Usage: &ports.UsageData{Model: req.Model, Provider: "mock"}}, nil
}
