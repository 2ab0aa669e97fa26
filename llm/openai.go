package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAIEmbedding = openai.SmallEmbedding3
)

// OpenAIClient adapts any OpenAI-compatible endpoint to the Client and
// Embedder interfaces. Used for self-hosted deployments that expose the
// OpenAI wire format.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
}

// OpenAIOption is a functional option for OpenAIClient
type OpenAIOption func(*OpenAIClient)

// OpenAIWithModel overrides the chat model
func OpenAIWithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// OpenAIWithEmbeddingModel overrides the embedding model
func OpenAIWithEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = openai.EmbeddingModel(model)
	}
}

// NewOpenAIClient creates an OpenAI-compatible Client and Embedder. baseURL
// may be empty for the hosted API.
func NewOpenAIClient(apiKey, baseURL string, opts ...OpenAIOption) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		model:          defaultOpenAIModel,
		embeddingModel: defaultOpenAIEmbedding,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the chat model identifier.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Dimensions returns the embedding vector length.
func (c *OpenAIClient) Dimensions() int {
	return EmbeddingDimensions
}

// Complete sends a single-message chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed requests an embedding truncated to the fixed dimensionality. Token
// usage comes from the API response.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, int, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      c.embeddingModel,
		Dimensions: EmbeddingDimensions,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, 0, fmt.Errorf("embedding response contained no data")
	}

	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}
	return normalize(vec), resp.Usage.PromptTokens, nil
}
