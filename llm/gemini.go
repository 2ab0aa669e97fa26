package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	geminiGenerationAPI = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	geminiEmbeddingAPI  = "https://generativelanguage.googleapis.com/v1beta/models/%s:embedContent"

	defaultGeminiModel     = "gemini-2.5-flash"
	defaultGeminiEmbedding = "gemini-embedding-001"

	maxRetries     = 3
	initialBackoff = time.Second
)

// GeminiClient calls the Gemini generation and embedding APIs over HTTP.
type GeminiClient struct {
	apiKey         string
	model          string
	embeddingModel string
	httpClient     *http.Client
}

// GeminiOption is a functional option for GeminiClient
type GeminiOption func(*GeminiClient)

// GeminiWithModel overrides the generation model
func GeminiWithModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		c.model = model
	}
}

// GeminiWithEmbeddingModel overrides the embedding model
func GeminiWithEmbeddingModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		c.embeddingModel = model
	}
}

// GeminiWithHTTPClient overrides the HTTP client
func GeminiWithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = client
	}
}

// NewGeminiClient creates a Gemini-backed Client and Embedder.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:         apiKey,
		model:          defaultGeminiModel,
		embeddingModel: defaultGeminiEmbedding,
		httpClient:     &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the generation model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

// Dimensions returns the embedding vector length.
func (c *GeminiClient) Dimensions() int {
	return EmbeddingDimensions
}

// Complete sends a prompt to the generation API with retry and exponential
// backoff. 400/401 responses are not retried.
func (c *GeminiClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key not set")
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiGenerationAPI, c.model)

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		content, retryable, err := c.doGeneration(ctx, url, jsonData)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *GeminiClient) doGeneration(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized
		return "", retryable, fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
		Error struct {
			Code    int    `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", true, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return "", true, fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)
	}
	if apiResp.PromptFeedback.BlockReason != "" {
		return "", false, fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return "", true, fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.WithFields(log.Fields{
				"candidate":     i,
				"finish_reason": candidate.FinishReason,
			}).Warn("gemini candidate finished abnormally")
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", true, fmt.Errorf("API returned empty content")
	}
	return result, false, nil
}

type geminiEmbeddingRequest struct {
	Model                string             `json:"model"`
	Content              geminiContentInput `json:"content"`
	TaskType             string             `json:"task_type,omitempty"`
	OutputDimensionality int                `json:"output_dimensionality,omitempty"`
}

type geminiContentInput struct {
	Parts []geminiPartInput `json:"parts"`
}

type geminiPartInput struct {
	Text string `json:"text"`
}

type geminiEmbeddingResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed requests a normalized embedding vector for the text. The token
// count is a word-based approximation; Gemini's embedding endpoint does not
// report usage.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float64, int, error) {
	if c.apiKey == "" {
		return nil, 0, fmt.Errorf("gemini api key not set")
	}

	reqBody := geminiEmbeddingRequest{
		Model: "models/" + c.embeddingModel,
		Content: geminiContentInput{
			Parts: []geminiPartInput{{Text: text}},
		},
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: EmbeddingDimensions,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiEmbeddingAPI, c.embeddingModel)

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				return nil, 0, fmt.Errorf("embedding API error: %d - %s", resp.StatusCode, string(body))
			}
			lastErr = fmt.Errorf("embedding API error: %d", resp.StatusCode)
			continue
		}

		var apiResp geminiEmbeddingResponse
		err = json.NewDecoder(resp.Body).Decode(&apiResp)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode embedding response: %w", err)
			continue
		}

		embedding := normalize(apiResp.Embedding.Values)
		return embedding, approximateTokens(text), nil
	}

	return nil, 0, fmt.Errorf("embedding failed after %d attempts: %w", maxRetries, lastErr)
}

// normalize scales the vector to unit length.
func normalize(embedding []float64) []float64 {
	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}
	return embedding
}

// approximateTokens estimates token count with a word-based heuristic.
func approximateTokens(text string) int {
	return int(math.Ceil(float64(len(strings.Fields(text))) * 1.3))
}
