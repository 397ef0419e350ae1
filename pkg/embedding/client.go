// Package embedding provides a client for OpenAI-compatible embedding APIs.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"resume-chat-go/internal/config"
	"resume-chat-go/pkg/log"
	"strings"
)

// Client defines the interface for an embedding client.
type Client interface {
	// CreateEmbedding returns the vector for a single text.
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	// CreateEmbeddings returns one vector per input, in input order.
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	// Model is the model version recorded alongside indexed passages.
	Model() string
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates a new embedding client from config.
func NewClient(cfg config.EmbeddingConfig, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: httpClient,
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *openAICompatibleClient) Model() string {
	return c.cfg.Model
}

// CreateEmbedding calls the embeddings endpoint for one text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings calls the embeddings endpoint for a batch of texts.
func (c *openAICompatibleClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding input is empty")
	}
	log.Debugf("[EmbeddingClient] calling embeddings api, model: %s, inputs: %d", c.cfg.Model, len(texts))

	// ada-002 does not accept the dimensions parameter; only send it for newer models.
	reqBody := embeddingRequest{Model: c.cfg.Model, Input: texts}
	if c.cfg.Model != "text-embedding-ada-002" {
		reqBody.Dimensions = c.cfg.Dimensions
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/embeddings"
	if c.cfg.APIVersion != "" {
		endpoint += "?api-version=" + url.QueryEscape(c.cfg.APIVersion)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] embeddings api call failed: %v", err)
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Errorf("[EmbeddingClient] embeddings api returned %s", resp.Status)
		return nil, fmt.Errorf("embedding api returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding api returned %d vectors for %d inputs", len(embeddingResp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, d := range embeddingResp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("received empty embedding for input %d", idx)
		}
		vectors[idx] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}
