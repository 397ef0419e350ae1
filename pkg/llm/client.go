// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"resume-chat-go/internal/config"
	"resume-chat-go/pkg/log"
	"strings"
)

// ErrEmptyCompletion 表示模型返回了空内容。
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 以 role-based 消息调用聊天接口，返回完整的回答文本。
	Complete(ctx context.Context, messages []Message, gen GenerationParams) (string, error)
}

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new OpenAI-compatible chat completions client.
func NewClient(cfg config.LLMConfig, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: httpClient,
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	// temperature 必须总是发送，0 也不能省略
	Temperature float64  `json:"temperature"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerationParams 控制生成行为。零值即确定性输出（temperature 0）。
type GenerationParams struct {
	Temperature float64
	TopP        *float64
	MaxTokens   *int
}

// Complete 调用 chat completions 接口（非流式）。
func (c *openAICompatibleClient) Complete(ctx context.Context, messages []Message, gen GenerationParams) (string, error) {
	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Stream:      false,
		Temperature: gen.Temperature,
		TopP:        gen.TopP,
		MaxTokens:   gen.MaxTokens,
	}
	if reqBody.MaxTokens == nil && c.cfg.MaxTokens > 0 {
		m := c.cfg.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	if c.cfg.APIVersion != "" {
		endpoint += "?api-version=" + url.QueryEscape(c.cfg.APIVersion)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	log.Debugf("[LLMClient] completion received, model: %s, finish_reason: %s", c.cfg.Model, chatResp.Choices[0].FinishReason)
	return content, nil
}
