package glm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/peachbot/peachbot/internal/config"
	"github.com/peachbot/peachbot/pkg/retry"
)

// Client talks to the Zhipu (GLM) OpenAI-compatible endpoint. It covers the
// three remote capabilities the engine needs: reply generation, memory
// extraction and text embedding.
type Client struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	retrier        *retry.Retrier
}

func NewClient(cfg *config.GLMConfig) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		retrier:        retry.NewDefaultRetrier(),
	}
}

// doRequest posts a JSON payload and returns the response body. Rate limits
// and server errors are retried with backoff; client errors abort immediately.
func (c *Client) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var data []byte
	err = c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return retry.Abort(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		httpErr := fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return httpErr
		}
		return retry.Abort(httpErr)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Generate produces a reply for the given prompts.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": temperature,
	}

	data, err := c.doRequest(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}

	content, err := parseChatResponse(data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func parseChatResponse(data []byte) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices: %s", string(data))
	}
	return result.Choices[0].Message.Content, nil
}
