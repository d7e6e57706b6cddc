package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const systemPrompt = "You are an assistant that writes study syntheses of academic course material. " +
	"Produce a structured synthesis with key points and clear sections."

const userPrefix = "Write a structured synthesis of this course:\n\n"

// ChatConfig configures an OpenAI-compatible chat/completions endpoint
type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ChatClient implements Remote against a chat/completions endpoint
type ChatClient struct {
	cfg    ChatConfig
	client *http.Client
	log    *slog.Logger
}

// NewChatClient creates a new ChatClient. The API key must come from
// configuration; there is no built-in default.
func NewChatClient(cfg ChatConfig, logger *slog.Logger) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message *chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends text to the remote model and returns the completion.
// Every failure wraps ErrRemoteFailure.
func (c *ChatClient) Complete(ctx context.Context, text string) (string, error) {
	rid := uuid.NewString()
	start := time.Now()

	c.log.Info("Requesting remote synthesis", "req_id", rid, "model", c.cfg.Model, "text_len", len(text))

	content, err := c.complete(ctx, text)
	if err != nil {
		c.log.Warn("Remote synthesis failed",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", fmt.Errorf("%w: %w", ErrRemoteFailure, err)
	}

	c.log.Info("Remote synthesis complete",
		"req_id", rid,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"chars", len(content),
	)
	return content, nil
}

func (c *ChatClient) complete(ctx context.Context, text string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrefix + text},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return "", fmt.Errorf("no choices in response")
	}

	content := chatResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return content, nil
}
