package perplexity

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"caringai-backend/llm"
)

// Client talks to the Perplexity chat completions API, which is
// wire-compatible with the OpenAI one, so the same SDK is pointed at a
// different base URL.
type Client struct {
	api     *openai.Client
	key     string
	timeout time.Duration
}

func NewClient() *Client {
	key := os.Getenv("PERPLEXITY_API_KEY")
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = os.Getenv("PERPLEXITY_BASE_URL")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.perplexity.ai"
	}
	return &Client{api: openai.NewClientWithConfig(cfg), key: key, timeout: requestTimeout()}
}

func requestTimeout() time.Duration {
	sec := 30
	if v := os.Getenv("PERPLEXITY_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sec = n
		}
	}
	return time.Duration(sec) * time.Second
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	// Failing fast on a bad credential lets the gateway take its
	// fallback path without burning the request timeout.
	if !strings.HasPrefix(c.key, "pplx-") {
		return "", errors.New("perplexity api key missing or malformed")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, t := range req.Turns {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        0.9,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
