package openai

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"caringai-backend/llm"
)

// Client wraps chat completions against the OpenAI API. The key is read
// from the environment server-side; it is never exposed to any client.
type Client struct {
	api     *openai.Client
	timeout time.Duration
}

func NewClient() *Client {
	key := os.Getenv("OPENAI_API_KEY")
	return &Client{api: openai.NewClient(key), timeout: requestTimeout()}
}

func requestTimeout() time.Duration {
	sec := 30
	if v := os.Getenv("OPENAI_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sec = n
		}
	}
	return time.Duration(sec) * time.Second
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
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
