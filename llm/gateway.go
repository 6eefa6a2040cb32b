package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// Turn is one prior exchange in a consultation, mapped onto the chat
// role the upstream expects ("user" or "assistant").
type Turn struct {
	Role    string
	Content string
}

// Request is a provider-neutral chat completion request.
type Request struct {
	Model       string
	System      string
	Turns       []Turn
	Temperature float32
	MaxTokens   int
}

// Completer is implemented by the provider clients (openai, perplexity).
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ModelTier selects between the fuller and the lighter chat model for a
// Converse call. Which tier a stage uses is the caller's decision.
type ModelTier int

const (
	TierFull ModelTier = iota
	TierLight
)

// UpstreamError marks a network/timeout/non-2xx failure from one of the
// text-generation endpoints. It is never fatal to a session; callers
// surface an apology message and keep going.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Gateway fronts the two upstreams. All credentialed calls happen here,
// server-side; clients of this package never see an API key.
type Gateway struct {
	Chat     Completer
	Research Completer

	ChatModel      string
	ChatModelLight string
	ResearchModel  string
}

func NewGateway(chat, research Completer) *Gateway {
	g := &Gateway{
		Chat:           chat,
		Research:       research,
		ChatModel:      os.Getenv("OPENAI_MODEL"),
		ChatModelLight: os.Getenv("OPENAI_MODEL_LIGHT"),
		ResearchModel:  os.Getenv("PERPLEXITY_MODEL"),
	}
	if g.ChatModel == "" {
		g.ChatModel = "gpt-4o"
	}
	if g.ChatModelLight == "" {
		g.ChatModelLight = "gpt-4o-mini"
	}
	if g.ResearchModel == "" {
		g.ResearchModel = "sonar"
	}
	return g
}

func (g *Gateway) model(tier ModelTier) string {
	if tier == TierLight {
		return g.ChatModelLight
	}
	return g.ChatModel
}

// Converse sends the system prompt plus the transcript to the general
// chat model and returns the assistant's reply.
func (g *Gateway) Converse(ctx context.Context, tier ModelTier, system string, transcript []Turn) (string, error) {
	text, err := g.Chat.Complete(ctx, Request{
		Model:       g.model(tier),
		System:      system,
		Turns:       transcript,
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", &UpstreamError{Provider: "openai", Err: err}
	}
	return text, nil
}

// ResearchDifferential asks the research model for 3-5 questions that
// discriminate between the candidate diagnoses. Any failure, including a
// blank reply, falls back to the general chat model: the differential
// stage must never dead-end because one upstream is unavailable.
func (g *Gateway) ResearchDifferential(ctx context.Context, symptoms string, diagnoses []string) (string, error) {
	diagText := "Unknown conditions based on the reported symptoms"
	if len(diagnoses) > 0 {
		diagText = strings.Join(diagnoses, ", ")
	}

	system := fmt.Sprintf(`You are a medical research expert specializing in differential diagnosis.
The patient has reported the following symptoms: %q.
Based on these symptoms, the AI has identified potential diagnoses: %s.

Your task is to:
1. Generate 3-5 specific questions that would help differentiate between these conditions.
2. Focus on questions that would have different answers depending on the specific diagnosis.
3. Format your response professionally for a medical consultation.
4. Begin your response with: "To help me determine which diagnosis is most accurate, I need to ask you a few more specific questions:"
5. Do NOT include any explanations or commentary - ONLY provide the numbered questions.`, symptoms, diagText)

	text, err := g.Research.Complete(ctx, Request{
		Model:       g.ResearchModel,
		System:      system,
		Turns:       []Turn{{Role: "user", Content: fmt.Sprintf("Generate specific differential diagnosis questions for a patient reporting: %q", symptoms)}},
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err != nil {
		log.Printf("[llm][research] falling back to chat model: %v", err)
	} else {
		log.Printf("[llm][research] empty reply, falling back to chat model")
	}

	fallback := fmt.Sprintf(`You are a medical expert providing differential diagnosis questions.
Based on the symptoms: %q, create 3-5 specific questions that would help distinguish between possible diagnoses.
Format as a numbered list. Start with: "To help me determine which diagnosis is most accurate, I need to ask you a few more specific questions:"`, symptoms)

	text, err = g.Chat.Complete(ctx, Request{
		Model:       g.ChatModel,
		System:      fallback,
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", &UpstreamError{Provider: "openai", Err: err}
	}
	return text, nil
}
