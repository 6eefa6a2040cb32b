package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompleter struct {
	reply string
	err   error
	reqs  []Request
}

func (c *stubCompleter) Complete(ctx context.Context, req Request) (string, error) {
	c.reqs = append(c.reqs, req)
	return c.reply, c.err
}

func TestConverseModelPerTier(t *testing.T) {
	chat := &stubCompleter{reply: "hi"}
	g := NewGateway(chat, &stubCompleter{})

	if _, err := g.Converse(context.Background(), TierFull, "sys", nil); err != nil {
		t.Fatalf("converse: %v", err)
	}
	if _, err := g.Converse(context.Background(), TierLight, "sys", nil); err != nil {
		t.Fatalf("converse: %v", err)
	}
	if chat.reqs[0].Model != "gpt-4o" || chat.reqs[1].Model != "gpt-4o-mini" {
		t.Fatalf("models: %q %q", chat.reqs[0].Model, chat.reqs[1].Model)
	}
	if chat.reqs[0].Temperature != 0.2 || chat.reqs[0].MaxTokens != 1000 {
		t.Fatalf("sampling params: %+v", chat.reqs[0])
	}
	if chat.reqs[0].System != "sys" {
		t.Fatalf("system prompt: %q", chat.reqs[0].System)
	}
}

func TestConverseWrapsUpstreamError(t *testing.T) {
	chat := &stubCompleter{err: errors.New("504 gateway timeout")}
	g := NewGateway(chat, &stubCompleter{})

	_, err := g.Converse(context.Background(), TierFull, "sys", nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Provider != "openai" || !strings.Contains(ue.Error(), "504") {
		t.Fatalf("unexpected error: %v", ue)
	}
}

func TestResearchPrefersResearchUpstream(t *testing.T) {
	chat := &stubCompleter{reply: "chat answer"}
	research := &stubCompleter{reply: "1. Does light bother you?"}
	g := NewGateway(chat, research)

	text, err := g.ResearchDifferential(context.Background(), "headache, nausea", []string{"Migraine (72% confidence)"})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if text != "1. Does light bother you?" {
		t.Fatalf("unexpected reply: %q", text)
	}
	if len(chat.reqs) != 0 {
		t.Fatalf("chat model must not be called when research succeeds")
	}
	req := research.reqs[0]
	if req.Model != "sonar" {
		t.Fatalf("research model: %q", req.Model)
	}
	if !strings.Contains(req.System, "Migraine (72% confidence)") {
		t.Fatalf("diagnoses missing from prompt: %q", req.System)
	}
	if !strings.Contains(req.System, `"headache, nausea"`) {
		t.Fatalf("symptoms missing from prompt: %q", req.System)
	}
}

func TestResearchFallsBackOnError(t *testing.T) {
	chat := &stubCompleter{reply: "fallback questions"}
	research := &stubCompleter{err: errors.New("invalid api key")}
	g := NewGateway(chat, research)

	text, err := g.ResearchDifferential(context.Background(), "headache", []string{"Migraine"})
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if text != "fallback questions" {
		t.Fatalf("unexpected reply: %q", text)
	}
	if len(chat.reqs) != 1 || chat.reqs[0].Model != "gpt-4o" {
		t.Fatalf("fallback request: %+v", chat.reqs)
	}
}

func TestResearchFallsBackOnBlankReply(t *testing.T) {
	chat := &stubCompleter{reply: "fallback questions"}
	research := &stubCompleter{reply: "   \n"}
	g := NewGateway(chat, research)

	text, err := g.ResearchDifferential(context.Background(), "headache", nil)
	if err != nil || text != "fallback questions" {
		t.Fatalf("got %q, %v", text, err)
	}
	if !strings.Contains(research.reqs[0].System, "Unknown conditions based on the reported symptoms") {
		t.Fatalf("empty diagnosis list not substituted: %q", research.reqs[0].System)
	}
}

func TestResearchBothUpstreamsFail(t *testing.T) {
	chat := &stubCompleter{err: errors.New("timeout")}
	research := &stubCompleter{err: errors.New("refused")}
	g := NewGateway(chat, research)

	_, err := g.ResearchDifferential(context.Background(), "headache", []string{"Migraine"})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestModelOverridesFromEnv(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4-turbo")
	t.Setenv("OPENAI_MODEL_LIGHT", "gpt-3.5-turbo")
	t.Setenv("PERPLEXITY_MODEL", "sonar-pro")

	g := NewGateway(&stubCompleter{}, &stubCompleter{})
	if g.ChatModel != "gpt-4-turbo" || g.ChatModelLight != "gpt-3.5-turbo" || g.ResearchModel != "sonar-pro" {
		t.Fatalf("env overrides ignored: %+v", g)
	}
}
