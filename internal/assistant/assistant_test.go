package assistant

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
)

func TestBuildParams_WrapsKnowledgeContext(t *testing.T) {
	t.Parallel()

	req := Request{
		Prompt:           "is the espresso machine working?",
		Instructions:     "You are a cheerful barista.",
		KnowledgeContext: "The espresso machine is broken.",
	}
	params := buildParams(req, "gemini-2.5-flash")

	last := params.Messages[len(params.Messages)-1]
	content := last.ContentString()
	if !strings.HasPrefix(content, "CONTEXT:\nThe espresso machine is broken.") {
		t.Errorf("prompt should start with the context block, got %q", content)
	}
	if !strings.Contains(content, "\n\nQUESTION:\nis the espresso machine working?") {
		t.Errorf("prompt should end with the question block, got %q", content)
	}
}

func TestBuildParams_NoContextPassesPromptThrough(t *testing.T) {
	t.Parallel()

	params := buildParams(Request{Prompt: "hello"}, "gemini-2.5-flash")

	last := params.Messages[len(params.Messages)-1]
	if got := last.ContentString(); got != "hello" {
		t.Errorf("prompt: want %q, got %q", "hello", got)
	}
}

func TestBuildParams_SystemPromptFirst(t *testing.T) {
	t.Parallel()

	params := buildParams(Request{
		Prompt:       "hi",
		Instructions: "You are terse.",
	}, "gemini-2.5-flash")

	if len(params.Messages) != 2 {
		t.Fatalf("want 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first message role: want system, got %q", params.Messages[0].Role)
	}
	if got := params.Messages[0].ContentString(); got != "You are terse." {
		t.Errorf("system content: want %q, got %q", "You are terse.", got)
	}
}

func TestBuildParams_NoInstructionsOmitsSystemMessage(t *testing.T) {
	t.Parallel()

	params := buildParams(Request{Prompt: "hi"}, "gemini-2.5-flash")
	if len(params.Messages) != 1 {
		t.Fatalf("want 1 message, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleUser {
		t.Errorf("role: want user, got %q", params.Messages[0].Role)
	}
}

func TestBuildParams_HistoryPrecedesPrompt(t *testing.T) {
	t.Parallel()

	req := Request{
		Prompt: "and a mocha?",
		History: []Message{
			{Role: RoleUser, Text: "do you have lattes?"},
			{Role: RoleAssistant, Text: "We do."},
		},
	}
	params := buildParams(req, "gemini-2.5-flash")

	if len(params.Messages) != 3 {
		t.Fatalf("want 3 messages, got %d", len(params.Messages))
	}
	wantRoles := []string{RoleUser, RoleAssistant, RoleUser}
	wantTexts := []string{"do you have lattes?", "We do.", "and a mocha?"}
	for i, m := range params.Messages {
		if string(m.Role) != wantRoles[i] {
			t.Errorf("messages[%d].Role: want %q, got %q", i, wantRoles[i], m.Role)
		}
		if got := m.ContentString(); got != wantTexts[i] {
			t.Errorf("messages[%d] content: want %q, got %q", i, wantTexts[i], got)
		}
	}
}

func TestBuildParams_ModelSet(t *testing.T) {
	t.Parallel()

	params := buildParams(Request{Prompt: "hi"}, "gemini-2.5-pro")
	if params.Model != "gemini-2.5-pro" {
		t.Errorf("model: want gemini-2.5-pro, got %q", params.Model)
	}
}

func TestPickModel(t *testing.T) {
	t.Parallel()

	a := New(nil)
	if got := a.pickModel(false); got != defaultModel {
		t.Errorf("standard: want %q, got %q", defaultModel, got)
	}
	if got := a.pickModel(true); got != defaultThinkingModel {
		t.Errorf("thinking: want %q, got %q", defaultThinkingModel, got)
	}

	b := New(nil, WithModel("gpt-4o-mini"), WithThinkingModel("o3"))
	if got := b.pickModel(false); got != "gpt-4o-mini" {
		t.Errorf("override standard: want gpt-4o-mini, got %q", got)
	}
	if got := b.pickModel(true); got != "o3" {
		t.Errorf("override thinking: want o3, got %q", got)
	}
}
