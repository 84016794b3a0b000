// Package assistant answers text prompts for chat agents, grounding the reply
// in an optional knowledge-context block.
//
// It wraps github.com/mozilla-ai/any-llm-go so the same code path works
// against OpenAI, Anthropic, Gemini, Ollama and the other supported backends.
// Thinking mode switches to a larger reasoning-budget model for complex
// queries.
package assistant

import (
	"context"
	"fmt"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/voxkit-ai/voxkit/internal/observe"
)

const (
	// RoleUser marks a message written by the end user.
	RoleUser = "user"

	// RoleAssistant marks a message produced by the agent.
	RoleAssistant = "assistant"
)

// Default chat models. Thinking mode trades latency for a model with a much
// larger reasoning budget.
const (
	defaultModel         = "gemini-2.5-flash"
	defaultThinkingModel = "gemini-2.5-pro"
)

// builderInstructions is the persona used by [Assistant.BuilderReply] to help
// users configure their agents inside the builder UI.
const builderInstructions = "You are a helpful assistant for a user building chatbots. Be concise and helpful."

// Message is a single entry of a chat history.
type Message struct {
	// Role is [RoleUser] or [RoleAssistant].
	Role string

	// Text is the message content.
	Text string
}

// Request describes one chat turn to answer.
type Request struct {
	// Prompt is the user's question.
	Prompt string

	// History is the prior conversation, oldest first.
	History []Message

	// Instructions is the agent's system prompt.
	Instructions string

	// KnowledgeContext is retrieved knowledge-base text. When non-empty the
	// prompt is wrapped in a CONTEXT/QUESTION block so the model grounds its
	// answer in it.
	KnowledgeContext string

	// Thinking selects the larger reasoning-budget model.
	Thinking bool
}

// Assistant answers chat prompts through an any-llm-go backend.
type Assistant struct {
	backend       anyllmlib.Provider
	model         string
	thinkingModel string
	metrics       *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Assistant)

// WithModel overrides the standard chat model.
func WithModel(model string) Option {
	return func(a *Assistant) { a.model = model }
}

// WithThinkingModel overrides the model used when [Request.Thinking] is set.
func WithThinkingModel(model string) Option {
	return func(a *Assistant) { a.thinkingModel = model }
}

// WithMetrics sets the metrics instance used to record reply latency.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// New creates an Assistant on top of the given any-llm-go backend.
func New(backend anyllmlib.Provider, opts ...Option) *Assistant {
	a := &Assistant{
		backend:       backend,
		model:         defaultModel,
		thinkingModel: defaultThinkingModel,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Reply answers req and returns the model's text response.
func (a *Assistant) Reply(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	params := buildParams(req, a.pickModel(req.Thinking))

	resp, err := a.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("assistant: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("assistant: empty choices in response")
	}

	a.metrics.AssistantDuration.Record(ctx, time.Since(start).Seconds())
	return resp.Choices[0].Message.ContentString(), nil
}

// BuilderReply answers a builder-help prompt with the built-in assistant
// persona. It never uses knowledge context or thinking mode.
func (a *Assistant) BuilderReply(ctx context.Context, prompt string, history []Message) (string, error) {
	return a.Reply(ctx, Request{
		Prompt:       prompt,
		History:      history,
		Instructions: builderInstructions,
	})
}

func (a *Assistant) pickModel(thinking bool) string {
	if thinking {
		return a.thinkingModel
	}
	return a.model
}

// buildParams converts a Request into any-llm completion parameters. The
// knowledge context, when present, is prepended to the prompt in a
// CONTEXT/QUESTION block rather than the system prompt so it scopes to this
// turn only.
func buildParams(req Request, model string) anyllmlib.CompletionParams {
	prompt := req.Prompt
	if req.KnowledgeContext != "" {
		prompt = "CONTEXT:\n" + req.KnowledgeContext + "\n\nQUESTION:\n" + req.Prompt
	}

	var messages []anyllmlib.Message
	if req.Instructions != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.Instructions,
		})
	}
	for _, m := range req.History {
		messages = append(messages, anyllmlib.Message{
			Role:    m.Role,
			Content: m.Text,
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: prompt,
	})

	return anyllmlib.CompletionParams{
		Model:    model,
		Messages: messages,
	}
}
