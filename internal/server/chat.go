package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/voxkit-ai/voxkit/internal/assistant"
	"github.com/voxkit-ai/voxkit/internal/observe"
)

// chatMessage is one prior turn of a chat conversation, oldest first.
type chatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// chatRequest is the JSON body for the chat and assistant endpoints.
type chatRequest struct {
	Prompt  string        `json:"prompt"`
	History []chatMessage `json:"history"`
}

// chatResponse is the JSON body returned from the chat endpoints.
type chatResponse struct {
	Reply string `json:"reply"`
}

// handleChat answers one turn for the named chatbot, grounding the reply in
// the bot's knowledge bases when it has any.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.replier == nil {
		http.Error(w, "chat backend not configured", http.StatusServiceUnavailable)
		return
	}

	bot, ok := s.bots[r.PathValue("bot")]
	if !ok {
		http.Error(w, "unknown chatbot", http.StatusNotFound)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	var knowledgeContext string
	if s.builder != nil && len(bot.KnowledgeBases) > 0 {
		start := time.Now()
		kc, err := s.builder.Build(r.Context(), req.Prompt, bot.KnowledgeBases)
		if err != nil {
			s.logger.Error("knowledge retrieval failed", "bot", bot.Name, "err", err)
			http.Error(w, "knowledge retrieval failed", http.StatusBadGateway)
			return
		}
		s.metrics.KnowledgeSearchDuration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("bot", bot.Name)),
		)
		knowledgeContext = kc
	}

	reply, err := s.replier.Reply(r.Context(), assistant.Request{
		Prompt:           req.Prompt,
		History:          toHistory(req.History),
		Instructions:     bot.Instructions,
		KnowledgeContext: knowledgeContext,
		Thinking:         bot.ThinkingMode,
	})
	if err != nil {
		s.logger.Error("chat reply failed", "bot", bot.Name, "err", err)
		http.Error(w, "chat backend error", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// handleAssistant answers a builder-helper prompt: no persona, no knowledge
// grounding, just the built-in helper instructions.
func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if s.replier == nil {
		http.Error(w, "chat backend not configured", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	reply, err := s.replier.BuilderReply(r.Context(), req.Prompt, toHistory(req.History))
	if err != nil {
		s.logger.Error("assistant reply failed", "err", err)
		http.Error(w, "chat backend error", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func toHistory(msgs []chatMessage) []assistant.Message {
	out := make([]assistant.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, assistant.Message{Role: m.Role, Text: m.Text})
	}
	return out
}
