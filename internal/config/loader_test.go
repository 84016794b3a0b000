package config_test

import (
	"strings"
	"testing"

	"github.com/voxkit-ai/voxkit/internal/config"
	"github.com/voxkit-ai/voxkit/pkg/live"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  live:
    api_key: gemini-key
    model: custom-native-audio
  chat:
    name: gemini
    api_key: chat-key
    model: gemini-2.5-flash
    thinking_model: gemini-2.5-pro
  embeddings:
    api_key: openai-key
    model: text-embedding-3-small
knowledge:
  postgres_dsn: "postgres://localhost/voxkit"
  embedding_dimensions: 1536
voice_agents:
  - name: Coffee Shop Barista
    instructions: You are a cheerful barista at a coffee shop.
    voice: Zephyr
    knowledge_bases: [menu, hours]
chatbots:
  - name: Support Bot
    instructions: You are a helpful customer support agent.
    knowledge_bases: [faq]
    thinking_mode: true
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr: want :9090, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: want debug, got %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.Chat.ThinkingModel != "gemini-2.5-pro" {
		t.Errorf("thinking_model: want gemini-2.5-pro, got %q", cfg.Providers.Chat.ThinkingModel)
	}
	if len(cfg.VoiceAgents) != 1 {
		t.Fatalf("want 1 voice agent, got %d", len(cfg.VoiceAgents))
	}
	agent := cfg.VoiceAgents[0]
	if agent.Voice != live.VoiceZephyr {
		t.Errorf("voice: want Zephyr, got %q", agent.Voice)
	}
	if len(agent.KnowledgeBases) != 2 || agent.KnowledgeBases[0] != "menu" {
		t.Errorf("knowledge_bases: want [menu hours], got %v", agent.KnowledgeBases)
	}
	if len(cfg.Chatbots) != 1 || !cfg.Chatbots[0].ThinkingMode {
		t.Errorf("chatbots: want one with thinking mode, got %+v", cfg.Chatbots)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  lsiten_addr: ":8081"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_DuplicateAgentNames(t *testing.T) {
	t.Parallel()
	yaml := `
voice_agents:
  - name: Barista
    instructions: Be cheerful.
  - name: Barista
    instructions: Be grumpy.
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate agent names, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_InvalidVoice(t *testing.T) {
	t.Parallel()
	yaml := `
voice_agents:
  - name: Barista
    instructions: Be cheerful.
    voice: Alto
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid voice, got nil")
	}
	if !strings.Contains(err.Error(), "voice") {
		t.Errorf("error should mention voice, got: %v", err)
	}
}

func TestValidate_MissingInstructions(t *testing.T) {
	t.Parallel()
	yaml := `
chatbots:
  - name: Support Bot
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing instructions, got nil")
	}
	if !strings.Contains(err.Error(), "instructions") {
		t.Errorf("error should mention instructions, got: %v", err)
	}
}

func TestValidate_KnowledgeBasesRequireDSN(t *testing.T) {
	t.Parallel()
	yaml := `
voice_agents:
  - name: Barista
    instructions: Be cheerful.
    knowledge_bases: [menu]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for knowledge bases without a postgres DSN, got nil")
	}
	if !strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("error should mention postgres_dsn, got: %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(&config.Config{}); err != nil {
		t.Fatalf("empty config should validate, got: %v", err)
	}
}
