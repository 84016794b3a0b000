package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/voxkit-ai/voxkit/pkg/live"
)

// ValidChatBackends lists known chat backend names.
// Used by [Validate] to warn about unrecognised names.
var ValidChatBackends = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Chat backend name — warn for unknown names, they may be third-party.
	if name := cfg.Providers.Chat.Name; name != "" && !slices.Contains(ValidChatBackends, name) {
		slog.Warn("unknown chat backend name — may be a typo or third-party provider",
			"name", name,
			"known", ValidChatBackends,
		)
	}

	// Provider availability warnings
	if cfg.Providers.Live.APIKey == "" && len(cfg.VoiceAgents) > 0 {
		slog.Warn("providers.live.api_key is empty; voice agents will not be able to connect")
	}
	if cfg.Providers.Chat.Name == "" && len(cfg.Chatbots) > 0 {
		slog.Warn("providers.chat is not configured; chatbots will not be able to respond")
	}

	// Embeddings ↔ knowledge dimensions
	if cfg.Providers.Embeddings.APIKey != "" && cfg.Knowledge.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but knowledge.embedding_dimensions is not set; defaulting to 1536")
	}

	usesKnowledge := false

	// Voice agents
	agentNamesSeen := make(map[string]int, len(cfg.VoiceAgents))
	for i, agent := range cfg.VoiceAgents {
		prefix := fmt.Sprintf("voice_agents[%d]", i)
		if agent.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := agentNamesSeen[agent.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of voice_agents[%d]", prefix, agent.Name, prev))
			}
			agentNamesSeen[agent.Name] = i
		}
		if agent.Instructions == "" {
			errs = append(errs, fmt.Errorf("%s.instructions is required", prefix))
		}
		if agent.Voice != "" && !agent.Voice.IsValid() {
			errs = append(errs, fmt.Errorf("%s.voice %q is invalid; valid values: %v", prefix, agent.Voice, validVoiceNames()))
		}
		if len(agent.KnowledgeBases) > 0 {
			usesKnowledge = true
		}
	}

	// Chatbots
	botNamesSeen := make(map[string]int, len(cfg.Chatbots))
	for i, bot := range cfg.Chatbots {
		prefix := fmt.Sprintf("chatbots[%d]", i)
		if bot.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := botNamesSeen[bot.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of chatbots[%d]", prefix, bot.Name, prev))
			}
			botNamesSeen[bot.Name] = i
		}
		if bot.Instructions == "" {
			errs = append(errs, fmt.Errorf("%s.instructions is required", prefix))
		}
		if len(bot.KnowledgeBases) > 0 {
			usesKnowledge = true
		}
	}

	// Knowledge availability
	if usesKnowledge && cfg.Knowledge.PostgresDSN == "" {
		errs = append(errs, errors.New("knowledge.postgres_dsn is required when agents reference knowledge bases"))
	}

	return errors.Join(errs...)
}

func validVoiceNames() []string {
	voices := live.Voices()
	names := make([]string, len(voices))
	for i, v := range voices {
		names[i] = string(v)
	}
	return names
}
