// Command voxkit is the main entry point for the voxkit voice-agent server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/voxkit-ai/voxkit/internal/assistant"
	"github.com/voxkit-ai/voxkit/internal/config"
	"github.com/voxkit-ai/voxkit/internal/health"
	"github.com/voxkit-ai/voxkit/internal/observe"
	"github.com/voxkit-ai/voxkit/internal/server"
	"github.com/voxkit-ai/voxkit/pkg/knowledge/postgres"
	"github.com/voxkit-ai/voxkit/pkg/live/gemini"
	oaembed "github.com/voxkit-ai/voxkit/pkg/provider/embeddings/openai"
)

// defaultEmbeddingDimensions matches text-embedding-3-small, the default
// embedding model.
const defaultEmbeddingDimensions = 1536

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxkit: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxkit: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxkit starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxkit"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Build collaborators ───────────────────────────────────────────────────
	deps, closeDeps, err := buildDeps(ctx, cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer closeDeps()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── Run ───────────────────────────────────────────────────────────────────
	app := server.New(cfg, deps)
	slog.Info("server ready — press Ctrl+C to shut down")

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildDeps instantiates every configured provider and returns the server
// dependency set plus a cleanup function for the ones that hold resources.
func buildDeps(ctx context.Context, cfg *config.Config) (server.Deps, func(), error) {
	deps := server.Deps{Logger: slog.Default()}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Live voice provider.
	var liveOpts []gemini.Option
	if cfg.Providers.Live.Model != "" {
		liveOpts = append(liveOpts, gemini.WithModel(cfg.Providers.Live.Model))
	}
	if cfg.Providers.Live.BaseURL != "" {
		liveOpts = append(liveOpts, gemini.WithBaseURL(cfg.Providers.Live.BaseURL))
	}
	deps.Live = gemini.New(cfg.Providers.Live.APIKey, liveOpts...)

	// Knowledge store.
	checkers := []health.Checker{health.LiveChecker(cfg.Providers.Live.APIKey)}
	if dsn := cfg.Knowledge.PostgresDSN; dsn != "" {
		dims := cfg.Knowledge.EmbeddingDimensions
		if dims == 0 {
			dims = defaultEmbeddingDimensions
		}
		store, err := postgres.NewStore(ctx, dsn, dims)
		if err != nil {
			closeAll()
			return server.Deps{}, nil, err
		}
		closers = append(closers, store.Close)
		deps.Store = store
		checkers = append(checkers, health.KnowledgeChecker(store))
		slog.Info("knowledge store connected", "embedding_dimensions", dims)
	}
	deps.Health = health.New(checkers...)

	// Embeddings provider.
	if key := cfg.Providers.Embeddings.APIKey; key != "" {
		var embedOpts []oaembed.Option
		if cfg.Providers.Embeddings.BaseURL != "" {
			embedOpts = append(embedOpts, oaembed.WithBaseURL(cfg.Providers.Embeddings.BaseURL))
		}
		embedder, err := oaembed.New(key, cfg.Providers.Embeddings.Model, embedOpts...)
		if err != nil {
			closeAll()
			return server.Deps{}, nil, fmt.Errorf("create embeddings provider: %w", err)
		}
		deps.Embedder = embedder
		slog.Info("provider created", "kind", "embeddings", "model", embedder.ModelID())
	}

	// Chat backend.
	if name := cfg.Providers.Chat.Name; name != "" {
		var chatOpts []anyllmlib.Option
		if cfg.Providers.Chat.APIKey != "" {
			chatOpts = append(chatOpts, anyllmlib.WithAPIKey(cfg.Providers.Chat.APIKey))
		}
		if cfg.Providers.Chat.BaseURL != "" {
			chatOpts = append(chatOpts, anyllmlib.WithBaseURL(cfg.Providers.Chat.BaseURL))
		}
		backend, err := assistant.NewBackend(name, chatOpts...)
		if err != nil {
			closeAll()
			return server.Deps{}, nil, fmt.Errorf("create chat backend %q: %w", name, err)
		}
		var asstOpts []assistant.Option
		if cfg.Providers.Chat.Model != "" {
			asstOpts = append(asstOpts, assistant.WithModel(cfg.Providers.Chat.Model))
		}
		if cfg.Providers.Chat.ThinkingModel != "" {
			asstOpts = append(asstOpts, assistant.WithThinkingModel(cfg.Providers.Chat.ThinkingModel))
		}
		deps.Replier = assistant.New(backend, asstOpts...)
		slog.Info("provider created", "kind", "chat", "name", name)
	}

	return deps, closeAll, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          voxkit — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Live", "gemini-live", cfg.Providers.Live.Model)
	printProvider("Chat", cfg.Providers.Chat.Name, cfg.Providers.Chat.Model)
	printProvider("Embeddings", configuredName(cfg.Providers.Embeddings.APIKey, "openai"), cfg.Providers.Embeddings.Model)
	if cfg.Knowledge.PostgresDSN != "" {
		fmt.Printf("║  Knowledge       : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Knowledge       : %-19s ║\n", "(disabled)")
	}
	fmt.Printf("║  Voice agents    : %-19d ║\n", len(cfg.VoiceAgents))
	fmt.Printf("║  Chatbots        : %-19d ║\n", len(cfg.Chatbots))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func configuredName(apiKey, name string) string {
	if apiKey == "" {
		return ""
	}
	return name
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
