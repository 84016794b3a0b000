// Package server exposes the voxkit HTTP surface: the websocket voice
// endpoint that binds a browser widget to a live agent session, text chat for
// the configured chatbots, knowledge-base management, health probes, and the
// Prometheus metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxkit-ai/voxkit/internal/assistant"
	"github.com/voxkit-ai/voxkit/internal/config"
	"github.com/voxkit-ai/voxkit/internal/health"
	"github.com/voxkit-ai/voxkit/internal/observe"
	"github.com/voxkit-ai/voxkit/pkg/knowledge"
	"github.com/voxkit-ai/voxkit/pkg/live"
	"github.com/voxkit-ai/voxkit/pkg/provider/embeddings"
)

// shutdownTimeout bounds how long Run waits for in-flight requests after the
// context is cancelled.
const shutdownTimeout = 15 * time.Second

// Replier answers text chat prompts. Satisfied by [assistant.Assistant].
type Replier interface {
	Reply(ctx context.Context, req assistant.Request) (string, error)
	BuilderReply(ctx context.Context, prompt string, history []assistant.Message) (string, error)
}

// Deps holds every collaborator the server binds together. Live is required;
// the rest are optional and gate their endpoints: a nil Store disables the
// knowledge API, a nil Replier disables chat.
type Deps struct {
	// Live opens remote voice sessions for the /ws/voice endpoint.
	Live live.Provider

	// Store persists knowledge bases. Nil disables the knowledge API.
	Store knowledge.Store

	// Embedder embeds source content on ingest and chat queries on retrieval.
	Embedder embeddings.Provider

	// Replier answers chatbot and builder prompts. Nil disables chat.
	Replier Replier

	// Health serves the /healthz and /readyz probes. Nil means probes report
	// no checks.
	Health *health.Handler

	// Metrics records server metrics. Nil means [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
}

// Server routes HTTP traffic to the voxkit subsystems. Create with [New],
// then either mount [Server.Handler] yourself or call [Server.Run].
type Server struct {
	cfg      *config.Config
	live     live.Provider
	store    knowledge.Store
	builder  *knowledge.ContextBuilder
	embedder embeddings.Provider
	replier  Replier
	health   *health.Handler
	metrics  *observe.Metrics
	logger   *slog.Logger

	// baseCtx parents every voice session so sessions end with the server,
	// not with the (hijacked) upgrade request.
	baseCtx context.Context

	agents map[string]config.VoiceAgentConfig
	bots   map[string]config.ChatbotConfig
}

// New creates a Server over cfg and deps. Agents and chatbots are looked up
// by their configured names.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		live:     deps.Live,
		store:    deps.Store,
		embedder: deps.Embedder,
		replier:  deps.Replier,
		health:   deps.Health,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		baseCtx:  context.Background(),
		agents:   make(map[string]config.VoiceAgentConfig),
		bots:     make(map[string]config.ChatbotConfig),
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.store != nil && s.embedder != nil {
		s.builder = knowledge.NewContextBuilder(s.store, s.embedder)
	}
	for _, a := range cfg.VoiceAgents {
		s.agents[a.Name] = a
	}
	for _, b := range cfg.Chatbots {
		s.bots[b.Name] = b
	}
	return s
}

// Handler returns the full route table. All routes except the websocket
// upgrade are wrapped in the metrics middleware; the upgrade must reach the
// raw ResponseWriter so the connection can be hijacked.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/agents", s.handleListAgents)

	mux.HandleFunc("POST /v1/chat/{bot}", s.handleChat)
	mux.HandleFunc("POST /v1/assistant", s.handleAssistant)

	if s.store != nil {
		mux.HandleFunc("PUT /v1/knowledge/bases/{baseID}", s.handleCreateBase)
		mux.HandleFunc("GET /v1/knowledge/bases", s.handleListBases)
		mux.HandleFunc("DELETE /v1/knowledge/bases/{baseID}", s.handleDeleteBase)
		mux.HandleFunc("PUT /v1/knowledge/bases/{baseID}/sources/{sourceID}", s.handleAddSource)
		mux.HandleFunc("GET /v1/knowledge/bases/{baseID}/sources", s.handleListSources)
		mux.HandleFunc("DELETE /v1/knowledge/bases/{baseID}/sources/{sourceID}", s.handleDeleteSource)
		mux.HandleFunc("GET /v1/knowledge/bases/{baseID}/search", s.handleSearch)
	}

	outer := http.NewServeMux()
	outer.HandleFunc("GET /ws/voice/{agent}", s.handleVoice)
	outer.Handle("/", observe.Middleware(s.metrics)(mux))
	return outer
}

// Run serves HTTP on the configured listen address until ctx is cancelled,
// then shuts down gracefully. Enables TLS when the config carries cert paths.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if tls := s.cfg.Server.TLS; tls != nil {
			errCh <- srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	s.logger.Info("server listening", "addr", s.cfg.Server.ListenAddr, "tls", s.cfg.Server.TLS != nil)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleListAgents returns the configured voice agents so a widget can
// present the catalogue.
func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	type agentInfo struct {
		Name  string `json:"name"`
		Voice string `json:"voice"`
	}
	out := make([]agentInfo, 0, len(s.cfg.VoiceAgents))
	for _, a := range s.cfg.VoiceAgents {
		out = append(out, agentInfo{Name: a.Name, Voice: string(a.Voice)})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
