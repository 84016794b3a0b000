package server

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/voxkit-ai/voxkit/internal/controller"
	"github.com/voxkit-ai/voxkit/internal/transcript"
	"github.com/voxkit-ai/voxkit/pkg/audio/webstream"
	"github.com/voxkit-ai/voxkit/pkg/live"
)

// handleVoice upgrades the request to a websocket and binds it to a fresh
// voice session for the named agent. The socket carries Opus mic audio up and
// Opus agent audio down; the handler blocks until the session ends, which
// happens when the widget disconnects, the remote channel closes, or the
// server shuts down.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("agent")
	agent, ok := s.agents[name]
	if !ok {
		http.Error(w, "unknown agent", http.StatusNotFound)
		return
	}

	// Assemble the knowledge grounding before upgrading, while the request
	// can still fail with a proper status.
	var knowledgeContext string
	var lexicon []string
	if s.builder != nil && len(agent.KnowledgeBases) > 0 {
		var err error
		knowledgeContext, err = s.builder.Concat(r.Context(), agent.KnowledgeBases)
		if err != nil {
			s.logger.Error("knowledge context assembly failed", "agent", name, "err", err)
			http.Error(w, "knowledge context unavailable", http.StatusBadGateway)
			return
		}
		lexicon, err = s.builder.Lexicon(r.Context(), agent.KnowledgeBases)
		if err != nil {
			// The session can run without transcript correction.
			s.logger.Warn("lexicon assembly failed", "agent", name, "err", err)
		}
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "agent", name, "err", err)
		return
	}

	conn, err := webstream.New(ws)
	if err != nil {
		s.logger.Error("webstream setup failed", "agent", name, "err", err)
		ws.Close(websocket.StatusInternalError, "audio setup failed")
		return
	}
	defer conn.Close()

	logger := s.logger.With("agent", name)

	aggOpts := []transcript.Option{
		transcript.WithSink(&transcript.LogSink{Logger: logger}),
	}
	if len(lexicon) > 0 {
		aggOpts = append(aggOpts, transcript.WithCorrector(transcript.NewCorrector(lexicon)))
	}
	agg := transcript.New(aggOpts...)

	ctrl := controller.New(s.live, conn, conn,
		controller.WithAggregator(agg),
		controller.WithLogger(logger),
		controller.WithMetrics(s.metrics),
	)

	// The first transition back to Idle or Error after Start is the session
	// ending; the handler only needs the edge, not every state.
	ended := make(chan struct{}, 1)
	ctrl.OnStateChange(func(st controller.State) {
		if st == controller.StateIdle || st == controller.StateError {
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	})

	// The session parents on the server context, not the upgrade request:
	// the request context dies with the hijack, while the session must live
	// until the socket or the server goes away.
	err = ctrl.Start(s.baseCtx, live.SessionConfig{
		Instructions:     agent.Instructions,
		Voice:            agent.Voice,
		KnowledgeContext: knowledgeContext,
	})
	if err != nil {
		logger.Error("session start failed", "err", err)
		ws.Close(websocket.StatusInternalError, "session start failed")
		return
	}

	select {
	case <-ended:
	case <-s.baseCtx.Done():
	}
	ctrl.Stop()
}
