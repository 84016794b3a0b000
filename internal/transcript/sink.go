package transcript

import (
	"log/slog"
	"sync"
)

// Compile-time assertions that the bundled sinks satisfy Sink.
var _ Sink = (*MemorySink)(nil)
var _ Sink = (*LogSink)(nil)

// MemorySink collects finalised turns in memory. Safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	turns []Turn
}

// ConsumeTurn appends t to the collected turns.
func (s *MemorySink) ConsumeTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// Turns returns a copy of every consumed Turn in arrival order.
func (s *MemorySink) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// LogSink writes finalised turns to a structured logger at Info level.
type LogSink struct {
	Logger *slog.Logger
}

// ConsumeTurn logs t with its direction and text.
func (s *LogSink) ConsumeTurn(t Turn) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("transcript turn",
		"direction", t.Direction.String(),
		"text", t.Text,
	)
}
