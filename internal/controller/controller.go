// Package controller owns the lifecycle and state machine of a live voice
// session.
//
// A session binds four collaborators together: the microphone capture
// pipeline, the remote conversational-audio channel, the playback scheduler
// for the agent's synthesised speech, and the transcript aggregator. The
// Controller is the sole owner of the channel and the session state; the
// collaborators never observe state or talk to the channel directly.
//
// All inbound traffic — capture frames, channel events, playback-drained
// notifications — is serialised through one dispatch goroutine, which is the
// only writer of State. Teardown is a single idempotent routine reached from
// every exit path: local stop, channel close, and every fatal error.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxkit-ai/voxkit/internal/observe"
	"github.com/voxkit-ai/voxkit/internal/transcript"
	"github.com/voxkit-ai/voxkit/pkg/audio"
	"github.com/voxkit-ai/voxkit/pkg/audio/playback"
	"github.com/voxkit-ai/voxkit/pkg/live"
)

// ErrSessionActive is returned by Start when a session is already running.
// The existing session is left untouched.
var ErrSessionActive = errors.New("controller: session already active")

// State is the session lifecycle state. Exactly one authoritative State
// exists per Controller; the dispatch loop is its only writer.
type State int

const (
	// StateIdle means no session is running.
	StateIdle State = iota

	// StateConnecting means the remote channel and microphone are being
	// established.
	StateConnecting

	// StateListening means the session is up and forwarding microphone
	// frames; no agent audio is playing.
	StateListening

	// StateSpeaking means agent audio is scheduled or playing.
	StateSpeaking

	// StateError means the session collapsed on a fatal error and was torn
	// down. Err reports the cause. Stop returns the Controller to Idle.
	StateError
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the session for a UI to render.
type Snapshot struct {
	State        State
	UserPartial  string
	AgentPartial string
	History      []transcript.Turn
	Err          error
}

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics sets the metrics instance. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithAggregator replaces the transcript aggregator, letting the caller
// attach sinks and a lexicon corrector. Default: a bare transcript.New().
func WithAggregator(a *transcript.Aggregator) Option {
	return func(c *Controller) { c.agg = a }
}

// Controller manages at most one live voice session at a time. It is safe
// for concurrent use.
type Controller struct {
	provider live.Provider
	device   audio.InputDevice
	sink     audio.OutputSink
	agg      *transcript.Aggregator
	logger   *slog.Logger
	metrics  *observe.Metrics

	mu       sync.Mutex
	state    State
	lastErr  error
	sess     *session
	handlers []func(State)
}

// session bundles the resources of one running session. A fresh session is
// allocated per Start; teardown runs exactly once per session.
type session struct {
	ch        live.Channel
	capture   *audio.Capture
	scheduler *playback.Scheduler
	drained   chan struct{}
	startedAt time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	downOnce sync.Once
}

// New creates a Controller over the given collaborators. The provider opens
// remote sessions, device yields the microphone, sink plays agent audio.
func New(provider live.Provider, device audio.InputDevice, sink audio.OutputSink, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		device:   device,
		sink:     sink,
		state:    StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	if c.agg == nil {
		c.agg = transcript.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// OnStateChange registers a handler invoked on every state transition.
// Handlers are invoked from session goroutines and must not block.
func (c *Controller) OnStateChange(handler func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that collapsed the last session, or nil. Cleared by
// Stop and by a successful Start.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot returns the current state, both in-progress partial transcripts,
// and the finalised turn history.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	state, err := c.state, c.lastErr
	c.mu.Unlock()

	user, agent := c.agg.Partials()
	return Snapshot{
		State:        state,
		UserPartial:  user,
		AgentPartial: agent,
		History:      c.agg.History(),
		Err:          err,
	}
}

// Start opens a new session with cfg: it transitions Idle → Connecting,
// dials the remote service, acquires the microphone, and hands control to
// the dispatch loop. The session lives until Stop is called, ctx is
// cancelled, or the channel ends.
//
// Start is rejected with ErrSessionActive while a session is running; the
// running session is not disturbed. A connect or microphone failure
// transitions to StateError and tears everything down; nothing is retried.
func (c *Controller) Start(ctx context.Context, cfg live.SessionConfig) error {
	c.mu.Lock()
	if c.state != StateIdle || c.sess != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		drained:   make(chan struct{}, 1),
		startedAt: time.Now(),
		ctx:       sessCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	c.sess = sess
	c.lastErr = nil
	// Admission and the Connecting mark are one critical section: a
	// concurrent Start must never also observe Idle.
	c.state = StateConnecting
	handlers := append(([]func(State))(nil), c.handlers...)
	c.mu.Unlock()

	c.agg.Clear()
	c.announce(StateIdle, StateConnecting, handlers)
	c.metrics.ActiveSessions.Add(sessCtx, 1)

	connectStart := time.Now()
	ch, err := c.provider.Connect(sessCtx, cfg)
	if err != nil {
		err = fmt.Errorf("controller: connect: %w", err)
		c.teardown(sess, c.failState(sessCtx), err, "connect")
		return err
	}
	sess.ch = ch
	c.metrics.ConnectDuration.Record(sessCtx, time.Since(connectStart).Seconds())

	capture, err := audio.StartCapture(sessCtx, c.device)
	if err != nil {
		err = fmt.Errorf("controller: capture: %w", err)
		c.teardown(sess, c.failState(sessCtx), err, "capture")
		return err
	}
	sess.capture = capture

	sess.scheduler = playback.New(c.sink)
	sess.scheduler.OnDrained(func() {
		select {
		case sess.drained <- struct{}{}:
		default:
		}
	})

	c.logger.Info("session starting", "voice", string(cfg.Voice))
	go c.run(sess)
	return nil
}

// failState maps a Start-phase failure to its final state: a failure caused
// by local cancellation is a clean stop, anything else is an error.
func (c *Controller) failState(ctx context.Context) State {
	if ctx.Err() != nil {
		return StateIdle
	}
	return StateError
}

// Stop ends the running session, if any, and blocks until teardown has
// finished. Safe to call from any state, concurrently with any pending
// operation, and repeatedly: the second call is a no-op. After Stop the
// state is always Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess != nil {
		sess.cancel()
		<-sess.done
	}

	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
	c.setState(StateIdle)
}

// run is the dispatch loop: the sole consumer of capture frames, channel
// events, and drained notifications, and the sole writer of State while the
// session lives.
func (c *Controller) run(sess *session) {
	for {
		select {
		case <-sess.ctx.Done():
			c.teardown(sess, StateIdle, nil, "")
			return

		case frame, ok := <-sess.capture.Frames():
			if !ok {
				if err := sess.capture.Err(); err != nil {
					c.teardown(sess, StateError, fmt.Errorf("controller: capture: %w", err), "capture")
				} else {
					c.teardown(sess, StateIdle, nil, "")
				}
				return
			}
			if err := sess.ch.SendAudio(frame.Data); err != nil {
				c.teardown(sess, StateError, fmt.Errorf("controller: transmit: %w", err), "transmit")
				return
			}
			c.metrics.FramesForwarded.Add(sess.ctx, 1)

		case ev, ok := <-sess.ch.Events():
			if !ok {
				c.teardown(sess, StateIdle, nil, "")
				return
			}
			if !c.dispatch(sess, ev) {
				return
			}

		case <-sess.drained:
			if c.State() == StateSpeaking {
				c.setState(StateListening)
			}
		}
	}
}

// dispatch handles one inbound channel event. It returns false when the
// event ended the session.
func (c *Controller) dispatch(sess *session, ev live.Event) bool {
	switch ev.Type {
	case live.EventOpened:
		c.setState(StateListening)

	case live.EventTranscript:
		if ev.Direction == live.DirectionUser {
			c.agg.AppendUser(ev.Text)
		} else {
			c.agg.AppendAgent(ev.Text)
		}

	case live.EventAudio:
		if err := sess.scheduler.Enqueue(ev.Audio); err != nil {
			c.teardown(sess, StateError, fmt.Errorf("controller: playback: %w", err), "playback")
			return false
		}
		c.metrics.SegmentsScheduled.Add(sess.ctx, 1)
		if c.State() == StateListening {
			c.setState(StateSpeaking)
		}

	case live.EventTurnComplete:
		c.agg.CompleteTurn()
		c.metrics.TurnsCompleted.Add(sess.ctx, 1)

	case live.EventInterrupted:
		// Barge-in: kill the agent's audio mid-word and drop the cut-off
		// partials so the truncated utterance never reads as complete.
		sess.scheduler.Flush()
		c.agg.Reset()
		c.metrics.BargeIns.Add(sess.ctx, 1)
		if c.State() == StateSpeaking {
			c.setState(StateListening)
		}

	case live.EventError:
		c.teardown(sess, StateError, fmt.Errorf("controller: channel: %w", ev.Err), "channel")
		return false

	case live.EventClosed:
		c.teardown(sess, StateIdle, nil, "")
		return false
	}
	return true
}

// teardown releases every session resource exactly once and settles the
// final state. Order matters: the channel closes first so no more events
// arrive, capture halts frame production before the microphone is released,
// and the scheduler flush stops all in-flight audio.
func (c *Controller) teardown(sess *session, final State, err error, stage string) {
	sess.downOnce.Do(func() {
		sess.cancel()

		if sess.ch != nil {
			_ = sess.ch.Close()
		}
		if sess.capture != nil {
			sess.capture.Stop()
		}
		if sess.scheduler != nil {
			_ = sess.scheduler.Close()
		}
		c.agg.Reset()

		c.mu.Lock()
		if c.sess == sess {
			c.sess = nil
		}
		c.lastErr = err
		c.mu.Unlock()

		ctx := context.Background()
		c.metrics.ActiveSessions.Add(ctx, -1)
		c.metrics.RecordSessionEnd(ctx, time.Since(sess.startedAt))
		if err != nil {
			c.metrics.RecordSessionError(ctx, stage)
			c.logger.Error("session failed", "stage", stage, "err", err)
		} else {
			c.logger.Info("session ended", "lifetime", time.Since(sess.startedAt))
		}

		c.setState(final)
		close(sess.done)
	})
}

// setState transitions to next if it differs from the current state, records
// the transition, and notifies the registered handlers.
func (c *Controller) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = next
	handlers := append(([]func(State))(nil), c.handlers...)
	c.mu.Unlock()

	c.announce(prev, next, handlers)
}

// announce records a transition already applied under c.mu and invokes the
// captured handlers.
func (c *Controller) announce(prev, next State, handlers []func(State)) {
	c.metrics.RecordStateTransition(context.Background(), prev.String(), next.String())
	c.logger.Debug("state transition", "from", prev.String(), "to", next.String())
	for _, h := range handlers {
		h(next)
	}
}
