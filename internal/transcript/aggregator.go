// Package transcript accumulates the streaming transcript fragments of a
// live conversation into finalised turns.
//
// The remote service delivers recognised speech incrementally: a turn arrives
// as a sequence of partial fragments ("Hel", "lo") for each direction, closed
// by a turn-complete marker. The [Aggregator] concatenates fragments per
// direction in arrival order, finalises both directions into [Turn] records
// at the turn boundary, and keeps an append-only history for the session.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/voxkit-ai/voxkit/pkg/live"
)

// Turn is one finalised utterance: everything one side said between two turn
// boundaries. Text may be empty when the side said nothing during the turn —
// the placeholder keeps history aligned to turn boundaries.
type Turn struct {
	Direction live.Direction
	Text      string
	At        time.Time
}

// Sink receives finalised turns. Implementations must not block: they are
// invoked from the dispatch path of a live session.
type Sink interface {
	ConsumeTurn(t Turn)
}

// Option is a functional option for configuring an [Aggregator].
type Option func(*Aggregator)

// WithSink attaches a Sink that receives every finalised Turn.
func WithSink(s Sink) Option {
	return func(a *Aggregator) { a.sink = s }
}

// WithCorrector attaches a Corrector applied to user-direction text when a
// turn is finalised. Agent text is the service's own rendering of its speech
// and is kept verbatim.
func WithCorrector(c *Corrector) Option {
	return func(a *Aggregator) { a.corrector = c }
}

// WithClock overrides the time source for Turn timestamps. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator accumulates transcript fragments for one session. It is safe
// for concurrent use.
type Aggregator struct {
	sink      Sink
	corrector *Corrector
	now       func() time.Time

	mu      sync.Mutex
	user    strings.Builder
	agent   strings.Builder
	history []Turn
}

// New constructs an Aggregator with the supplied options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AppendUser adds a fragment of recognised user speech to the turn in
// progress. Fragments are concatenated exactly as delivered; the service owns
// spacing between them.
func (a *Aggregator) AppendUser(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.WriteString(fragment)
}

// AppendAgent adds a fragment of the agent's speech transcript to the turn in
// progress.
func (a *Aggregator) AppendAgent(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agent.WriteString(fragment)
}

// Partials returns the accumulated text of the turn in progress for both
// directions.
func (a *Aggregator) Partials() (user, agent string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user.String(), a.agent.String()
}

// CompleteTurn finalises the turn in progress: the user Turn is appended to
// history first, then the agent Turn, and both buffers are cleared. Turns are
// recorded and delivered to the sink even when their text is empty.
func (a *Aggregator) CompleteTurn() (user, agent Turn) {
	a.mu.Lock()
	at := a.now()

	userText := a.user.String()
	if a.corrector != nil && userText != "" {
		userText = a.corrector.Correct(userText)
	}
	user = Turn{Direction: live.DirectionUser, Text: userText, At: at}
	agent = Turn{Direction: live.DirectionAgent, Text: a.agent.String(), At: at}

	a.history = append(a.history, user, agent)
	a.user.Reset()
	a.agent.Reset()
	sink := a.sink
	a.mu.Unlock()

	if sink != nil {
		sink.ConsumeTurn(user)
		sink.ConsumeTurn(agent)
	}
	return user, agent
}

// Reset clears both partial buffers without emitting anything. Used on
// interruption and teardown: a cut-off utterance must not appear in history
// as if it completed normally.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.Reset()
	a.agent.Reset()
}

// Clear resets the partial buffers and discards the history. Used when a new
// session begins on a reused Aggregator.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.Reset()
	a.agent.Reset()
	a.history = nil
}

// History returns a copy of every finalised Turn in completion order.
func (a *Aggregator) History() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Turn(nil), a.history...)
}
