// Package live defines the boundary to the remote conversational-audio
// service: a bidirectional channel that accepts microphone audio and client
// text, and delivers synthesised agent audio plus streaming transcripts for
// both directions.
//
// The central abstraction is [Channel]: an open session on the remote service
// whose inbound traffic is surfaced as a single stream of tagged [Event]
// values. A single event stream — rather than per-kind callbacks — lets the
// consumer dispatch every inbound message from one place and keeps ordering
// explicit.
//
// Implementations wrap a concrete service protocol (live/gemini) or a script
// (live/mock). All implementations must be safe for concurrent use.
package live

import "context"

// Voice identifies one of the fixed synthetic voices offered by the service.
type Voice string

// The five prebuilt voices.
const (
	VoiceZephyr Voice = "Zephyr"
	VoicePuck   Voice = "Puck"
	VoiceCharon Voice = "Charon"
	VoiceKore   Voice = "Kore"
	VoiceFenrir Voice = "Fenrir"
)

// Voices lists every valid [Voice] in a stable order.
func Voices() []Voice {
	return []Voice{VoiceZephyr, VoicePuck, VoiceCharon, VoiceKore, VoiceFenrir}
}

// IsValid reports whether v is a recognised voice identifier.
func (v Voice) IsValid() bool {
	switch v {
	case VoiceZephyr, VoicePuck, VoiceCharon, VoiceKore, VoiceFenrir:
		return true
	}
	return false
}

// SessionConfig is the immutable configuration for a new live session.
type SessionConfig struct {
	// Instructions is the persona prompt that defines the agent's
	// personality and behavioural constraints.
	Instructions string

	// Voice selects the synthetic voice for the agent's speech.
	Voice Voice

	// KnowledgeContext is optional background text appended to the
	// instructions at session setup, giving the agent domain knowledge to
	// draw on. Empty means no extra context.
	KnowledgeContext string
}

// Direction tags a transcript fragment with its speaker side.
type Direction int

const (
	// DirectionUser marks speech recognised from the microphone input.
	DirectionUser Direction = iota

	// DirectionAgent marks the text form of the agent's spoken output.
	DirectionAgent
)

// String returns the human-readable name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionUser:
		return "user"
	case DirectionAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// EventType classifies inbound channel events.
type EventType int

const (
	// EventOpened signals that the remote service accepted the session
	// setup and is ready for audio.
	EventOpened EventType = iota

	// EventTranscript carries a partial transcript fragment for the turn
	// in progress, tagged with its Direction.
	EventTranscript

	// EventAudio carries one decoded segment of synthesised agent speech
	// (little-endian mono int16 PCM at the service's output rate).
	EventAudio

	// EventTurnComplete marks the boundary of a conversation turn: both
	// directions' accumulated fragments are final.
	EventTurnComplete

	// EventInterrupted signals that the user started speaking over the
	// agent; buffered agent audio is stale and must be discarded.
	// This is a normal protocol signal, not an error.
	EventInterrupted

	// EventError reports a fatal channel error. The Err field is set.
	EventError

	// EventClosed reports that the channel has shut down. No further
	// events follow.
	EventClosed
)

// String returns the human-readable name of the event type.
func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventTranscript:
		return "transcript"
	case EventAudio:
		return "audio"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one inbound message from the remote service. Exactly the fields
// relevant to Type are populated: Text and Direction for EventTranscript,
// Audio for EventAudio, Err for EventError.
type Event struct {
	Type      EventType
	Direction Direction
	Text      string
	Audio     []byte
	Err       error
}

// Channel is an open bidirectional session with the remote service.
//
// The session is the hot path of a live conversation — SendAudio is called at
// the microphone's hardware cadence and must return quickly. Callers must
// call Close when the session is no longer needed.
type Channel interface {
	// Events returns the read-only stream of inbound events, delivered in
	// the order received from the service. The channel is closed after an
	// EventClosed or EventError is delivered, or after Close is called.
	// Consumers must drain promptly to avoid stalling the receive loop.
	Events() <-chan Event

	// SendAudio transmits one frame of microphone audio (little-endian
	// mono int16 PCM at the service's input rate). Frames must be sent in
	// capture order. Returns an error if the channel is closed or the
	// transmit fails.
	SendAudio(pcm []byte) error

	// SendText injects a client text message into the conversation.
	SendText(text string) error

	// Close terminates the session and releases all resources. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Provider opens live sessions against a concrete remote service.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Connect establishes a new session with the given configuration.
	// Returns an error if the session cannot be established
	// (authentication failure, invalid voice, ctx cancelled). The caller
	// owns the Channel and is responsible for calling Close.
	Connect(ctx context.Context, cfg SessionConfig) (Channel, error)
}
