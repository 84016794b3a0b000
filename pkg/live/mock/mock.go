// Package mock provides scriptable in-memory implementations of the live
// interfaces for testing. A test drives the conversation by emitting events
// on a mock Channel and inspecting the audio and text the code under test
// sent.
package mock

import (
	"context"
	"sync"

	"github.com/voxkit-ai/voxkit/pkg/live"
)

// Compile-time assertions that the mocks satisfy the live interfaces.
var _ live.Provider = (*Provider)(nil)
var _ live.Channel = (*Channel)(nil)

// Provider is a scriptable live.Provider. Each Connect call hands out a fresh
// Channel, which the test retrieves via Channels to drive the session.
type Provider struct {
	// ConnectErr, when set, is returned by every Connect call.
	ConnectErr error

	mu       sync.Mutex
	channels []*Channel
	configs  []live.SessionConfig
}

// Connect returns a new scripted Channel, or ConnectErr if set.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}

	ch := NewChannel()
	p.mu.Lock()
	p.channels = append(p.channels, ch)
	p.configs = append(p.configs, cfg)
	p.mu.Unlock()
	return ch, nil
}

// Channels returns every Channel handed out so far, in Connect order.
func (p *Provider) Channels() []*Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Channel(nil), p.channels...)
}

// Configs returns the SessionConfig of every Connect call, in order.
func (p *Provider) Configs() []live.SessionConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]live.SessionConfig(nil), p.configs...)
}

// Channel is a scriptable live.Channel. Tests emit inbound events with Emit
// and inspect outbound traffic with SentAudio and SentTexts.
type Channel struct {
	// SendAudioErr, when set, is returned by every SendAudio call.
	SendAudioErr error

	// SendTextErr, when set, is returned by every SendText call.
	SendTextErr error

	events chan live.Event

	mu        sync.Mutex
	sentAudio [][]byte
	sentTexts []string
	closed    bool
}

// NewChannel creates an unconnected scripted Channel. The event buffer is
// large enough that tests can script a whole conversation before the consumer
// starts draining.
func NewChannel() *Channel {
	return &Channel{events: make(chan live.Event, 256)}
}

// Emit delivers one inbound event to the consumer.
func (c *Channel) Emit(ev live.Event) { c.events <- ev }

// Finish closes the event stream without a terminal event, as the real
// channel does after a local Close.
func (c *Channel) Finish() { close(c.events) }

// EmitClosed delivers an EventClosed and then closes the stream, mimicking a
// server-initiated shutdown.
func (c *Channel) EmitClosed() {
	c.events <- live.Event{Type: live.EventClosed}
	close(c.events)
}

// EmitError delivers an EventError carrying err and then closes the stream.
func (c *Channel) EmitError(err error) {
	c.events <- live.Event{Type: live.EventError, Err: err}
	close(c.events)
}

// Events returns the scripted inbound event stream.
func (c *Channel) Events() <-chan live.Event { return c.events }

// SendAudio records pcm, or fails with SendAudioErr.
func (c *Channel) SendAudio(pcm []byte) error {
	if c.SendAudioErr != nil {
		return c.SendAudioErr
	}
	buf := append([]byte(nil), pcm...)
	c.mu.Lock()
	c.sentAudio = append(c.sentAudio, buf)
	c.mu.Unlock()
	return nil
}

// SendText records text, or fails with SendTextErr.
func (c *Channel) SendText(text string) error {
	if c.SendTextErr != nil {
		return c.SendTextErr
	}
	c.mu.Lock()
	c.sentTexts = append(c.sentTexts, text)
	c.mu.Unlock()
	return nil
}

// SentAudio returns every audio frame sent so far, in order.
func (c *Channel) SentAudio() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sentAudio...)
}

// SentTexts returns every text message sent so far, in order.
func (c *Channel) SentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sentTexts...)
}

// Close marks the channel closed. Idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
