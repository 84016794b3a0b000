// Package gemini implements the live.Provider interface for Google's Gemini
// Live API.
//
// It establishes a bidirectional WebSocket connection to the Gemini Live
// endpoint and exchanges JSON messages according to the BidiGenerateContent
// protocol. Microphone audio is transmitted as base64-encoded PCM chunks;
// inbound server content is decoded into the tagged live.Event stream.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/voxkit-ai/voxkit/pkg/live"
)

// Compile-time assertions that Provider and channel satisfy the live interfaces.
var _ live.Provider = (*Provider)(nil)
var _ live.Channel = (*channel)(nil)

const (
	defaultModel   = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for sessions.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// ── Provider ───────────────────────────────────────────────────────────────────

// Provider implements live.Provider for Google's Gemini Live API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
}

// New creates a new Gemini Live Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Connect establishes a new Gemini Live session with the given configuration.
// The returned Channel is ready to accept audio immediately after the setup
// message is sent; an EventOpened arrives once the service acknowledges it.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Channel, error) {
	if cfg.Voice != "" && !cfg.Voice.IsValid() {
		return nil, fmt.Errorf("gemini: unknown voice %q", cfg.Voice)
	}

	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		p.baseURL, p.apiKey,
	)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: dial: %w", err)
	}

	chCtx, chCancel := context.WithCancel(context.Background())
	ch := &channel{
		conn:   conn,
		events: make(chan live.Event, 64),
		done:   make(chan struct{}),
		ctx:    chCtx,
		cancel: chCancel,
	}

	if err := ch.sendSetup(p.model, cfg); err != nil {
		chCancel()
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini: setup: %w", err)
	}

	go ch.receiveLoop()
	go ch.keepaliveLoop()

	return ch, nil
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model                    string             `json:"model"`
	GenerationConfig         generationConfig   `json:"generationConfig"`
	SystemInstruction        *systemInstruction `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *json.RawMessage   `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *json.RawMessage   `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []contentTurn `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type contentTurn struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	Error         *geminiError     `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type transcription struct {
	Text string `json:"text"`
}

// ── channel ────────────────────────────────────────────────────────────────────

type channel struct {
	conn   *websocket.Conn
	events chan live.Event

	mu     sync.Mutex
	closed bool

	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

var emptyObject = json.RawMessage(`{}`)

// sendSetup sends the initial BidiGenerateContent setup message. Both
// transcription directions are always requested: the event stream is the only
// source of transcript text for the session.
func (c *channel) sendSetup(model string, cfg live.SessionConfig) error {
	msg := setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			InputAudioTranscription:  &emptyObject,
			OutputAudioTranscription: &emptyObject,
		},
	}

	instructions := cfg.Instructions
	if cfg.KnowledgeContext != "" {
		instructions += "\n\nCONTEXT:\n" + cfg.KnowledgeContext
	}
	if instructions != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: instructions}},
		}
	}

	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: string(cfg.Voice)},
			},
		}
	}

	return c.writeJSON(msg)
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (c *channel) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gemini: marshal: %w", err)
	}
	return c.conn.Write(c.ctx, websocket.MessageText, data)
}

// deliver pushes one event onto the stream, abandoning it if the session has
// been torn down in the meantime.
func (c *channel) deliver(ev live.Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// receiveLoop reads messages from the WebSocket and translates them into
// events. It owns the events channel: it closes it when it exits.
func (c *channel) receiveLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			// If the session was closed locally, exit without an error
			// event; the closed channel is the signal.
			if c.ctx.Err() != nil {
				return
			}
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.deliver(live.Event{Type: live.EventClosed})
				return
			}
			c.deliver(live.Event{Type: live.EventError, Err: fmt.Errorf("gemini: read: %w", err)})
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // skip malformed frames
		}

		if !c.handleServerMessage(&msg) {
			return
		}
	}
}

// handleServerMessage translates one wire message into events. It returns
// false when the message carried a fatal error and the loop must stop.
//
// Within a single message, transcript fragments are delivered before the
// turn-complete marker so a consumer that finalises turns on EventTurnComplete
// has already seen every fragment belonging to the turn.
func (c *channel) handleServerMessage(msg *serverMessage) bool {
	if msg.Error != nil {
		text := "unknown error"
		if msg.Error.Message != "" {
			text = msg.Error.Message
		}
		c.deliver(live.Event{Type: live.EventError, Err: fmt.Errorf("gemini: %s", text)})
		return false
	}

	if msg.SetupComplete != nil {
		c.deliver(live.Event{Type: live.EventOpened})
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			c.deliver(live.Event{
				Type:      live.EventTranscript,
				Direction: live.DirectionUser,
				Text:      sc.InputTranscription.Text,
			})
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			c.deliver(live.Event{
				Type:      live.EventTranscript,
				Direction: live.DirectionAgent,
				Text:      sc.OutputTranscription.Text,
			})
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData == nil {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil || len(audio) == 0 {
					continue
				}
				c.deliver(live.Event{Type: live.EventAudio, Audio: audio})
			}
		}
		if sc.Interrupted {
			c.deliver(live.Event{Type: live.EventInterrupted})
		}
		if sc.TurnComplete {
			c.deliver(live.Event{Type: live.EventTurnComplete})
		}
	}

	return true
}

// keepaliveLoop sends WebSocket pings to keep the Gemini Live connection alive.
func (c *channel) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, keepaliveTimeout)
			_ = c.conn.Ping(pingCtx)
			cancel()
		}
	}
}

// Events returns the channel's inbound event stream.
func (c *channel) Events() <-chan live.Event { return c.events }

// SendAudio delivers a raw PCM audio chunk (16 kHz, s16le, mono) to the model.
func (c *channel) SendAudio(pcm []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("gemini: channel closed")
	}
	c.mu.Unlock()

	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{
				{MIMEType: "audio/pcm;rate=16000", Data: base64.StdEncoding.EncodeToString(pcm)},
			},
		},
	}
	return c.writeJSON(msg)
}

// SendText injects a client text turn into the conversation.
func (c *channel) SendText(text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("gemini: channel closed")
	}
	c.mu.Unlock()

	msg := clientContentMessage{
		ClientContent: clientContent{
			Turns: []contentTurn{
				{Role: "user", Parts: []part{{Text: text}}},
			},
			TurnComplete: true,
		},
	}
	return c.writeJSON(msg)
}

// Close terminates the session and releases all resources. Idempotent.
func (c *channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()    // unblocks receiveLoop and keepaliveLoop
	close(c.done) // signals keepaliveLoop via done channel
	c.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}
