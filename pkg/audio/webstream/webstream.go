// Package webstream adapts a browser widget's WebSocket connection to the
// [audio.InputDevice] and [audio.OutputSink] interfaces.
//
// The wire protocol is binary-only: the widget sends 20 ms mono Opus packets
// of microphone audio at 48 kHz, and receives 20 ms mono Opus packets of
// agent audio at 48 kHz. Resampling between the widget rate and the pipeline
// rates (16 kHz capture, 24 kHz playback) happens here so the rest of the
// pipeline never sees the widget format.
//
// One [Conn] serves exactly one voice session. Control messages (text frames)
// are handled by the HTTP layer before the socket is handed over.
package webstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/voxkit-ai/voxkit/pkg/audio"
)

// The widget runs WebRTC-style audio: 48 kHz mono Opus at 20 ms frames.
const (
	opusSampleRate  = 48000
	opusChannels    = 1
	opusFrameSizeMs = 20
	// opusFrameSize is the number of samples per 20 ms frame.
	opusFrameSize = opusSampleRate * opusFrameSizeMs / 1000 // 960
)

// opusFrameBytes is one Opus frame of 48 kHz PCM as little-endian int16.
const opusFrameBytes = opusFrameSize * 2

// packetLead is how far ahead of a packet's play offset it may be written,
// keeping a two-frame jitter buffer in the widget while bounding how much
// audio survives a mid-segment stop.
const packetLead = 2 * opusFrameSizeMs * time.Millisecond

var (
	_ audio.InputDevice = (*Conn)(nil)
	_ audio.OutputSink  = (*Conn)(nil)
)

// Conn is a single widget connection acting as both microphone and speaker
// for one voice session. All methods are safe for concurrent use.
type Conn struct {
	conn  *websocket.Conn
	epoch time.Time

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	enc     *gopus.Encoder

	mu     sync.Mutex
	opened bool
	closed bool
}

// New wraps an accepted WebSocket connection. The sink clock starts at zero
// when New returns.
func New(conn *websocket.Conn) (*Conn, error) {
	enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("webstream: create opus encoder: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		conn:   conn,
		epoch:  time.Now(),
		ctx:    ctx,
		cancel: cancel,
		enc:    enc,
	}, nil
}

// Open implements [audio.InputDevice]. The widget has already granted the
// microphone by the time the socket exists, so Open never blocks on a
// permission prompt; it fails when the connection is closed or was opened
// before.
func (c *Conn) Open(ctx context.Context) (audio.InputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("webstream: connection closed")
	}
	if c.opened {
		return nil, errors.New("webstream: microphone stream already open")
	}

	dec, err := gopus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("webstream: create opus decoder: %w", err)
	}

	s := &stream{
		buffers: make(chan []float32, 8),
		done:    make(chan struct{}),
	}
	c.opened = true
	go c.readLoop(s, dec)
	return s, nil
}

// readLoop decodes inbound Opus packets into 16 kHz float32 buffers until the
// socket fails, closes, or the stream is closed locally.
func (c *Conn) readLoop(s *stream, dec *gopus.Decoder) {
	defer close(s.buffers)

	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // closed locally, not a stream failure
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			s.fail(fmt.Errorf("webstream: read: %w", err))
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}

		pcm48, err := dec.Decode(data, opusFrameSize, false)
		if err != nil {
			s.fail(fmt.Errorf("webstream: opus decode: %w", err))
			return
		}
		pcm16 := audio.ResampleMono16(audio.Int16sToBytes(pcm48), opusSampleRate, audio.InputSampleRate)

		select {
		case s.buffers <- audio.PCM16ToFloat32(pcm16):
		case <-ctx.Done():
			return
		}
	}
}

// Now implements [audio.OutputSink].
func (c *Conn) Now() time.Duration {
	return time.Since(c.epoch)
}

// Play implements [audio.OutputSink]. The buffer is resampled to the widget
// rate, cut into 20 ms Opus packets and each packet is written no earlier
// than its own play offset minus [packetLead]; done fires once the buffer's
// play duration has elapsed on the sink clock. The widget plays packets as
// they arrive, so per-packet pacing is what keeps a mid-segment Stop from
// leaving already-bursted audio playing in the browser.
func (c *Conn) Play(buf []byte, start time.Duration, done func()) (audio.Playing, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("webstream: connection closed")
	}
	c.mu.Unlock()

	p := &playing{stopped: make(chan struct{})}
	go c.run(p, buf, start, done)
	return p, nil
}

func (c *Conn) run(p *playing, buf []byte, start time.Duration, done func()) {
	pcm48 := audio.ResampleMono16(buf, audio.OutputSampleRate, opusSampleRate)
	frameAt := start
	for off := 0; off < len(pcm48); off += opusFrameBytes {
		// Each packet waits for its own play offset, less a small lead so
		// the widget keeps a jitter buffer. A Stop lands between packets,
		// so a flush cuts playback mid-segment.
		if !c.sleepUntil(p, frameAt-packetLead) {
			return
		}
		select {
		case <-p.stopped:
			return
		case <-c.ctx.Done():
			return
		default:
		}

		end := off + opusFrameBytes
		frame := make([]byte, opusFrameBytes)
		if end > len(pcm48) {
			copy(frame, pcm48[off:]) // final partial frame, zero-padded
		} else {
			copy(frame, pcm48[off:end])
		}
		if err := c.writePacket(frame); err != nil {
			return
		}
		frameAt += opusFrameSizeMs * time.Millisecond
	}

	// The widget buffers ahead; completion is when the audio has played out
	// on the sink clock, not when the last packet was written.
	playEnd := start + audio.PCM16Duration(len(buf), audio.OutputSampleRate)
	if !c.sleepUntil(p, playEnd) {
		return
	}
	if done != nil {
		done()
	}
}

// sleepUntil blocks until the sink clock reaches deadline. It returns false
// when playback was stopped or the connection closed first.
func (c *Conn) sleepUntil(p *playing, deadline time.Duration) bool {
	wait := deadline - c.Now()
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-p.stopped:
		return false
	case <-c.ctx.Done():
		return false
	}
}

// writePacket encodes one PCM frame and writes it as a binary message.
// The gopus encoder is stateful, so encode and write are serialised together.
func (c *Conn) writePacket(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	pkt, err := c.enc.Encode(audio.BytesToInt16s(frame), opusFrameSize, len(frame))
	if err != nil {
		return fmt.Errorf("webstream: opus encode: %w", err)
	}
	if err := c.conn.Write(c.ctx, websocket.MessageBinary, pkt); err != nil {
		return fmt.Errorf("webstream: write: %w", err)
	}
	return nil
}

// Close implements [audio.OutputSink]. It stops all playback, terminates the
// read loop and closes the underlying socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "session ended")
}

// stream is the microphone half of a [Conn].
type stream struct {
	buffers chan []float32

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	done      chan struct{}
}

var _ audio.InputStream = (*stream)(nil)

func (s *stream) Buffers() <-chan []float32 { return s.buffers }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *stream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// playing is the handle for one scheduled buffer on a [Conn].
type playing struct {
	stopOnce sync.Once
	stopped  chan struct{}
}

var _ audio.Playing = (*playing)(nil)

// Stop implements [audio.Playing].
func (p *playing) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}
