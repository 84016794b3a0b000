// Package mock provides controllable in-memory implementations of the audio
// device interfaces for use in tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voxkit-ai/voxkit/pkg/audio"
)

// Compile-time interface assertions.
var _ audio.InputDevice = (*Device)(nil)
var _ audio.InputStream = (*Stream)(nil)
var _ audio.OutputSink = (*Sink)(nil)

// Device is a mock [audio.InputDevice]. The zero value grants a stream
// immediately; set OpenErr to simulate a permission failure, or Grant to
// defer the grant until the channel is closed (simulating a pending
// permission prompt).
type Device struct {
	// OpenErr, when non-nil, is returned by Open.
	OpenErr error

	// Grant, when non-nil, blocks Open until closed (or ctx is cancelled).
	Grant chan struct{}

	mu      sync.Mutex
	streams []*Stream
}

// Open implements [audio.InputDevice].
func (d *Device) Open(ctx context.Context) (audio.InputStream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	if d.Grant != nil {
		select {
		case <-d.Grant:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s := NewStream()
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Streams returns every stream granted so far, in grant order.
func (d *Device) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Stream, len(d.streams))
	copy(out, d.streams)
	return out
}

// OpenStreams returns the number of granted streams that have not been closed.
// Useful for resource-leak assertions.
func (d *Device) OpenStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.streams {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// Stream is a mock [audio.InputStream] fed by the test via [Stream.Push].
type Stream struct {
	buffers chan []float32

	mu     sync.Mutex
	closed bool
	err    error
}

// NewStream creates an open Stream with a small buffer.
func NewStream() *Stream {
	return &Stream{buffers: make(chan []float32, 16)}
}

// Push delivers one device buffer to the stream. Returns false if the stream
// is already closed.
func (s *Stream) Push(buf []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.buffers <- buf
	return true
}

// Fail terminates the stream with err, as if the device died mid-session.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.buffers)
}

// Buffers implements [audio.InputStream].
func (s *Stream) Buffers() <-chan []float32 { return s.buffers }

// Err implements [audio.InputStream].
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements [audio.InputStream].
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.buffers)
	return nil
}

// Closed reports whether the stream has been closed or failed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Play records one scheduled buffer on a [Sink].
type Play struct {
	Buf   []byte
	Start time.Duration

	done    func()
	mu      sync.Mutex
	stopped bool
	fired   bool
}

// Stop implements [audio.Playing].
func (p *Play) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

// Stopped reports whether Stop was called on this play.
func (p *Play) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Finish invokes the play's completion callback on a new goroutine, once.
// Calls after the first are no-ops.
func (p *Play) Finish() {
	p.mu.Lock()
	if p.fired {
		p.mu.Unlock()
		return
	}
	p.fired = true
	done := p.done
	p.mu.Unlock()
	if done != nil {
		ch := make(chan struct{})
		go func() {
			done()
			close(ch)
		}()
		<-ch
	}
}

// Sink is a mock [audio.OutputSink] with a manually advanced clock. Tests
// enqueue buffers through the scheduler under test, then inspect [Sink.Plays]
// and complete them via [Play.Finish].
type Sink struct {
	// PlayErr, when non-nil, is returned by Play (simulating a device
	// error on the output path).
	PlayErr error

	mu     sync.Mutex
	now    time.Duration
	plays  []*Play
	closed bool
}

// NewSink creates a Sink with its clock at zero.
func NewSink() *Sink { return &Sink{} }

// Advance moves the sink clock forward by d.
func (s *Sink) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now += d
}

// Now implements [audio.OutputSink].
func (s *Sink) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Play implements [audio.OutputSink].
func (s *Sink) Play(buf []byte, start time.Duration, done func()) (audio.Playing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("mock: sink closed")
	}
	if s.PlayErr != nil {
		return nil, s.PlayErr
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	p := &Play{Buf: cp, Start: start, done: done}
	s.plays = append(s.plays, p)
	return p, nil
}

// Plays returns a snapshot of every buffer scheduled so far, in order.
func (s *Sink) Plays() []*Play {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Play, len(s.plays))
	copy(out, s.plays)
	return out
}

// Close implements [audio.OutputSink].
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
