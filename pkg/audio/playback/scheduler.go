// Package playback schedules synthesised audio segments for gapless,
// time-ordered playback on an [audio.OutputSink].
//
// Segments arrive in bursts while the agent is speaking. Each segment is
// scheduled to start exactly at the computed end of the previous one; the
// first segment of a burst after an idle period is seeded at the sink's
// current clock position. An interruption flush (barge-in) stops every
// in-flight segment at once and resets the schedule to zero so the next burst
// starts fresh.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/voxkit-ai/voxkit/pkg/audio"
)

// Scheduler owns the set of concurrently in-flight playback segments and the
// monotonic next-start cursor. When the in-flight set becomes empty after a
// completion, the registered drained handler fires — the signal that the
// agent has finished speaking.
//
// All exported methods are safe for concurrent use.
type Scheduler struct {
	sink audio.OutputSink

	mu        sync.Mutex
	nextStart time.Duration
	nextID    uint64
	inflight  map[uint64]audio.Playing
	onDrained func()
	closed    bool
}

// New creates a Scheduler playing to sink. Call [Scheduler.Close] to release
// it; Close does not close the sink, which the caller owns.
func New(sink audio.OutputSink) *Scheduler {
	return &Scheduler{
		sink:     sink,
		inflight: make(map[uint64]audio.Playing),
	}
}

// OnDrained registers handler to be invoked whenever the in-flight set
// transitions to empty after a segment completes. Only one handler may be
// registered at a time; subsequent calls replace the previous registration.
// The handler is invoked from the sink's completion goroutine and must not
// block.
func (s *Scheduler) OnDrained(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDrained = handler
}

// Enqueue schedules one segment of little-endian mono int16 PCM at
// [audio.OutputSampleRate]. Segments are scheduled strictly in call order:
// the segment starts at the later of the current next-start cursor and the
// sink clock, and the cursor advances by the segment's duration.
func (s *Scheduler) Enqueue(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("playback: scheduler closed")
	}

	start := s.nextStart
	if now := s.sink.Now(); now > start {
		start = now
	}

	s.nextID++
	id := s.nextID
	playing, err := s.sink.Play(pcm, start, func() { s.complete(id) })
	if err != nil {
		return fmt.Errorf("playback: schedule segment: %w", err)
	}

	s.inflight[id] = playing
	s.nextStart = start + audio.PCM16Duration(len(pcm), audio.OutputSampleRate)
	return nil
}

// complete removes a finished segment from the in-flight set and fires the
// drained handler when the set empties. Completions for segments already
// removed by Flush are ignored, so a late sink callback after a barge-in
// cannot produce a spurious drain signal.
func (s *Scheduler) complete(id uint64) {
	s.mu.Lock()
	if _, ok := s.inflight[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.inflight, id)
	drained := len(s.inflight) == 0 && !s.closed
	handler := s.onDrained
	s.mu.Unlock()

	if drained && handler != nil {
		handler()
	}
}

// Flush immediately stops every in-flight segment, clears the set, and resets
// the next-start cursor to zero so the following burst is scheduled relative
// to the current clock rather than the stale pre-interruption offset. The
// drained handler does not fire for a flush.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	stopped := make([]audio.Playing, 0, len(s.inflight))
	for id, p := range s.inflight {
		stopped = append(stopped, p)
		delete(s.inflight, id)
	}
	s.nextStart = 0
	s.mu.Unlock()

	for _, p := range stopped {
		p.Stop()
	}
}

// InFlight returns the number of segments currently scheduled or playing.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Close flushes all playback and marks the scheduler unusable. Idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Flush()
	return nil
}
