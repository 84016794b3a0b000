package audio

import (
	"context"
	"fmt"
	"sync"
)

// captureBuf is the buffer depth of the capture frame channel. Deep enough to
// absorb a slow consumer for about a second without dropping the hardware
// cadence.
const captureBuf = 8

// Capture is the microphone capture pipeline. It owns an open [InputStream],
// accumulates the device's raw float buffers into frames of exactly
// [FrameSamples] mono samples, converts each frame to the int16 wire format,
// and pushes the result on [Capture.Frames] until stopped.
//
// Frame production is hardware-paced: a frame appears as soon as the device
// has delivered enough samples, never on an application timer. Frames are
// emitted in strict capture order.
//
// All exported methods are safe for concurrent use.
type Capture struct {
	stream InputStream
	frames chan Frame

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StartCapture acquires the microphone from device and starts the framing
// goroutine. It blocks until the device is granted or ctx is cancelled.
//
// If the device grant resolves after ctx is cancelled, the resulting stream is
// closed immediately rather than wired into a dead session, and ctx's error is
// returned.
func StartCapture(ctx context.Context, device InputDevice) (*Capture, error) {
	stream, err := device.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("audio: open input device: %w", err)
	}

	// The grant may have raced ctx cancellation inside Open; release the
	// stream rather than hand a live microphone to a torn-down session.
	if ctx.Err() != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("audio: open input device: %w", ctx.Err())
	}

	c := &Capture{
		stream: stream,
		frames: make(chan Frame, captureBuf),
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c, nil
}

// Frames returns the read-only channel of fixed-size capture frames. The
// channel is closed when the capture stops — either via [Capture.Stop] or
// because the underlying stream ended. After it closes, [Capture.Err] reports
// whether the stream failed.
func (c *Capture) Frames() <-chan Frame {
	return c.frames
}

// Err returns the error that terminated the underlying input stream, or nil.
func (c *Capture) Err() error {
	return c.stream.Err()
}

// Stop halts frame production and then releases the microphone, in that
// order, so no frame ever references a released device. Stop is idempotent
// and safe to call concurrently with a pending [StartCapture].
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		// Closing the stream closes its Buffers channel, which unblocks
		// the framing goroutine if it is waiting on the device.
		_ = c.stream.Close()
		c.wg.Wait()
	})
}

// run accumulates device buffers into exact FrameSamples-sized frames and
// forwards them until the stream ends or Stop is called. It owns c.frames and
// closes it on exit.
func (c *Capture) run() {
	defer c.wg.Done()
	defer close(c.frames)

	pending := make([]float32, 0, FrameSamples)
	for {
		select {
		case <-c.done:
			return
		case buf, ok := <-c.stream.Buffers():
			if !ok {
				return
			}
			pending = append(pending, buf...)
			for len(pending) >= FrameSamples {
				frame := Frame{Data: Float32ToPCM16(pending[:FrameSamples])}
				pending = append(pending[:0], pending[FrameSamples:]...)
				select {
				case c.frames <- frame:
				case <-c.done:
					return
				}
			}
		}
	}
}
