// Package audio defines the device boundary and capture pipeline for voxkit
// voice sessions.
//
// The two primary abstractions are:
//
//   - [InputDevice] — opens the microphone and returns an [InputStream] of
//     hardware-paced raw sample buffers.
//   - [OutputSink] — accepts PCM buffers with a requested start time on a
//     monotonic clock and reports per-buffer playback completion.
//
// Implementations are provided by adapter packages (audio/webstream for the
// embedded browser widget, audio/mock for tests). The interfaces are
// intentionally narrow so the session controller stays decoupled from device
// details.
//
// This package lives under pkg/ because external code (alternative device
// adapters) is expected to implement [InputDevice] and [OutputSink].
package audio

import (
	"context"
	"time"
)

// InputDevice is the entry point for a microphone provider.
//
// Implementations must be safe for concurrent use.
type InputDevice interface {
	// Open acquires the microphone and starts the hardware-paced sample
	// stream. It may block for a long time (for example while a user
	// permission prompt is pending) and must honour ctx cancellation: when
	// ctx is cancelled before the device is granted, Open returns ctx's
	// error and releases anything it acquired, even if the grant resolves
	// afterwards.
	//
	// Failure to acquire the device (permission denied, no device) is
	// returned as an error; callers treat it as fatal and do not retry.
	Open(ctx context.Context) (InputStream, error)
}

// InputStream is an open microphone stream.
//
// Callers must call Close when the stream is no longer needed.
type InputStream interface {
	// Buffers returns a read-only channel delivering raw float32 mono
	// sample buffers at [InputSampleRate]. Buffer sizes follow the device's
	// own cadence and need not match [FrameSamples]. The channel is closed
	// when the stream ends or fails; call [InputStream.Err] afterwards to
	// distinguish the two.
	Buffers() <-chan []float32

	// Err returns the error that terminated the stream, or nil if the
	// stream was closed cleanly.
	Err() error

	// Close releases the device. Safe to call more than once; the Buffers
	// channel is closed as a consequence.
	Close() error
}

// Playing is a handle to one scheduled output buffer.
type Playing interface {
	// Stop cancels playback of this buffer immediately. Safe to call more
	// than once and after natural completion.
	Stop()
}

// OutputSink is an audio output device that plays PCM buffers at requested
// start times on its own monotonic clock.
//
// Implementations must be safe for concurrent use. The done callback passed
// to Play must be invoked at most once, from a goroutine other than the Play
// caller's, when the buffer finishes playing naturally. Implementations may
// also invoke done after [Playing.Stop]; callers tolerate both behaviours.
type OutputSink interface {
	// Now returns the sink's monotonic clock position.
	Now() time.Duration

	// Play schedules buf (little-endian mono int16 PCM at
	// [OutputSampleRate]) to begin at start on the sink clock.
	Play(buf []byte, start time.Duration, done func()) (Playing, error)

	// Close stops all playback and releases the device. Safe to call more
	// than once.
	Close() error
}
