package audio

import "time"

// Fixed pipeline formats. The capture side feeds the remote voice service with
// 16 kHz mono PCM16; the service replies with 24 kHz mono PCM16. Both rates
// are dictated by the service's audio contract and are not configurable per
// session.
const (
	// InputSampleRate is the microphone capture rate in Hz.
	InputSampleRate = 16000

	// OutputSampleRate is the synthesised playback rate in Hz.
	OutputSampleRate = 24000

	// FrameSamples is the number of mono samples in one capture frame
	// (256 ms at InputSampleRate). Frames are cut to this exact size
	// regardless of the device's own buffer cadence.
	FrameSamples = 4096
)

// Frame is a single fixed-duration chunk of captured microphone audio.
// Data is little-endian mono int16 PCM at [InputSampleRate]. Frames carry no
// sequence tag — ordering is implicit from production order, and the capture
// pipeline guarantees strict temporal order on its output channel.
type Frame struct {
	Data []byte
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	return PCM16Duration(len(f.Data), InputSampleRate)
}

// PCM16Duration returns the duration of n bytes of mono little-endian int16
// PCM at the given sample rate.
func PCM16Duration(n int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := n / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
