package audio_test

import (
	"testing"
	"time"

	"github.com/voxkit-ai/voxkit/pkg/audio"
)

func TestFloat32ToPCM16_Scaling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"half", 0.5, 16384},
		{"negative half", -0.5, -16384},
		{"positive full scale clamps", 1.0, 32767},
		{"negative full scale", -1.0, -32768},
		{"overdriven clamps high", 1.5, 32767},
		{"overdriven clamps low", -1.5, -32768},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := audio.Float32ToPCM16([]float32{tc.in})
			if len(out) != 2 {
				t.Fatalf("expected 2 bytes, got %d", len(out))
			}
			got := int16(out[0]) | int16(out[1])<<8
			if got != tc.want {
				t.Errorf("Float32ToPCM16(%v) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestPCM16ToFloat32_RoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.25, -0.25, 0.999, -1}
	got := audio.PCM16ToFloat32(audio.Float32ToPCM16(in))
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(in))
	}
	for i := range in {
		diff := got[i] - in[i]
		if diff < 0 {
			diff = -diff
		}
		// One quantisation step at 16 bits.
		if diff > 1.0/32768.0 {
			t.Errorf("sample %d: got %v, want %v (±1/32768)", i, got[i], in[i])
		}
	}
}

func TestStereoToMono_Averages(t *testing.T) {
	t.Parallel()

	stereo := audio.Int16sToBytes([]int16{100, 200, -50, 50})
	mono := audio.BytesToInt16s(audio.StereoToMono(stereo))
	want := []int16{150, 0}
	if len(mono) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(mono))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, mono[i], want[i])
		}
	}
}

func TestResampleMono16_HalvesRate(t *testing.T) {
	t.Parallel()

	src := make([]int16, 100)
	for i := range src {
		src[i] = int16(i)
	}
	out := audio.ResampleMono16(audio.Int16sToBytes(src), 48000, 24000)
	if got := len(out) / 2; got != 50 {
		t.Fatalf("expected 50 samples, got %d", got)
	}
}

func TestResampleMono16_SameRateUnchanged(t *testing.T) {
	t.Parallel()

	src := audio.Int16sToBytes([]int16{1, 2, 3})
	out := audio.ResampleMono16(src, 16000, 16000)
	if &out[0] != &src[0] {
		t.Error("expected input returned unchanged for equal rates")
	}
}

func TestPCM16Duration(t *testing.T) {
	t.Parallel()

	// 24000 mono samples at 24 kHz is exactly one second.
	if got := audio.PCM16Duration(48000, audio.OutputSampleRate); got != time.Second {
		t.Errorf("PCM16Duration = %v, want %v", got, time.Second)
	}

	frame := audio.Frame{Data: make([]byte, audio.FrameSamples*2)}
	want := time.Duration(audio.FrameSamples) * time.Second / audio.InputSampleRate
	if got := frame.Duration(); got != want {
		t.Errorf("Frame.Duration = %v, want %v", got, want)
	}
}
