package webstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/voxkit-ai/voxkit/pkg/audio"
	"github.com/voxkit-ai/voxkit/pkg/audio/webstream"
)

const frameSamples = 960 // 20 ms at 48 kHz

// widget is the browser end of a webstream connection, driven by tests.
type widget struct {
	conn *websocket.Conn
	enc  *gopus.Encoder
	dec  *gopus.Decoder
}

// newPair dials an httptest server and returns the server-side [webstream.Conn]
// together with the client-side widget.
func newPair(t *testing.T) (*webstream.Conn, *widget) {
	t.Helper()

	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		accepted <- c
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	clientConn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = clientConn.CloseNow() })

	serverConn := <-accepted
	conn, err := webstream.New(serverConn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	enc, err := gopus.NewEncoder(48000, 1, gopus.Voip)
	if err != nil {
		t.Fatalf("widget encoder: %v", err)
	}
	dec, err := gopus.NewDecoder(48000, 1)
	if err != nil {
		t.Fatalf("widget decoder: %v", err)
	}
	return conn, &widget{conn: clientConn, enc: enc, dec: dec}
}

// sendMicFrame encodes one 20 ms frame of the given constant sample value and
// sends it as widget microphone audio.
func (w *widget) sendMicFrame(t *testing.T, sample int16) {
	t.Helper()
	pcm := make([]int16, frameSamples)
	for i := range pcm {
		pcm[i] = sample
	}
	pkt, err := w.enc.Encode(pcm, frameSamples, frameSamples*2)
	if err != nil {
		t.Fatalf("widget encode: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.conn.Write(ctx, websocket.MessageBinary, pkt); err != nil {
		t.Fatalf("widget write: %v", err)
	}
}

// readAgentFrame reads one binary message and decodes it to 48 kHz PCM.
func (w *widget) readAgentFrame(t *testing.T) []int16 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	typ, data, err := w.conn.Read(ctx)
	if err != nil {
		t.Fatalf("widget read: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("widget read: want binary message, got %v", typ)
	}
	pcm, err := w.dec.Decode(data, frameSamples, false)
	if err != nil {
		t.Fatalf("widget decode: %v", err)
	}
	return pcm
}

func TestOpen_DeliversResampledMicBuffers(t *testing.T) {
	t.Parallel()
	conn, w := newPair(t)

	stream, err := conn.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	w.sendMicFrame(t, 0)

	select {
	case buf, ok := <-stream.Buffers():
		if !ok {
			t.Fatalf("buffers closed early, err: %v", stream.Err())
		}
		// 960 samples at 48 kHz resample to 320 at 16 kHz.
		if len(buf) != 320 {
			t.Errorf("buffer length: want 320, got %d", len(buf))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a mic buffer")
	}
}

func TestOpen_SecondOpenRejected(t *testing.T) {
	t.Parallel()
	conn, _ := newPair(t)

	stream, err := conn.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	if _, err := conn.Open(context.Background()); err == nil {
		t.Fatal("second Open should fail")
	}
}

func TestOpen_CancelledContext(t *testing.T) {
	t.Parallel()
	conn, _ := newPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := conn.Open(ctx); err == nil {
		t.Fatal("Open with cancelled context should fail")
	}
}

func TestStreamClose_EndsBuffersWithoutError(t *testing.T) {
	t.Parallel()
	conn, _ := newPair(t)

	stream, err := conn.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, ok := <-stream.Buffers():
		if ok {
			t.Fatal("expected buffers channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for buffers to close")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("local close is not a stream failure, got %v", err)
	}
}

func TestWidgetDisconnect_SurfacesStreamError(t *testing.T) {
	t.Parallel()
	conn, w := newPair(t)

	stream, err := conn.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	_ = w.conn.CloseNow()

	select {
	case _, ok := <-stream.Buffers():
		if ok {
			t.Fatal("expected buffers channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for buffers to close")
	}
	if stream.Err() == nil {
		t.Error("abnormal disconnect should surface as a stream error")
	}
}

func TestPlay_WritesOpusPacketsAndFiresDone(t *testing.T) {
	t.Parallel()
	conn, w := newPair(t)

	// 480 samples at 24 kHz = 20 ms, exactly one widget frame after resampling.
	buf := make([]byte, 480*2)

	var mu sync.Mutex
	doneFired := false
	_, err := conn.Play(buf, 0, func() {
		mu.Lock()
		doneFired = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	pcm := w.readAgentFrame(t)
	if len(pcm) != frameSamples {
		t.Errorf("agent frame: want %d samples, got %d", frameSamples, len(pcm))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		fired := doneFired
		mu.Unlock()
		if fired {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("done was not fired after the buffer's play duration")
}

func TestPlay_StopSuppressesDone(t *testing.T) {
	t.Parallel()
	conn, _ := newPair(t)

	// A long buffer so Stop lands well before natural completion.
	buf := make([]byte, audio.OutputSampleRate*2) // one second

	var mu sync.Mutex
	doneFired := false
	p, err := conn.Play(buf, 0, func() {
		mu.Lock()
		doneFired = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	p.Stop()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	fired := doneFired
	mu.Unlock()
	if fired {
		t.Error("done should not fire after Stop")
	}
}

func TestPlay_StopCutsRemainingPackets(t *testing.T) {
	t.Parallel()
	conn, w := newPair(t)

	// One second of audio is 50 widget packets.
	buf := make([]byte, audio.OutputSampleRate*2)
	p, err := conn.Play(buf, 0, nil)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	p.Stop()

	// Packets are written at their own play offsets, so only those due
	// within the first ~100 ms plus the jitter lead can have been sent.
	var got int
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		_, _, readErr := w.conn.Read(ctx)
		cancel()
		if readErr != nil {
			break
		}
		got++
	}
	if got == 0 {
		t.Fatal("no packets were written before Stop")
	}
	if got >= 20 {
		t.Errorf("widget received %d packets after an early Stop; want well under the segment's 50", got)
	}
}

func TestPlay_AfterCloseRejected(t *testing.T) {
	t.Parallel()
	conn, _ := newPair(t)

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := conn.Play(make([]byte, 960), 0, nil); err == nil {
		t.Fatal("Play after Close should fail")
	}
}

func TestNow_Monotonic(t *testing.T) {
	t.Parallel()
	conn, _ := newPair(t)

	a := conn.Now()
	time.Sleep(10 * time.Millisecond)
	b := conn.Now()
	if b <= a {
		t.Errorf("sink clock should advance: %v then %v", a, b)
	}
}
