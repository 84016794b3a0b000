package server_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/voxkit-ai/voxkit/internal/server"
	"github.com/voxkit-ai/voxkit/pkg/knowledge"
	knowledgemock "github.com/voxkit-ai/voxkit/pkg/knowledge/mock"
	"github.com/voxkit-ai/voxkit/pkg/live"
	livemock "github.com/voxkit-ai/voxkit/pkg/live/mock"
	embedmock "github.com/voxkit-ai/voxkit/pkg/provider/embeddings/mock"
)

// dialVoice connects a widget websocket to the voice endpoint of a test
// server.
func dialVoice(t *testing.T, httpURL, agent string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(httpURL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL+"/ws/voice/"+agent, nil)
	if err != nil {
		t.Fatalf("dial voice endpoint: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestVoice_SessionCarriesAgentConfig(t *testing.T) {
	t.Parallel()

	provider := &livemock.Provider{}
	store := &knowledgemock.Store{
		ListSourcesResults: map[string][]knowledge.Source{
			"menu": {
				{ID: "s1", BaseID: "menu", Title: "latte", Content: "A latte is espresso with steamed milk."},
				{ID: "s2", BaseID: "menu", Title: "mocha", Content: "A mocha adds chocolate."},
			},
		},
		LexiconResults: map[string][]string{"menu": {"latte", "mocha"}},
	}

	srv := newTestServer(t, server.Deps{
		Live:     provider,
		Store:    store,
		Embedder: &embedmock.Provider{},
	})
	conn := dialVoice(t, srv.URL, "Barista")
	defer conn.CloseNow()

	waitFor(t, "session connect", func() bool { return len(provider.Channels()) == 1 })

	cfg := provider.Configs()[0]
	if cfg.Instructions != "You are a friendly barista." {
		t.Errorf("instructions: got %q", cfg.Instructions)
	}
	if cfg.Voice != live.VoiceZephyr {
		t.Errorf("voice: got %q", cfg.Voice)
	}
	want := "A latte is espresso with steamed milk.\n\nA mocha adds chocolate."
	if cfg.KnowledgeContext != want {
		t.Errorf("knowledge context:\nwant %q\ngot  %q", want, cfg.KnowledgeContext)
	}
}

func TestVoice_MicAudioReachesChannel(t *testing.T) {
	t.Parallel()

	provider := &livemock.Provider{}
	srv := newTestServer(t, server.Deps{Live: provider})
	conn := dialVoice(t, srv.URL, "Barista")
	defer conn.CloseNow()

	waitFor(t, "session connect", func() bool { return len(provider.Channels()) == 1 })
	ch := provider.Channels()[0]
	ch.Emit(live.Event{Type: live.EventOpened})

	enc, err := gopus.NewEncoder(48000, 1, gopus.Voip)
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pcm := make([]int16, 960)
	for i := range pcm {
		pcm[i] = 2000
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 48 kHz mic frames resample to 320 samples each at the pipeline rate;
	// the capture framer releases a frame once 4096 samples accumulate.
	for i := 0; i < 16; i++ {
		pkt, err := enc.Encode(pcm, 960, 4000)
		if err != nil {
			t.Fatalf("encode frame %d: %v", i, err)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, pkt); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}

	waitFor(t, "forwarded mic audio", func() bool { return len(ch.SentAudio()) > 0 })
}

func TestVoice_WidgetDisconnectEndsSession(t *testing.T) {
	t.Parallel()

	provider := &livemock.Provider{}
	srv := newTestServer(t, server.Deps{Live: provider})
	conn := dialVoice(t, srv.URL, "Barista")

	waitFor(t, "session connect", func() bool { return len(provider.Channels()) == 1 })
	ch := provider.Channels()[0]
	ch.Emit(live.Event{Type: live.EventOpened})

	conn.CloseNow()

	waitFor(t, "channel teardown", func() bool { return ch.Closed() })
}

func TestVoice_UnknownAgentRejected(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, server.Deps{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/voice/nobody", nil)
	if err == nil {
		t.Fatal("dial should fail for an unknown agent")
	}
	if resp != nil && resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: want 404, got %d", resp.StatusCode)
	}
}
