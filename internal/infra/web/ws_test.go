//go:build !integration

package web

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/realtime"
)

type socketClient struct {
	t *testing.T
	c *websocket.Conn
}

func dialSocket(t *testing.T, ts *httptest.Server, path string, header http.Header) *socketClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &socketClient{t: t, c: c}
}

func (s *socketClient) send(v any) {
	s.t.Helper()
	if err := s.c.WriteJSON(v); err != nil {
		s.t.Fatalf("write: %v", err)
	}
}

func (s *socketClient) next() map[string]string {
	s.t.Helper()
	_ = s.c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f map[string]string
	if err := s.c.ReadJSON(&f); err != nil {
		s.t.Fatalf("read: %v", err)
	}
	return f
}

func (s *socketClient) expect(typ string) map[string]string {
	s.t.Helper()
	f := s.next()
	if f["type"] != typ {
		s.t.Fatalf("expected %q frame, got %v", typ, f)
	}
	return f
}

func TestChatSocketRejectsBadToken(t *testing.T) {
	e := newTestEnv(t, 0)
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	c := dialSocket(t, ts, "/v1/ai/chat?token=garbage", nil)
	f := c.expect(chatError)
	if f["content"] != "Invalid or missing access token" {
		t.Fatalf("frame = %v", f)
	}
}

func TestChatSocketConversation(t *testing.T) {
	e := newTestEnv(t, 0)
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	pair, _ := e.tokens.Issue("user-1")
	c := dialSocket(t, ts, "/v1/ai/chat?token="+pair.AccessToken, nil)

	c.send(chatClientFrame{Type: chatMessage, Content: "hello"})
	if f := c.expect(chatError); f["content"] != msgNotStarted {
		t.Fatalf("message before start: %v", f)
	}

	c.send(chatClientFrame{Type: chatStart, ScenarioID: "missing"})
	if f := c.expect(chatError); f["content"] != "Not found" {
		t.Fatalf("missing scenario: %v", f)
	}

	c.send(chatClientFrame{Type: chatStart, ScenarioID: "sc-1", RoundID: "round-1"})
	f := c.expect(chatStarted)
	if f["conversationId"] != "conv-1" || f["roundId"] != "round-1" {
		t.Fatalf("started = %v", f)
	}

	c.send(chatClientFrame{Type: chatStart, ScenarioID: "sc-1"})
	if f := c.expect(chatError); f["content"] != msgAlreadyStarted {
		t.Fatalf("second start: %v", f)
	}

	c.send(chatClientFrame{Type: chatMessage, Content: "dzien dobry"})
	f = c.expect(chatResponse)
	if f["content"] != "echo: dzien dobry" || f["audio"] != "UklGRg==" || f["audioError"] != "" {
		t.Fatalf("response = %v", f)
	}

	c.send(chatClientFrame{Type: chatMessage, Content: "mute"})
	f = c.expect(chatResponse)
	if f["audio"] != "" || f["audioError"] != "tts unavailable" {
		t.Fatalf("degraded response = %v", f)
	}

	c.send(chatClientFrame{Type: chatMessage})
	if f := c.expect(chatError); f["content"] != "Message content is required" {
		t.Fatalf("empty message: %v", f)
	}

	c.send(chatClientFrame{Type: chatAudio, AudioData: base64.StdEncoding.EncodeToString([]byte("voice")), MimeType: "audio/ogg"})
	if f := c.expect(chatTranscription); f["content"] != "heard voice" {
		t.Fatalf("transcription = %v", f)
	}
	if f := c.expect(chatResponse); f["content"] != "echo: heard voice" {
		t.Fatalf("audio response = %v", f)
	}

	c.send(chatClientFrame{Type: chatAudio, AudioData: "%%%"})
	c.expect(chatError)

	c.send(chatClientFrame{Type: chatEnd})
	if f := c.expect(chatEnded); f["content"] != msgEnded {
		t.Fatalf("ended = %v", f)
	}
	if e.chat.endedCount() != 1 {
		t.Fatalf("ended %d sessions", e.chat.endedCount())
	}

	// the socket stays usable after end
	c.send(chatClientFrame{Type: chatEnd})
	if f := c.expect(chatError); f["content"] != msgNoSession {
		t.Fatalf("end without session: %v", f)
	}
	c.send(chatClientFrame{Type: "dance"})
	c.expect(chatError)
}

func TestChatSocketProtocolTokenAndDisconnect(t *testing.T) {
	e := newTestEnv(t, 0)
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	pair, _ := e.tokens.Issue("user-2")
	hdr := http.Header{}
	hdr.Set("Sec-WebSocket-Protocol", "access_token, "+pair.AccessToken)
	c := dialSocket(t, ts, "/v1/ai/chat", hdr)
	if c.c.Subprotocol() != accessTokenProtocol {
		t.Fatalf("subprotocol = %q", c.c.Subprotocol())
	}

	c.send(chatClientFrame{Type: chatStart, ScenarioID: "sc-1"})
	if f := c.expect(chatStarted); f["roundId"] != "round-gen" {
		t.Fatalf("started = %v", f)
	}
	_ = c.c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for e.chat.endedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if e.chat.endedCount() != 1 {
		t.Fatal("disconnect did not end the open session")
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChatSocketDropsSilentPeer(t *testing.T) {
	e := newTestEnvWith(t, Options{PongWait: 100 * time.Millisecond})
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	pair, _ := e.tokens.Issue("user-3")
	c := dialSocket(t, ts, "/v1/ai/chat?token="+pair.AccessToken, nil)
	c.send(chatClientFrame{Type: chatStart, ScenarioID: "sc-1"})
	c.expect(chatStarted)

	// the client stops reading, so pings go unanswered
	waitUntil(t, "session end after missed pongs", func() bool { return e.chat.endedCount() == 1 })
}

func TestChatSocketKeepsAnsweringPeer(t *testing.T) {
	e := newTestEnvWith(t, Options{PongWait: 500 * time.Millisecond})
	ts := httptest.NewServer(e.h)
	defer ts.Close()

	pair, _ := e.tokens.Issue("user-4")
	c := dialSocket(t, ts, "/v1/ai/chat?token="+pair.AccessToken, nil)
	c.send(chatClientFrame{Type: chatStart, ScenarioID: "sc-1"})
	c.expect(chatStarted)

	// a blocked read still answers pings through the default handler
	_ = c.c.SetReadDeadline(time.Now().Add(1200 * time.Millisecond))
	if _, _, err := c.c.ReadMessage(); err == nil {
		t.Fatal("unexpected data frame")
	}
	if e.chat.endedCount() != 0 {
		t.Fatal("live peer was dropped")
	}
}

// --- realtime relay ---

type stubLive struct {
	once   sync.Once
	closed chan struct{}
}

func (s *stubLive) SendAudio([]byte, string) error { return nil }

func (s *stubLive) Receive() (adapter.LiveEvent, error) {
	<-s.closed
	return adapter.LiveEvent{}, errors.New("closed")
}

func (s *stubLive) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type stubDialer struct{ err error }

func (d stubDialer) Dial(context.Context) (adapter.LiveSession, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &stubLive{closed: make(chan struct{})}, nil
}

func newConversationServer(t *testing.T, d adapter.LiveDialer, opts Options) (*httptest.Server, *realtime.Registry) {
	t.Helper()
	reg := realtime.NewRegistry(d, time.Minute, newTestLogger())
	srv := NewServer(Deps{Realtime: reg, Tokens: NewAuthManager("a", "r", 0, 0)}, opts, newTestLogger())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, reg
}

func TestConversationSocket(t *testing.T) {
	ts, reg := newConversationServer(t, stubDialer{}, Options{})

	c := dialSocket(t, ts, "/v1/ai/conversation", nil)
	c.expect(realtime.FrameSessionOpened)
	if reg.Len() != 1 {
		t.Fatalf("sessions = %d", reg.Len())
	}

	c.send(realtime.ClientFrame{Type: realtime.FrameEndConversation})
	f := c.expect(realtime.FrameConversationEnded)
	if f["reason"] != realtime.ReasonClientRequest {
		t.Fatalf("ended = %v", f)
	}
}

func TestConversationSocketDropsSilentPeer(t *testing.T) {
	ts, reg := newConversationServer(t, stubDialer{}, Options{PongWait: 100 * time.Millisecond})

	c := dialSocket(t, ts, "/v1/ai/conversation", nil)
	c.expect(realtime.FrameSessionOpened)
	waitUntil(t, "session release after missed pongs", func() bool { return reg.Len() == 0 })
}

func TestConversationSocketDialFailure(t *testing.T) {
	ts, reg := newConversationServer(t, stubDialer{err: errors.New("upstream unavailable")}, Options{})

	c := dialSocket(t, ts, "/v1/ai/conversation", nil)
	f := c.expect(realtime.FrameError)
	if f["error"] != "upstream unavailable" {
		t.Fatalf("frame = %v", f)
	}
	if reg.Len() != 0 {
		t.Fatalf("sessions = %d", reg.Len())
	}
}
