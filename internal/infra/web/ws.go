package web

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TSHgroup/hh25-backend/internal/infra/realtime"
)

const (
	accessTokenProtocol = "access_token"
	writeWait           = 10 * time.Second
)

var _ realtime.Conn = (*wsConn)(nil)

// wsConn serializes writes; gorilla allows a single concurrent writer. A peer that stops
// answering pings for pongWait fails the pending read.
type wsConn struct {
	c    *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

func newWSConn(c *websocket.Conn, maxFrame int64, pongWait time.Duration) *wsConn {
	c.SetReadLimit(maxFrame)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	w := &wsConn{c: c, done: make(chan struct{})}
	go w.keepalive(pongWait * 9 / 10)
	return w
}

func (w *wsConn) keepalive(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			w.mu.Lock()
			err := w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			w.mu.Unlock()
			if err != nil {
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *wsConn) Send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteJSON(v)
}

// ReadMessage returns the next data frame.
func (w *wsConn) ReadMessage() ([]byte, error) {
	for {
		mt, b, err := w.c.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return b, nil
		}
	}
}

func (w *wsConn) Close() error {
	w.once.Do(func() { close(w.done) })
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.c.Close()
}

// socketToken reads the bearer token from ?token= or from
// "Sec-WebSocket-Protocol: access_token, <jwt>".
func socketToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	protos := websocket.Subprotocols(r)
	for i, p := range protos {
		if strings.EqualFold(p, accessTokenProtocol) && i+1 < len(protos) {
			return protos[i+1]
		}
	}
	return ""
}

func upgradeRequired(w http.ResponseWriter) {
	w.Header().Set("Upgrade", "websocket")
	writeJSON(w, http.StatusUpgradeRequired, struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{"Upgrade Required", "This endpoint requires a WebSocket connection"})
}
