package broadcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TransportSSE       = "sse"
	TransportWebSocket = "ws"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

var ErrStreamUnsupported = errors.New("streaming unsupported")

// ServeSSE streams events to w as Server-Sent Events until the request is
// cancelled or the subscriber is dropped. The event name is the topic.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, topics ...string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamUnsupported
	}

	// Subscribe before the headers go out so a client that sees the 200
	// cannot miss an event published right after.
	sub := hub.Subscribe(TransportSSE, topics...)
	defer hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-sub.Done():
			return nil
		case ev := <-sub.Events():
			if err := WriteSSE(w, ev); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

// WriteSSE encodes one event in text/event-stream framing.
func WriteSSE(w io.Writer, ev Event) error {
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\n", ev.ID, ev.Topic); err != nil {
		return err
	}
	for _, line := range bytes.Split(ev.Data, []byte("\n")) {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Frame is the JSON message written to WebSocket clients.
type Frame struct {
	ID    string          `json:"id"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Upgrader builds the WebSocket upgrader. allowOrigin nil accepts any origin.
func Upgrader(allowOrigin func(origin string) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowOrigin == nil {
				return true
			}
			return allowOrigin(origin)
		},
	}
}

// ServeWS upgrades the request and pumps events to the client as JSON frames.
// Client messages are ignored; reads only track liveness.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, topics ...string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := hub.Subscribe(TransportWebSocket, topics...)
	defer hub.Unsubscribe(sub)

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		readPump(conn)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			return nil
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
				time.Now().Add(writeWait))
			return nil
		case ev := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Frame{ID: ev.ID, Topic: ev.Topic, Data: ev.Data}); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
