// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"grimm.is/netsim/internal/logging"
)

var wsLog = logging.WithComponent("api-ws")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser/TUI clients this hub serves are same-origin or local-only
	// (spec.md carries no cross-origin browser deployment story), so the
	// default same-origin check is intentionally left in place rather than
	// widened.
}

// topicHub fans a topic's state snapshots out to every subscribed websocket
// connection. One hub instance is created per sim kernel endpoint (in
// NewSimEndpoint) and carries that kernel's state snapshots.
type topicHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newTopicHub() *topicHub {
	return &topicHub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Broadcast marshals snapshot and pushes it to every connected client,
// dropping the message for any client whose outbound buffer is full rather
// than blocking the publisher.
func (h *topicHub) Broadcast(snapshot interface{}) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		wsLog.WithError(err).Warn("failed to marshal websocket snapshot")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- data:
		default:
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams Broadcast
// payloads to it until the client disconnects.
func (h *topicHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLog.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Drain inbound frames so the connection's read deadline/pong handling
	// stays alive; this hub is push-only and ignores client messages.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for data := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
