package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// DefaultAllowedOrigins are accepted in addition to any configured origins.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://localhost:3000",
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1:3000",
	"http://127.0.0.1",
}

// NewUpgrader returns an upgrader that accepts requests without an Origin
// header (non-browser clients), the default local origins and extra.
func NewUpgrader(extra []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(DefaultAllowedOrigins)+len(extra))
	for _, o := range DefaultAllowedOrigins {
		allowed[o] = struct{}{}
	}
	for _, o := range extra {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// ServeWS upgrades the request and hands the connection to the hub. identity
// is the user id verified from the request token, or "" for anonymous clients.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, identity string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("Failed to upgrade WebSocket connection", "identity", identity, "error", err)
		return
	}

	client := newClient(hub, conn)
	id, err := hub.Accept(client, identity)
	if err != nil {
		hub.logger.Error("Failed to accept WebSocket connection", "identity", identity, "error", err)
		conn.Close()
		return
	}
	client.connID = id
	client.start()

	hub.logger.Info("New WebSocket connection established", "connID", id, "identity", identity)
}
