// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, room listing, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (h *Hub) upgrader() websocket.Upgrader {
	policy := newOriginPolicy(h.config.AllowedOrigins)
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.checkOrigin,
	}
}

// WebSocketHandler upgrades GET requests to WebSocket connections and
// registers each connection with the hub, which launches its pumps.
func (h *Hub) WebSocketHandler() http.HandlerFunc {
	upgrader := h.upgrader()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
			return
		}

		client := NewClient(conn, h, r.RemoteAddr)
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
		}
	}
}

// RoomsHandler lists every room and its current participants as JSON.
func (h *Hub) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.engine.Rooms()); err != nil {
		log.Warn().Err(err).Msg("error writing rooms response")
	}
}

// HealthHandler reports that the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat rooms server is running!")
}

// TestPageHandler serves a small HTML page for exercising the room commands
// from a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		log.Warn().Err(err).Msg("error writing HTML response")
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Rooms Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        input[type="text"] { width: 160px; padding: 5px; margin-right: 6px; }
        button { padding: 5px 12px; background-color: #007cba; color: white; border: none; cursor: pointer; }
    </style>
</head>
<body>
    <h1>GoChat Rooms Test</h1>
    <div>
        <input type="text" id="room" placeholder="room">
        <input type="text" id="user" placeholder="user">
        <button onclick="cmd('create')">Create</button>
        <button onclick="cmd('join')">Join</button>
        <button onclick="cmd('leave')">Leave</button>
        <button onclick="cmd('rooms')">Rooms</button>
    </div>
    <div style="margin-top: 8px">
        <input type="text" id="message" placeholder="message" style="width: 340px">
        <button onclick="cmd('send')">Send</button>
    </div>
    <div id="log"></div>
    <script>
        const logDiv = document.getElementById('log');
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');

        function show(text) {
            const line = document.createElement('div');
            line.textContent = text;
            logDiv.appendChild(line);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function cmd(action) {
            ws.send(JSON.stringify({
                action: action,
                room: document.getElementById('room').value,
                user: document.getElementById('user').value,
                message: document.getElementById('message').value
            }));
        }

        ws.onopen = () => show('connected');
        ws.onclose = () => show('disconnected');
        ws.onmessage = (e) => {
            const evt = JSON.parse(e.data);
            show('[' + (evt.room || '-') + '] ' + evt.event + ': ' + evt.args.join(' | '));
        };
    </script>
</body>
</html>`
