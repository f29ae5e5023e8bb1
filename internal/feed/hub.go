// Package feed streams character events to websocket subscribers.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pefman/armorsheet/internal/sheet"
	"github.com/rs/zerolog"
)

const (
	sendChSize = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// wsMsg is the envelope every frame is wrapped in.
type wsMsg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn        *websocket.Conn
	characterID string // empty subscribes to every character
	send        chan []byte
}

// Hub fans sheet events out to connected clients. A client whose buffer is full
// is dropped rather than slowing down the publisher.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      log,
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements sheet.Notifier.
func (h *Hub) Publish(ev sheet.Event) {
	data, err := json.Marshal(wsMsg{Type: ev.Type, Data: ev})
	if err != nil {
		h.log.Error().Err(err).Str("type", ev.Type).Msg("feed: cannot encode event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.characterID != "" && c.characterID != ev.CharacterID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.Warn().Str("character", c.characterID).Msg("feed: client too slow, dropping")
			h.dropLocked(c)
		}
	}
}

// ServeHTTP upgrades the request and subscribes it to the character named by the
// {id} route variable, or to every character when the route has none.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("feed: upgrade failed")
		return
	}
	c := &client{
		conn:        conn,
		characterID: mux.Vars(r)["id"],
		send:        make(chan []byte, sendChSize),
	}
	hello, _ := json.Marshal(wsMsg{Type: "subscribed", Data: map[string]string{"character_id": c.characterID}})
	c.send <- hello

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("character", c.characterID).Str("from", r.RemoteAddr).Msg("feed: connect")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// writeLoop is the only writer on the connection.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug().Err(err).Msg("feed: write error")
				h.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// readLoop discards client frames and notices disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.log.Debug().Str("character", c.characterID).Msg("feed: closed")
			return
		}
	}
}
