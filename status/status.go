// Package status broadcasts notifications to websocket clients.
package status

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	INFO = iota
	ERROR
	PROGRESS
	WARNING
)

type Status struct {
	Message  string
	Time     time.Time
	Type     int
	Progress float32
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drains client frames so that close and pong control messages are processed.
func (c *client) readPump() {
	defer c.hub.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub keeps the last message and fans new ones out to clients.
type Hub struct {
	lock        sync.Mutex
	clients     map[*client]bool
	lastMessage []byte
	upgrader    websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Hub) register(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.clients[c] = true
	if h.lastMessage != nil {
		c.send <- h.lastMessage
	}
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Last is the most recent published message as sent to clients, nil before the first.
func (h *Hub) Last() []byte {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.lastMessage
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket client of the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[status] ws upgrade error: %v", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 32)}
	h.register(c)
	go c.writePump()
	go c.readPump()
}

// Publish sends s to every client. Slow clients drop messages instead of blocking the hub.
func (h *Hub) Publish(s Status) {
	if math.IsNaN(float64(s.Progress)) || math.IsInf(float64(s.Progress), 0) {
		s.Progress = 0
	}
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	data, err := json.Marshal(&s)
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.lastMessage = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[status] client is too slow, message dropped")
		}
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Publish(Status{Message: fmt.Sprintf(format, a...), Type: INFO})
}

func (h *Hub) Warning(format string, a ...interface{}) {
	h.Publish(Status{Message: fmt.Sprintf(format, a...), Type: WARNING})
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Publish(Status{Message: fmt.Sprintf(format, a...), Type: ERROR})
}

func (h *Hub) Progress(progress float32, format string, a ...interface{}) {
	h.Publish(Status{Message: fmt.Sprintf(format, a...), Type: PROGRESS, Progress: progress})
}
