// Package hub keeps the open notification sockets of each user and pushes new
// notifications to them.
package hub

import (
	"sync"

	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conn is the part of *websocket.Conn the hub needs.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type client struct {
	conn Conn
	mu   sync.Mutex // one writer at a time per socket
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Message is the envelope written to sockets.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*client]struct{}
}

func New() *Hub {
	return &Hub{clients: make(map[primitive.ObjectID]map[*client]struct{})}
}

// Register adds a socket for userID and returns the function that removes it.
func (h *Hub) Register(userID primitive.ObjectID, conn Conn) func() {
	c := &client{conn: conn}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	logger.Log.WithField("user_id", userID.Hex()).Debug("Notification socket registered")

	var once sync.Once
	return func() {
		once.Do(func() {
			h.remove(userID, c)
			_ = conn.Close()
		})
	}
}

func (h *Hub) remove(userID primitive.ObjectID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], c)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Push writes a message to every socket of userID. Sockets that fail are dropped.
func (h *Hub) Push(userID primitive.ObjectID, msgType string, payload interface{}) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := Message{Type: msgType, Payload: payload}
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": userID.Hex(),
				"error":   err,
			}).Warn("Dropping notification socket after write failure")
			h.remove(userID, c)
			_ = c.conn.Close()
		}
	}
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
