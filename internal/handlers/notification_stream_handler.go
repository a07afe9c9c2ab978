package handlers

import (
	"net/http"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/hub"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamHandler upgrades authenticated requests to a websocket that receives new
// notifications as they are created.
type StreamHandler struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler accepts sockets from allowedOrigins. An empty list or "*" allows any.
func NewStreamHandler(h *hub.Hub, allowedOrigins []string) *StreamHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &StreamHandler{
		Hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if _, wildcard := allowed["*"]; wildcard || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// NotificationStreamHandler handles GET /notifications/stream?token=...
func (h *StreamHandler) NotificationStreamHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	unregister := h.Hub.Register(actor.ID, conn)
	defer unregister()
	log.WithField("user_id", actor.ID.Hex()).Info("Notification stream opened")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Clients never send anything meaningful; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Notification stream closed unexpectedly")
			}
			break
		}
	}
	log.WithField("user_id", actor.ID.Hex()).Info("Notification stream closed")
}
