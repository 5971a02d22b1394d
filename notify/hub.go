package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type frame struct {
	Type   string         `json:"type"`
	Report *models.Report `json:"report,omitempty"`
}

// Hub keeps the websocket connections of open organization dashboards.
type Hub struct {
	Logger *logrus.Logger

	mu       sync.RWMutex
	clients  map[*websocket.Conn]*sync.Mutex
	upgrader websocket.Upgrader
}

// NewHub accepts upgrades from the given origins; an empty list accepts any origin.
func NewHub(allowedOrigins []string, logger *logrus.Logger) *Hub {
	h := &Hub{
		Logger:  logger,
		clients: map[*websocket.Conn]*sync.Mutex{},
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast pushes a report.created frame to every dashboard. The recipient list is
// unused; sockets are already restricted to organization users when they connect.
func (h *Hub) Broadcast(ctx context.Context, recipients []string, report *models.Report) error {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, wmu := range h.clients {
		conns[conn] = wmu
	}
	h.mu.RUnlock()

	msg := frame{Type: "report.created", Report: report}
	for conn, wmu := range conns {
		if err := h.write(conn, wmu, msg); err != nil {
			h.logWarn("dropping dashboard connection", err)
			h.remove(conn)
		}
	}
	return nil
}

// ServeWS upgrades the request and holds the connection until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logWarn("websocket upgrade failed", err)
		return
	}
	wmu := &sync.Mutex{}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := h.write(conn, wmu, frame{Type: "connected"}); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[conn] = wmu
	h.mu.Unlock()
	defer h.remove(conn)

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, wmu, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logWarn("websocket read failed", err)
			}
			return
		}
	}
}

func (h *Hub) ping(conn *websocket.Conn, wmu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// gorilla connections allow one concurrent writer.
func (h *Hub) write(conn *websocket.Conn, wmu *sync.Mutex, msg frame) error {
	wmu.Lock()
	defer wmu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Close disconnects every dashboard.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.clients
	h.clients = map[*websocket.Conn]*sync.Mutex{}
	h.mu.Unlock()
	for conn := range conns {
		conn.Close()
	}
}

func (h *Hub) logWarn(msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithFields(logrus.Fields{"field": "Hub"}).Warn(msg + ": " + err.Error())
}
