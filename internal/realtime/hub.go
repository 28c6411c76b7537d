// Package realtime pushes snapshot changes to connected websocket clients.
package realtime

import (
	"aquacare/internal/domain/customer"
	"log/slog"
	"sync"
	"time"
)

// EventSnapshotChanged tells a client to re-read its customer list.
const EventSnapshotChanged = "snapshot.changed"

const writeTimeout = 5 * time.Second

// Conn is the part of *websocket.Conn the hub writes through.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// wsConn wraps a websocket connection with a write mutex to serialize writes.
type wsConn struct {
	conn Conn
	mu   sync.Mutex
}

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks websocket connections per owner. One owner may hold several.
type Hub struct {
	mu      sync.RWMutex
	byOwner map[string]map[*wsConn]struct{}
	logger  *slog.Logger
}

var _ customer.ChangeNotifier = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		byOwner: make(map[string]map[*wsConn]struct{}),
		logger:  logger.With("component", "realtimeHub"),
	}
}

// Register adds conn for owner and returns the func that removes it.
func (h *Hub) Register(owner string, conn Conn) (unregister func()) {
	wc := &wsConn{conn: conn}

	h.mu.Lock()
	conns, ok := h.byOwner[owner]
	if !ok {
		conns = make(map[*wsConn]struct{})
		h.byOwner[owner] = conns
	}
	conns[wc] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("Websocket client registered", slog.String("owner", owner))

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(owner, wc) })
	}
}

func (h *Hub) remove(owner string, wc *wsConn) {
	h.mu.Lock()
	if conns, ok := h.byOwner[owner]; ok {
		delete(conns, wc)
		if len(conns) == 0 {
			delete(h.byOwner, owner)
		}
	}
	h.mu.Unlock()

	wc.conn.Close()
	h.logger.Info("Websocket client unregistered", slog.String("owner", owner))
}

// Connections reports how many clients owner has open.
func (h *Hub) Connections(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byOwner[owner])
}

// Notify sends a typed event to every connection of owner. Connections that
// fail a write are dropped.
func (h *Hub) Notify(owner, event string, payload any) {
	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.byOwner[owner]))
	for wc := range h.byOwner[owner] {
		targets = append(targets, wc)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.logger.Debug("No websocket clients for owner; drop event", slog.String("owner", owner), slog.String("event", event))
		return
	}

	msg := Message{Event: event, Data: payload}
	for _, wc := range targets {
		wc.mu.Lock()
		_ = wc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := wc.conn.WriteJSON(msg)
		wc.mu.Unlock()
		if err != nil {
			h.logger.Warn("Websocket write failed, dropping client",
				slog.String("owner", owner), slog.String("event", event), slog.Any("error", err))
			h.remove(owner, wc)
		}
	}
}

func (h *Hub) NotifySnapshotChanged(owner string, change customer.Change) {
	h.Notify(owner, EventSnapshotChanged, change)
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.byOwner
	h.byOwner = make(map[string]map[*wsConn]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for wc := range conns {
			wc.conn.Close()
		}
	}
}
