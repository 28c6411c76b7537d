package handler

import (
	"aquacare/internal/pkg/identity"
	"aquacare/internal/realtime"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsPongWait = 60 * time.Second

type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, l *slog.Logger) *WebSocketHandler {
	if hub == nil {
		panic("realtime hub cannot be nil")
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: l.With("component", "WebSocketHandler"),
	}
}

// Subscribe handles GET /ws
// @Summary Subscribe to customer changes
// @Description Upgrades to a websocket that receives snapshot.changed events for the caller's customers.
// @Tags Realtime
// @Success 101 "Switching protocols"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /ws [get]
// @Security BearerAuth
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	owner := identity.OwnerFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}

	unregister := h.hub.Register(owner, conn)
	defer unregister()
	h.logger.InfoContext(r.Context(), "Websocket subscribed", "owner", owner)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Inbound frames are ignored; reading keeps control frames flowing and
	// detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WarnContext(r.Context(), "Websocket closed unexpectedly", "owner", owner, "error", err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
	h.logger.InfoContext(r.Context(), "Websocket unsubscribed", "owner", owner)
}
