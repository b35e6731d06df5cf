package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/ws"
)

// WSHandler upgrades HTTP connections into game event subscriptions
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin checks belong to the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws. The client joins and leaves game channels with
// join_game and leave_game messages on the socket.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := ""
	if id, ok := currentUserID(c); ok {
		userID = id.Hex()
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	go client.Run()
}
