package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

const sendBufferSize = 64

// clientMessage is the inbound frame shape: clients only join and leave
// game channels; all game actions go through the HTTP API.
type clientMessage struct {
	Action string `json:"action"`
	GameID string `json:"gameId"`
}

// Client is one websocket subscriber
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	mu    sync.Mutex
	games map[string]bool
	once  sync.Once
}

// NewClient wraps an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		games:  make(map[string]bool),
	}
}

// Run services the connection until it closes. It starts the write pump and
// blocks on the read pump.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// Close tears the connection down and leaves every joined channel
func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		for gameID := range c.games {
			c.hub.Unsubscribe(gameID, c.send)
		}
		c.games = nil
		c.mu.Unlock()

		close(c.send)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.Close()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Websocket read error", "userId", c.userID, "error", err)
			}
			return
		}

		var m clientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			slog.Debug("Invalid websocket message", "userId", c.userID, "error", err)
			continue
		}

		switch m.Action {
		case "join_game":
			if m.GameID == "" {
				continue
			}
			c.mu.Lock()
			if c.games != nil && !c.games[m.GameID] {
				c.games[m.GameID] = true
				c.hub.Subscribe(m.GameID, c.send)
			}
			c.mu.Unlock()
		case "leave_game":
			c.mu.Lock()
			if c.games != nil && c.games[m.GameID] {
				delete(c.games, m.GameID)
				c.hub.Unsubscribe(m.GameID, c.send)
			}
			c.mu.Unlock()
		default:
			slog.Debug("Unknown websocket action", "userId", c.userID, "action", m.Action)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
