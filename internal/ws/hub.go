// Package ws implements the per-game realtime broadcast channel.
//
// Delivery is best-effort with no replay: a client that subscribes after an
// event was published must fetch the current game state through the HTTP
// snapshot endpoint. Slow subscribers have messages dropped rather than
// stalling the game loops.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Event names published on game channels. The server is the sole writer of
// number_called and pattern_won.
const (
	EventGameStarted   = "game_started"
	EventNumberCalled  = "number_called"
	EventPatternWon    = "pattern_won"
	EventGameCompleted = "game_completed"
	EventGamePaused    = "game_paused"
	EventGameResumed   = "game_resumed"
)

// Event is the wire envelope for every broadcast message
type Event struct {
	Event     string      `json:"event"`
	GameID    string      `json:"gameId"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans events out to the subscribers of each game channel
type Hub struct {
	rooms map[string]map[chan<- []byte]struct{}
	mu    sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[chan<- []byte]struct{}),
	}
}

// Subscribe adds ch to the game's channel
func (h *Hub) Subscribe(gameID string, ch chan<- []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[chan<- []byte]struct{})
		h.rooms[gameID] = room
	}
	room[ch] = struct{}{}
}

// Unsubscribe removes ch from the game's channel. After Unsubscribe returns
// no Publish will write to ch, so the caller may close it.
func (h *Hub) Unsubscribe(gameID string, ch chan<- []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[gameID]; ok {
		delete(room, ch)
		if len(room) == 0 {
			delete(h.rooms, gameID)
		}
	}
}

// SubscriberCount returns the number of subscribers on a game channel
func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Publish delivers an event to every current subscriber of the game
// channel. Subscribers with a full buffer miss the message.
func (h *Hub) Publish(gameID, event string, payload interface{}) {
	msg, err := json.Marshal(Event{
		Event:     event,
		GameID:    gameID,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "event", event, "gameId", gameID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.rooms[gameID] {
		select {
		case ch <- msg:
		default:
			// Best-effort: drop for slow subscribers.
		}
	}
}
