package services

// Broadcaster publishes realtime events on a game's channel. The websocket
// hub satisfies this; tests substitute a recorder.
type Broadcaster interface {
	Publish(gameID, event string, payload interface{})
}

// NopBroadcaster discards every event. Useful for offline tooling that runs
// the services without a realtime layer.
type NopBroadcaster struct{}

// Publish implements Broadcaster.
func (NopBroadcaster) Publish(gameID, event string, payload interface{}) {}
