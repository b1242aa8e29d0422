package events

// Publisher defines the interface for pushing change events to clients
type Publisher interface {
	// Publish sends an event to all clients connected for the given user
	Publish(userID string, event Event)
}

// Ensure Hub implements Publisher
var _ Publisher = (*Hub)(nil)

// Publish implements Publisher by broadcasting the event to the user's clients
func (h *Hub) Publish(userID string, event Event) {
	h.Broadcast(userID, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(userID string, event Event) {}
