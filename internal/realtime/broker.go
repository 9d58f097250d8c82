package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Message defines the shape of our real-time data.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Broker is the central hub for managing SSE client connections.
type Broker struct {
	// A map of client channels, keyed by user ID.
	clients map[string]chan []byte
	mu      sync.RWMutex
}

// NewBroker creates a new Broker instance.
func NewBroker() *Broker {
	return &Broker{
		clients: make(map[string]chan []byte),
	}
}

// AddClient registers a new client (a rider's connection) with the broker.
// A second connection for the same rider (another tab) simply replaces the
// previous channel; the old connection times out or closes on its own.
func (b *Broker) AddClient(userID string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []byte, 10) // Buffered channel
	b.clients[userID] = ch
	log.Printf("SSE client connected for user %s", userID)
	return ch
}

// RemoveClient unregisters a client from the broker.
func (b *Broker) RemoveClient(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[userID]; ok {
		delete(b.clients, userID)
		close(ch)
		log.Printf("SSE client disconnected for user %s", userID)
	}
}

// NotifyUser sends a message to a specific rider if they are connected.
func (b *Broker) NotifyUser(userID string, message Message) {
	b.mu.RLock()
	clientChan, ok := b.clients[userID]
	b.mu.RUnlock()

	if !ok {
		return
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR: could not marshal SSE message for user %s: %v", userID, err)
		return
	}

	// Non-blocking send so an API handler never gets stuck on a client
	// whose channel buffer is full.
	select {
	case clientChan <- jsonMsg:
	default:
		log.Printf("WARN: SSE channel for user %s is full. Dropping message.", userID)
	}
}

// NotifyUsers fans a message out to each of the given riders. Used to tell
// teammates when a member logs a ride.
func (b *Broker) NotifyUsers(userIDs []string, message Message) {
	for _, userID := range userIDs {
		b.NotifyUser(userID, message)
	}
}
