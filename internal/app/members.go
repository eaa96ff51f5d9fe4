package app

import (
	"sync"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"sketchguess/internal/domain"
)

// DefaultEventQueueSize is the buffer of pending outbound events per room
const DefaultEventQueueSize = 256

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetPlayerID() string
	// GetResumeToken returns the secret that proves the connection owns its player ID
	GetResumeToken() string
	Close() error
}

// Gateway delivers room events to the members of a room
type Gateway interface {
	SendAll(event *domain.GameEvent)
	SendTo(playerID string, event *domain.GameEvent)
	SendAllExcept(playerID string, event *domain.GameEvent)
}

// Membership is a Gateway that also tracks which connection speaks for which player
type Membership interface {
	Gateway
	// Register binds a connection to a player and returns the connection it replaced, if any
	Register(playerID string, client ClientConnection) ClientConnection
	// Unregister unbinds the player only while client is still the bound connection.
	// A nil client unbinds unconditionally.
	Unregister(playerID string, client ClientConnection) bool
	Close()
}

type delivery struct {
	event  *domain.GameEvent
	to     string
	except string
}

// Members fans room events out to client connections. Events are queued in
// order and delivered by a single goroutine so a slow socket never blocks
// the room.
type Members struct {
	clients map[string]ClientConnection
	mu      deadlock.RWMutex
	logger  *zap.Logger

	queue     chan delivery
	done      chan struct{}
	closeOnce sync.Once
}

// NewMembers creates a Members and starts its delivery loop
func NewMembers(logger *zap.Logger, queueSize int) *Members {
	if queueSize <= 0 {
		queueSize = DefaultEventQueueSize
	}

	m := &Members{
		clients: make(map[string]ClientConnection),
		logger:  logger,
		queue:   make(chan delivery, queueSize),
		done:    make(chan struct{}),
	}

	go m.eventLoop()

	return m
}

// Register binds a client connection to a player
func (m *Members) Register(playerID string, client ClientConnection) ClientConnection {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.clients[playerID]
	m.clients[playerID] = client
	if previous == client {
		return nil
	}
	return previous
}

// Unregister removes a player's connection
func (m *Members) Unregister(playerID string, client ClientConnection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.clients[playerID]
	if !ok {
		return false
	}
	if client != nil && current != client {
		return false
	}

	delete(m.clients, playerID)
	return true
}

// Count returns the number of bound connections
func (m *Members) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// SendAll queues an event for every member
func (m *Members) SendAll(event *domain.GameEvent) {
	m.enqueue(delivery{event: event})
}

// SendTo queues an event for one member
func (m *Members) SendTo(playerID string, event *domain.GameEvent) {
	if playerID == "" {
		return
	}
	m.enqueue(delivery{event: event, to: playerID})
}

// SendAllExcept queues an event for every member but one
func (m *Members) SendAllExcept(playerID string, event *domain.GameEvent) {
	m.enqueue(delivery{event: event, except: playerID})
}

func (m *Members) enqueue(d delivery) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.queue <- d:
	default:
		m.logger.Warn("event queue full, dropping event", zap.String("type", string(d.event.Type)))
	}
}

// eventLoop delivers queued events until the room closes
func (m *Members) eventLoop() {
	for {
		select {
		case <-m.done:
			return
		case d := <-m.queue:
			m.deliver(d)
		}
	}
}

func (m *Members) deliver(d delivery) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if d.to != "" {
		if client, ok := m.clients[d.to]; ok {
			m.send(d.to, client, d.event)
		}
		return
	}

	for playerID, client := range m.clients {
		if playerID == d.except {
			continue
		}
		m.send(playerID, client, d.event)
	}
}

func (m *Members) send(playerID string, client ClientConnection, event *domain.GameEvent) {
	if err := client.Send(event); err != nil {
		m.logger.Debug("failed to send to client",
			zap.String("playerId", playerID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

// Close stops delivery and closes every bound connection
func (m *Members) Close() {
	m.closeOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		defer m.mu.Unlock()

		for _, client := range m.clients {
			client.Close()
		}
		m.clients = make(map[string]ClientConnection)
	})
}
