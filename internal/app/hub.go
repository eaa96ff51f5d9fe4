package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"sketchguess/internal/domain"
	"sketchguess/internal/words"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 6

	// DefaultIdleRoomTimeout is how long a room may go without any operation
	DefaultIdleRoomTimeout = 2 * time.Hour

	// DefaultCleanupInterval is how often idle rooms are swept
	DefaultCleanupInterval = 10 * time.Minute

	// emptyRoomGrace keeps a just-created room alive until its host has joined
	emptyRoomGrace = time.Minute
)

// RoomCodeChars are the characters room codes are drawn from
const RoomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HubConfig configures the room registry
type HubConfig struct {
	RoomCodeLength  int
	Limits          domain.Limits
	Timing          Timing
	IdleRoomTimeout time.Duration
	CleanupInterval time.Duration
	EventQueueSize  int
}

// DefaultHubConfig returns the standard registry configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		RoomCodeLength:  DefaultRoomCodeLength,
		Limits:          domain.DefaultLimits(),
		Timing:          DefaultTiming(),
		IdleRoomTimeout: DefaultIdleRoomTimeout,
		CleanupInterval: DefaultCleanupInterval,
		EventQueueSize:  DefaultEventQueueSize,
	}
}

// RoomHub manages all live rooms
type RoomHub struct {
	sessions map[string]*RoomSession
	mu       deadlock.RWMutex
	cfg      HubConfig
	words    words.Provider
	clock    Clock
	logger   *zap.Logger
	done     chan struct{}
}

// NewRoomHub creates a new room registry and starts its idle sweep
func NewRoomHub(cfg HubConfig, provider words.Provider, logger *zap.Logger) *RoomHub {
	hub := newRoomHub(cfg, provider, RealClock(), logger)
	go hub.cleanupLoop()
	return hub
}

func newRoomHub(cfg HubConfig, provider words.Provider, clock Clock, logger *zap.Logger) *RoomHub {
	if cfg.RoomCodeLength <= 0 {
		cfg.RoomCodeLength = DefaultRoomCodeLength
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	return &RoomHub{
		sessions: make(map[string]*RoomSession),
		cfg:      cfg,
		words:    provider,
		clock:    clock,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// CreateRoom creates a room with client's player as host
func (h *RoomHub) CreateRoom(client ClientConnection, name string, avatar domain.Avatar) (*RoomSession, error) {
	h.mu.Lock()

	var roomCode string
	for attempts := 0; attempts < 10; attempts++ {
		roomCode = h.generateRoomCode()
		if _, exists := h.sessions[roomCode]; !exists {
			break
		}
	}

	if _, exists := h.sessions[roomCode]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("failed to generate unique room code")
	}

	session := NewRoomSession(roomCode, h.cfg.Limits, h.cfg.Timing, SessionDeps{
		Members:    NewMembers(h.logger.With(zap.String("roomCode", roomCode)), h.cfg.EventQueueSize),
		Words:      h.words,
		Clock:      h.clock,
		Rand:       mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64())),
		Logger:     h.logger,
		OnTeardown: h.DeleteSession,
	})
	h.sessions[roomCode] = session
	h.mu.Unlock()

	h.logger.Info("room created", zap.String("roomCode", roomCode), zap.String("hostId", client.GetPlayerID()))

	if err := session.guard("create", func() error {
		return session.join(client, name, avatar, domain.EventRoomCreated)
	}); err != nil {
		h.DeleteSession(roomCode)
		return nil, err
	}

	return session, nil
}

// JoinRoom adds client's player to an existing room
func (h *RoomHub) JoinRoom(roomCode string, client ClientConnection, name string, avatar domain.Avatar) (*RoomSession, error) {
	session, err := h.GetSession(roomCode)
	if err != nil {
		return nil, err
	}

	if err := session.Join(client, name, avatar); err != nil {
		if errors.Is(err, domain.ErrRoomClosed) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	return session, nil
}

// GetSession returns a room by code. Codes match case-insensitively.
func (h *RoomHub) GetSession(roomCode string) (*RoomSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[NormalizeRoomCode(roomCode)]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// DeleteSession removes a room and closes it
func (h *RoomHub) DeleteSession(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[roomCode]; ok {
		session.Close()
		delete(h.sessions, roomCode)
		h.logger.Info("room deleted", zap.String("roomCode", roomCode))
	}
}

// GetSessionCount returns the number of live rooms
func (h *RoomHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalPlayerCount returns the total number of players across all rooms
func (h *RoomHub) GetTotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetPlayerCount()
	}
	return total
}

// Close shuts down the hub and all rooms
func (h *RoomHub) Close() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*RoomSession)
}

// NormalizeRoomCode uppercases and trims a user supplied room code
func NormalizeRoomCode(roomCode string) string {
	return strings.ToUpper(strings.TrimSpace(roomCode))
}

// generateRoomCode generates a random room code
func (h *RoomHub) generateRoomCode() string {
	b := make([]byte, h.cfg.RoomCodeLength)
	rand.Read(b)

	code := make([]byte, h.cfg.RoomCodeLength)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}

	return string(code)
}

// cleanupLoop periodically removes idle rooms
func (h *RoomHub) cleanupLoop() {
	ticker := time.NewTicker(h.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupIdleRooms()
		}
	}
}

// cleanupIdleRooms removes rooms that are empty or have seen no operation
// within the idle timeout
func (h *RoomHub) cleanupIdleRooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	idle := make([]string, 0)

	for roomCode, session := range h.sessions {
		if session.GetPlayerCount() == 0 && now.Sub(session.GetCreatedAt()) > emptyRoomGrace {
			idle = append(idle, roomCode)
			continue
		}
		if h.cfg.IdleRoomTimeout > 0 && now.Sub(session.GetLastActivity()) > h.cfg.IdleRoomTimeout {
			idle = append(idle, roomCode)
		}
	}

	for _, roomCode := range idle {
		if session, ok := h.sessions[roomCode]; ok {
			session.Close()
			delete(h.sessions, roomCode)
			h.logger.Info("idle room cleaned up", zap.String("roomCode", roomCode))
		}
	}

	return len(idle)
}
