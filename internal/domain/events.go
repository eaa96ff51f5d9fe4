package domain

import "time"

// EventType represents the type of an outbound room event
type EventType string

const (
	EventRoomCreated     EventType = "roomCreated"
	EventRoomJoined      EventType = "roomJoined"
	EventPlayerJoined    EventType = "playerJoined"
	EventPlayerLeft      EventType = "playerLeft"
	EventSettingsUpdated EventType = "settingsUpdated"
	EventBecameHost      EventType = "becameHost"
	EventWordChoices     EventType = "wordChoices"
	EventCurrentWord     EventType = "currentWord"
	EventGameState       EventType = "gameState"
	EventTimer           EventType = "timer"
	EventHint            EventType = "hint"
	EventCorrectGuess    EventType = "correctGuess"
	EventTurnEnd         EventType = "turnEnd"
	EventGameOver        EventType = "gameOver"
	EventChatMessage     EventType = "chatMessage"
	EventDraw            EventType = "draw"
	EventClearCanvas     EventType = "clearCanvas"
	EventUndoStroke      EventType = "undoStroke"
	EventFill            EventType = "fill"
)

// GameEvent represents an event that occurred in a room
type GameEvent struct {
	Type      EventType   `json:"type"`
	RoomCode  string      `json:"roomCode"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new room event
func NewEvent(eventType EventType, roomCode string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		RoomCode:  roomCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// RoomPayload confirms a create or join and carries the full snapshot
type RoomPayload struct {
	Code     string            `json:"code"`
	PlayerID string            `json:"playerId"`
	IsHost   bool              `json:"isHost"`
	Players  []PlayerInfo      `json:"players"`
	Settings Settings          `json:"settings"`
	Game     *GameStatePayload `json:"game,omitempty"`
	Word     string            `json:"word,omitempty"` // Only for the drawer

	// ResumeToken lets this connection's owner reclaim the seat after a drop
	ResumeToken string `json:"resumeToken,omitempty"`
}

// PlayerJoinedPayload is sent to the room when a player joins
type PlayerJoinedPayload struct {
	Player  PlayerInfo   `json:"player"`
	Players []PlayerInfo `json:"players"`
}

// PlayerLeftPayload is sent to the room when a player leaves
type PlayerLeftPayload struct {
	PlayerID   string       `json:"playerId"`
	PlayerName string       `json:"playerName"`
	HostID     string       `json:"hostId"`
	Players    []PlayerInfo `json:"players"`
}

// WordChoicesPayload is sent privately to the drawer
type WordChoicesPayload struct {
	Words []string `json:"words"`
}

// CurrentWordPayload is sent privately to the drawer
type CurrentWordPayload struct {
	Word string `json:"word"`
}

// GameStatePayload is the state snapshot everyone receives. It never carries the word.
type GameStatePayload struct {
	State       Phase        `json:"state"`
	DrawerID    string       `json:"drawerId,omitempty"`
	DrawerName  string       `json:"drawerName,omitempty"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"totalRounds"`
	Players     []PlayerInfo `json:"players"`
	Hint        string       `json:"hint,omitempty"`
	TimeLeft    int          `json:"timeLeft,omitempty"`
}

// TimerPayload is sent every tick while drawing
type TimerPayload struct {
	TimeLeft int `json:"timeLeft"`
}

// HintPayload is sent when a letter is revealed
type HintPayload struct {
	Hint string `json:"hint"`
}

// CorrectGuessPayload announces a solver and the points awarded
type CorrectGuessPayload struct {
	PlayerID   string       `json:"playerId"`
	PlayerName string       `json:"playerName"`
	Points     int          `json:"points"`
	Players    []PlayerInfo `json:"players"`
}

// TurnEndPayload reveals the word at the end of a turn
type TurnEndPayload struct {
	Word    string       `json:"word"`
	Players []PlayerInfo `json:"players"`
}

// Ranking is one line of the final leaderboard
type Ranking struct {
	PlayerInfo
	Rank int `json:"rank"`
}

// GameOverPayload carries the final rankings
type GameOverPayload struct {
	Rankings []Ranking `json:"rankings"`
}

// ChatKind distinguishes chat lines
type ChatKind string

const (
	ChatMessage ChatKind = "message" // Regular chat or wrong guess
	ChatClose   ChatKind = "close"   // Private close-guess feedback
	ChatGuessed ChatKind = "guessed" // Chat between players who solved the word
	ChatSystem  ChatKind = "system"  // Server notice
)

// ChatMessagePayload is a chat line
type ChatMessagePayload struct {
	Type       ChatKind `json:"type"`
	PlayerID   string   `json:"playerId,omitempty"`
	PlayerName string   `json:"playerName,omitempty"`
	Message    string   `json:"message"`
}
