package ws

import (
	"encoding/json"
	"time"

	"sketchguess/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgCreateRoom     MessageType = "createRoom"
	MsgJoinRoom       MessageType = "joinRoom"
	MsgUpdateSettings MessageType = "updateSettings"
	MsgStartGame      MessageType = "startGame"
	MsgSelectWord     MessageType = "selectWord"
	MsgDraw           MessageType = "draw"
	MsgClearCanvas    MessageType = "clearCanvas"
	MsgUndoStroke     MessageType = "undoStroke"
	MsgFill           MessageType = "fill"
	MsgChat           MessageType = "chat"
	MsgPing           MessageType = "ping"
)

// Server → Client message types not carried by room events
const (
	MsgError MessageType = "error"
	MsgPong  MessageType = "pong"
)

// relayed maps drawing messages to the room event they are relayed as
var relayed = map[MessageType]domain.EventType{
	MsgDraw:        domain.EventDraw,
	MsgClearCanvas: domain.EventClearCanvas,
	MsgUndoStroke:  domain.EventUndoStroke,
	MsgFill:        domain.EventFill,
}

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// CreateRoomPayload is the payload for createRoom
type CreateRoomPayload struct {
	Name   string        `json:"name"`
	Avatar domain.Avatar `json:"avatar"`
}

// JoinRoomPayload is the payload for joinRoom
type JoinRoomPayload struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	Avatar domain.Avatar `json:"avatar"`
}

// UpdateSettingsPayload is the payload for updateSettings
type UpdateSettingsPayload struct {
	Rounds   int `json:"rounds"`
	DrawTime int `json:"drawTime"`
}

// SelectWordPayload is the payload for selectWord
type SelectWordPayload struct {
	Word string `json:"word"`
}

// ChatPayload is the payload for chat
type ChatPayload struct {
	Message string `json:"message"`
}

// Server message payloads

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage      = "INVALID_MESSAGE"
	ErrCodeRoomNotFound        = "ROOM_NOT_FOUND"
	ErrCodeRoomFull            = "ROOM_FULL"
	ErrCodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)
