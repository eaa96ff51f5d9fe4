package domain

import (
	"crypto/subtle"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultPlayerName is used when a player joins without a name
	DefaultPlayerName = "Player"

	// MaxNameLength is the longest display name kept, in runes
	MaxNameLength = 20
)

// Avatar describes how a player is drawn in the roster
type Avatar struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// DefaultAvatar returns the avatar assigned when a client sends none
func DefaultAvatar() Avatar {
	return Avatar{Emoji: "😀", Color: "#6C5CE7"}
}

// Player represents a player in a room
type Player struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Avatar           Avatar    `json:"avatar"`
	Score            int       `json:"score"`
	IsHost           bool      `json:"isHost"`
	GuessedCorrectly bool      `json:"guessedCorrectly"`
	IsDrawing        bool      `json:"isDrawing"`
	JoinedAt         time.Time `json:"-"`

	// ResumeToken is only ever sent to this player's own connection. A
	// rejoin under the same ID must present it.
	ResumeToken string `json:"-"`
}

// NewPlayer creates a new player, normalising the name and avatar
func NewPlayer(id, name string, avatar Avatar) *Player {
	if avatar.Emoji == "" && avatar.Color == "" {
		avatar = DefaultAvatar()
	}

	return &Player{
		ID:       id,
		Name:     NormalizeName(name),
		Avatar:   avatar,
		JoinedAt: time.Now(),
	}
}

// NormalizeName trims a display name, caps its length and falls back to the default
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultPlayerName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

// CanResume reports whether token proves ownership of the player's seat
func (p *Player) CanResume(token string) bool {
	if p.ResumeToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.ResumeToken), []byte(token)) == 1
}

// ResetForTurn clears the per-turn flags
func (p *Player) ResetForTurn() {
	p.GuessedCorrectly = false
	p.IsDrawing = false
}

// ResetForGame clears the score and the per-turn flags
func (p *Player) ResetForGame() {
	p.Score = 0
	p.ResetForTurn()
}

// PlayerInfo is a value copy of a player that is safe to hand to the event queue
type PlayerInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Avatar           Avatar `json:"avatar"`
	Score            int    `json:"score"`
	IsHost           bool   `json:"isHost"`
	GuessedCorrectly bool   `json:"guessedCorrectly"`
	IsDrawing        bool   `json:"isDrawing"`
}

// ToInfo converts a Player to PlayerInfo
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:               p.ID,
		Name:             p.Name,
		Avatar:           p.Avatar,
		Score:            p.Score,
		IsHost:           p.IsHost,
		GuessedCorrectly: p.GuessedCorrectly,
		IsDrawing:        p.IsDrawing,
	}
}
