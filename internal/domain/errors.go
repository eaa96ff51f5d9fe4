package domain

import (
	"errors"
	"fmt"
)

// Umbrella errors. Anything wrapping one of these is dropped by the transport
// instead of being reported back to the client.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrStaleAction  = errors.New("stale action")
)

// Domain errors
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrRoomClosed          = errors.New("room is closed")
	ErrEmptyMessage        = errors.New("message cannot be empty")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrSeatTaken           = errors.New("player id belongs to another connection")

	ErrNotHost   = fmt.Errorf("%w: only the host can perform this action", ErrUnauthorized)
	ErrNotDrawer = fmt.Errorf("%w: only the drawer can perform this action", ErrUnauthorized)

	ErrInvalidPhase   = fmt.Errorf("%w: invalid action for current state", ErrStaleAction)
	ErrWordNotOffered = fmt.Errorf("%w: word was not offered", ErrStaleAction)
)

// IsSilent reports whether err comes from a misbehaving or stale client and
// should be dropped rather than reported.
func IsSilent(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrStaleAction)
}
