package domain

// Phase represents the current state of a room
type Phase string

const (
	PhaseWaiting  Phase = "waiting"  // Lobby, host may change settings and start
	PhasePicking  Phase = "picking"  // Drawer is choosing one of the offered words
	PhaseDrawing  Phase = "drawing"  // Drawer draws, everyone else guesses
	PhaseRoundEnd Phase = "roundEnd" // Turn is over, word revealed
	PhaseGameOver Phase = "gameOver" // Final rankings, immediately followed by waiting
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsActive reports whether a game is in progress.
func (p Phase) IsActive() bool {
	return p == PhasePicking || p == PhaseDrawing || p == PhaseRoundEnd
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseWaiting:  {PhasePicking},
		PhasePicking:  {PhaseDrawing, PhaseRoundEnd, PhaseWaiting},
		PhaseDrawing:  {PhaseRoundEnd, PhaseWaiting},
		PhaseRoundEnd: {PhasePicking, PhaseGameOver, PhaseWaiting},
		PhaseGameOver: {PhaseWaiting},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
