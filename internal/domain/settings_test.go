package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSettings(t *testing.T) {
	tests := []struct {
		name     string
		rounds   int
		drawTime int
		want     Settings
	}{
		{name: "in range", rounds: 5, drawTime: 120, want: Settings{Rounds: 5, DrawTime: 120}},
		{name: "clamped low", rounds: 1, drawTime: 10, want: Settings{Rounds: 2, DrawTime: 30}},
		{name: "clamped high", rounds: 15, drawTime: 500, want: Settings{Rounds: 10, DrawTime: 180}},
		{name: "negative clamps", rounds: -3, drawTime: -1, want: Settings{Rounds: 2, DrawTime: 30}},
		{name: "zero falls back to defaults", rounds: 0, drawTime: 0, want: DefaultSettings()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSettings(tt.rounds, tt.drawTime))
		})
	}
}

func TestPhaseTransitions(t *testing.T) {
	assert.True(t, PhaseWaiting.CanTransitionTo(PhasePicking))
	assert.False(t, PhaseWaiting.CanTransitionTo(PhaseDrawing))
	assert.True(t, PhasePicking.CanTransitionTo(PhaseDrawing))
	assert.True(t, PhaseDrawing.CanTransitionTo(PhaseRoundEnd))
	assert.False(t, PhaseDrawing.CanTransitionTo(PhasePicking))
	assert.True(t, PhaseRoundEnd.CanTransitionTo(PhaseGameOver))
	assert.True(t, PhaseGameOver.CanTransitionTo(PhaseWaiting))

	assert.True(t, PhaseDrawing.IsActive())
	assert.False(t, PhaseWaiting.IsActive())
	assert.False(t, PhaseGameOver.IsActive())
}

func TestIsSilent(t *testing.T) {
	assert.True(t, IsSilent(ErrNotHost))
	assert.True(t, IsSilent(ErrNotDrawer))
	assert.True(t, IsSilent(ErrInvalidPhase))
	assert.True(t, IsSilent(ErrWordNotOffered))
	assert.False(t, IsSilent(ErrRoomFull))
	assert.False(t, IsSilent(ErrInsufficientPlayers))
}
