package domain

const (
	MinRounds       = 2
	MaxRounds       = 10
	DefaultRounds   = 3
	MinDrawTime     = 30
	MaxDrawTime     = 180
	DefaultDrawTime = 80
)

// Settings holds the host-adjustable parameters of a room
type Settings struct {
	Rounds   int `json:"rounds"`
	DrawTime int `json:"drawTime"` // seconds
}

// DefaultSettings returns the settings of a freshly created room
func DefaultSettings() Settings {
	return Settings{Rounds: DefaultRounds, DrawTime: DefaultDrawTime}
}

// NewSettings builds clamped settings. Zero values fall back to the defaults.
func NewSettings(rounds, drawTime int) Settings {
	if rounds == 0 {
		rounds = DefaultRounds
	}
	if drawTime == 0 {
		drawTime = DefaultDrawTime
	}

	return Settings{
		Rounds:   clamp(rounds, MinRounds, MaxRounds),
		DrawTime: clamp(drawTime, MinDrawTime, MaxDrawTime),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
