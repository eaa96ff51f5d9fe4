package domain

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Point bands of the scoring model
const (
	MinGuesserPoints  = 50
	GuesserTimePoints = 450
	DrawerBasePoints  = 50
	DrawerTimePoints  = 50
	CloseGuessMaxEdit = 2
)

// TimeRatio is the fraction of the draw time still left, clamped to [0,1]
func TimeRatio(timeLeft, drawTime int) float64 {
	if drawTime <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, float64(timeLeft)/float64(drawTime)))
}

// GuesserScore returns the points for a correct guess. order is 1 for the
// first correct guesser of the turn, nonDrawers the number of players who
// are not drawing.
func GuesserScore(timeLeft, drawTime, order, nonDrawers int) int {
	base := roundHalfUp(MinGuesserPoints + TimeRatio(timeLeft, drawTime)*GuesserTimePoints)
	step := roundHalfUp(float64(GuesserTimePoints) / float64(nonDrawers+1))
	penalty := max(0, (order-1)*step)

	return max(MinGuesserPoints, base-penalty)
}

// DrawerBonus returns the points the drawer earns for one correct guesser
func DrawerBonus(timeLeft, drawTime int) int {
	return roundHalfUp(DrawerBasePoints + TimeRatio(timeLeft, drawTime)*DrawerTimePoints)
}

// IsCloseGuess reports whether a wrong guess is within a small edit distance
// of the word. Both sides are compared lowercased.
func IsCloseGuess(guess, word string) bool {
	guess = strings.ToLower(guess)
	word = strings.ToLower(word)

	distance := levenshtein.ComputeDistance(guess, word)
	if distance == 0 || distance > CloseGuessMaxEdit {
		return false
	}

	return utf8.RuneCountInString(guess) >= utf8.RuneCountInString(word)-CloseGuessMaxEdit
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
