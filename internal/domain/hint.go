package domain

import (
	"math"
	"strings"
	"time"
)

const (
	// MinHintInterval is the shortest delay between two letter reveals
	MinHintInterval = 10 * time.Second

	hintLetterShare = 0.6
)

// FormatHint masks a word for guessers. Hidden letters become underscores,
// spaces become a double space, and the tokens are joined by single spaces.
func FormatHint(word string, revealed map[int]struct{}) string {
	runes := []rune(word)
	tokens := make([]string, len(runes))

	for i, r := range runes {
		switch {
		case r == ' ':
			tokens[i] = "  "
		case isRevealed(revealed, i):
			tokens[i] = string(r)
		default:
			tokens[i] = "_"
		}
	}

	return strings.Join(tokens, " ")
}

// HintInterval returns how often a letter is revealed for a word of the given length
func HintInterval(drawTime int, word string) time.Duration {
	letters := len([]rune(word))
	reveals := int(math.Ceil(float64(letters) * hintLetterShare))
	if reveals < 1 {
		return MinHintInterval
	}

	interval := time.Duration(drawTime/reveals) * time.Second
	return max(MinHintInterval, interval)
}

// UnrevealedPositions lists the hidden, non-space positions of word
func UnrevealedPositions(word string, revealed map[int]struct{}) []int {
	positions := make([]int, 0, len(word))
	for i, r := range []rune(word) {
		if r != ' ' && !isRevealed(revealed, i) {
			positions = append(positions, i)
		}
	}
	return positions
}

func isRevealed(revealed map[int]struct{}, i int) bool {
	_, ok := revealed[i]
	return ok
}
