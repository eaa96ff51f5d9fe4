// Package words supplies candidate words for a drawing turn.
package words

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Tier is a difficulty tier of the vocabulary
type Tier int

const (
	TierEasy Tier = iota
	TierMedium
	TierHard

	tierCount = 3
)

// Vocabulary holds the words of every tier
type Vocabulary struct {
	Easy   []string `yaml:"easy"`
	Medium []string `yaml:"medium"`
	Hard   []string `yaml:"hard"`
}

// Tiers returns the word lists ordered from easy to hard
func (v *Vocabulary) Tiers() [tierCount][]string {
	return [tierCount][]string{v.Easy, v.Medium, v.Hard}
}

// Size returns the number of distinct words
func (v *Vocabulary) Size() int {
	return len(v.Easy) + len(v.Medium) + len(v.Hard)
}

// Default returns the embedded vocabulary
func Default() *Vocabulary {
	v, err := Parse(defaultVocabulary)
	if err != nil {
		panic(fmt.Errorf("embedded vocabulary: %w", err))
	}
	return v
}

// Load reads a vocabulary file. An empty path selects the embedded vocabulary.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Parse decodes a YAML vocabulary. Words are lowercased and deduplicated
// across tiers, the first tier listing a word keeps it.
func Parse(data []byte) (*Vocabulary, error) {
	var raw Vocabulary
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	clean := func(words []string) []string {
		out := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
		return out
	}

	v := &Vocabulary{
		Easy:   clean(raw.Easy),
		Medium: clean(raw.Medium),
		Hard:   clean(raw.Hard),
	}

	if v.Size() == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	return v, nil
}

// Provider returns candidate words for a turn
type Provider interface {
	Choose(rng *rand.Rand, count int, exclude map[string]struct{}) []string
}

// TieredProvider draws one word from each difficulty tier in turn and falls
// back to the pooled vocabulary when a tier is exhausted.
type TieredProvider struct {
	vocab *Vocabulary
}

// NewTieredProvider creates a provider over the given vocabulary
func NewTieredProvider(vocab *Vocabulary) *TieredProvider {
	return &TieredProvider{vocab: vocab}
}

// Choose returns up to count distinct words not in exclude. It returns fewer
// only when the whole vocabulary is exhausted. The result depends only on
// the arguments and the state of rng.
func (p *TieredProvider) Choose(rng *rand.Rand, count int, exclude map[string]struct{}) []string {
	tiers := p.vocab.Tiers()

	var pools [tierCount][]string
	for i, words := range tiers {
		pools[i] = without(words, exclude)
	}

	selected := make([]string, 0, count)
	picked := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		tier := i
		if i >= tierCount {
			tier = rng.IntN(tierCount)
		}

		pool := without(pools[tier], picked)
		if len(pool) == 0 {
			pool = without(concat(pools), picked)
		}

		if len(pool) == 0 {
			break
		}

		word := pool[rng.IntN(len(pool))]
		selected = append(selected, word)
		picked[word] = struct{}{}
	}

	return selected
}

func without(words []string, exclude map[string]struct{}) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, skip := exclude[w]; !skip {
			out = append(out, w)
		}
	}
	return out
}

func concat(pools [tierCount][]string) []string {
	var all []string
	for _, pool := range pools {
		all = append(all, pool...)
	}
	return all
}
