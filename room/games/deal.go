package games

import (
	"fmt"
	"math/rand/v2"
)

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

type randomPicker struct{}

func (randomPicker) Intn(n int) int { return rand.IntN(n) }

// RandomPicker returns a uniform Picker backed by math/rand/v2.
func RandomPicker() Picker {
	return randomPicker{}
}

// Deal selects one item from the pool for kind. Out of range picks are
// clamped into the pool so a misbehaving Picker cannot panic the caller.
func Deal(pack *Pack, kind Kind, picker Picker) (Content, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return Content{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}

	n := pack.Size(kind)
	if n == 0 {
		return Content{}, fmt.Errorf("%s: %w", kind, ErrEmptyPool)
	}

	i := picker.Intn(n)
	if i < 0 || i >= n {
		i = ((i % n) + n) % n
	}

	switch kind {
	case KindQuiz:
		q := pack.Quiz[i]
		correct := q.Correct
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		return Content{Kind: kind, Text: q.Text, Options: options, Correct: &correct}, nil
	case KindTruthDare:
		return Content{Kind: kind, Text: pack.TruthDare[i]}, nil
	default:
		return Content{Kind: kind, Text: pack.NeverHaveIEver[i]}, nil
	}
}
