package games

import (
	"errors"
	"fmt"
	"time"
)

// QuizReward is the number of points awarded for each correct quiz answer.
const QuizReward = 10

var (
	ErrUnknownKind = errors.New("unknown game kind")
	ErrEmptyPool   = errors.New("empty content pool")
)

// Kind identifies a mini-game.
type Kind string

const (
	KindQuiz           Kind = "quiz"
	KindTruthDare      Kind = "truth_dare"
	KindNeverHaveIEver Kind = "never_have_i_ever"
)

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindQuiz, KindTruthDare, KindNeverHaveIEver}
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Question is a single multiple-choice quiz item.
type Question struct {
	Text    string   `json:"text" mapstructure:"text"`
	Options []string `json:"options" mapstructure:"options"`
	Correct int      `json:"correct" mapstructure:"correct"`
}

// Pack holds the content pools for every kind.
type Pack struct {
	Name           string     `json:"name,omitempty" mapstructure:"name"`
	Quiz           []Question `json:"quiz" mapstructure:"quiz"`
	TruthDare      []string   `json:"truth_dare" mapstructure:"truth_dare"`
	NeverHaveIEver []string   `json:"never_have_i_ever" mapstructure:"never_have_i_ever"`
}

// Size returns the number of items in the pool for kind.
func (p *Pack) Size(kind Kind) int {
	switch kind {
	case KindQuiz:
		return len(p.Quiz)
	case KindTruthDare:
		return len(p.TruthDare)
	case KindNeverHaveIEver:
		return len(p.NeverHaveIEver)
	}
	return 0
}

// Validate reports every problem found in the pack.
func (p *Pack) Validate() []error {
	var errs []error
	for _, k := range Kinds() {
		if p.Size(k) == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", k, ErrEmptyPool))
		}
	}
	for i, q := range p.Quiz {
		if q.Text == "" {
			errs = append(errs, fmt.Errorf("quiz[%d]: missing text", i))
		}
		if len(q.Options) < 2 {
			errs = append(errs, fmt.Errorf("quiz[%d]: needs at least 2 options, got %d", i, len(q.Options)))
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			errs = append(errs, fmt.Errorf("quiz[%d]: correct index %d out of range", i, q.Correct))
		}
	}
	for i, s := range p.TruthDare {
		if s == "" {
			errs = append(errs, fmt.Errorf("truth_dare[%d]: empty prompt", i))
		}
	}
	for i, s := range p.NeverHaveIEver {
		if s == "" {
			errs = append(errs, fmt.Errorf("never_have_i_ever[%d]: empty prompt", i))
		}
	}
	return errs
}

// Content is the round payload broadcast to a room as game_started.
// Correct is only set for quiz rounds.
type Content struct {
	Kind    Kind     `json:"type"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Correct *int     `json:"correct,omitempty"`
}

// Session is the single game slot of a local.
type Session struct {
	LocalID      string    `json:"localId"`
	Kind         Kind      `json:"kind"`
	Active       bool      `json:"active"`
	CorrectIndex int       `json:"-"`
	StartedAt    time.Time `json:"startedAt"`
}
