package games

import (
	"sync"
	"time"
)

// Table maps a local id to its current game round.
type Table struct {
	games map[string]Session
	now   func() time.Time
	mu    sync.RWMutex
}

// NewTable creates an empty game table
func NewTable() *Table {
	return &Table{
		games: make(map[string]Session),
		now:   time.Now,
	}
}

// Start overwrites the round for localID with content.
func (t *Table) Start(localID string, content Content) Session {
	s := Session{
		LocalID:   localID,
		Kind:      content.Kind,
		Active:    true,
		StartedAt: t.now(),
	}
	if content.Kind == KindQuiz && content.Correct != nil {
		s.CorrectIndex = *content.Correct
	}

	t.mu.Lock()
	t.games[localID] = s
	t.mu.Unlock()

	return s
}

// Get returns the round for localID, if any.
func (t *Table) Get(localID string) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.games[localID]
	return s, ok
}

// CheckAnswer compares answer against the stored correct index. active is
// false when localID has no active quiz round, in which case correct is
// always false.
func (t *Table) CheckAnswer(localID string, answer int) (correct, active bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.games[localID]
	if !ok || !s.Active || s.Kind != KindQuiz {
		return false, false
	}
	return answer == s.CorrectIndex, true
}

// Count returns the number of locals with a game slot.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.games)
}
