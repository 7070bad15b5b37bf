// Package memory keeps the bounded conversation history: the N most recent
// question/answer turns, oldest evicted first.
package memory

import (
	"context"
	"sync"
	"time"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// Store holds the shared conversation memory. History returns turns
// most-recent-last. Clear empties the memory and never touches the index.
type Store interface {
	Add(ctx context.Context, turn Turn) error
	History(ctx context.Context) ([]Turn, error)
	Clear(ctx context.Context) error
}

// Ring is the default in-process store. It does not survive restarts; the
// Redis-backed store does.
type Ring struct {
	mu       sync.Mutex
	maxTurns int
	turns    []Turn
}

func NewRing(maxTurns int) *Ring {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	return &Ring{maxTurns: maxTurns}
}

func (r *Ring) Add(_ context.Context, turn Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.turns = append(r.turns, turn)
	if len(r.turns) > r.maxTurns {
		r.turns = r.turns[len(r.turns)-r.maxTurns:]
	}
	return nil
}

func (r *Ring) History(_ context.Context) ([]Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Turn, len(r.turns))
	copy(out, r.turns)
	return out, nil
}

func (r *Ring) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.turns = nil
	return nil
}

var _ Store = (*Ring)(nil)
