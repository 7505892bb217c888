package session

import (
	"context"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
)

// MovesDriver plays a fixed list of menu numbers and surrenders once the list
// runs out. A rejected move is skipped.
type MovesDriver struct {
	moves    []int
	next     int
	rejected []error
	outcomes []engine.Outcome
}

// NewMovesDriver creates a MovesDriver for moves.
func NewMovesDriver(moves ...int) *MovesDriver {
	return &MovesDriver{moves: append([]int(nil), moves...)}
}

// Choose implements Driver.
func (m *MovesDriver) Choose(_ context.Context, v engine.View) (int, error) {
	if m.next >= len(m.moves) {
		return v.SurrenderIndex, nil
	}
	c := m.moves[m.next]
	m.next++
	return c, nil
}

// Reject implements Driver.
func (m *MovesDriver) Reject(err error) { m.rejected = append(m.rejected, err) }

// Notify implements Driver.
func (m *MovesDriver) Notify(out engine.Outcome) { m.outcomes = append(m.outcomes, out) }

// Rejected returns the errors reported for skipped moves.
func (m *MovesDriver) Rejected() []error { return m.rejected }

// Outcomes returns every resolved turn in order.
func (m *MovesDriver) Outcomes() []engine.Outcome { return m.outcomes }
