package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/game/tag"
)

// DefaultWinExperience is the experience required to open the hatch and win.
const DefaultWinExperience = 280

// State is the traversal state of a run.
type State int

const (
	// StateAtLocation is the only non-terminal state: the player stands in a location.
	StateAtLocation State = iota
	// StateWon is reached by opening the hatch with enough experience.
	StateWon
	// StateLost is reached by opening the hatch without enough experience, or by surrendering.
	StateLost
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAtLocation:
		return "at_location"
	case StateWon:
		return "won"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further turns can be played.
func (s State) Terminal() bool {
	return s == StateWon || s == StateLost
}

// Action is the kind of a resolved turn.
type Action int

const (
	// ActionAttack fights an encounter.
	ActionAttack Action = iota + 1
	// ActionMove enters a child location.
	ActionMove
	// ActionOpenExit opens the hatch.
	ActionOpenExit
	// ActionSurrender ends the run as lost.
	ActionSurrender
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionAttack:
		return "attack"
	case ActionMove:
		return "move"
	case ActionOpenExit:
		return "open_exit"
	case ActionSurrender:
		return "surrender"
	default:
		return "unknown"
	}
}

// Option is one numbered menu entry other than surrender.
type Option struct {
	// Index is the 1-based menu number.
	Index int
	// Kind is the node kind.
	Kind tag.Kind
	// Tag is the raw node tag.
	Tag string
}

// View is everything the interactive surface needs to present one turn.
type View struct {
	// Turn is the 1-based number of the turn being presented.
	Turn int
	// Life is the 1-based life number.
	Life int
	// Flooded is true when the turn began with a flood reset.
	Flooded bool
	// State is the engine state; options are empty once it is terminal.
	State State

	Location       string
	Experience     int64
	Remaining      decimal.Decimal
	Elapsed        decimal.Decimal
	SessionElapsed decimal.Decimal

	// Options are the visible children in presentation order.
	Options []Option
	// SurrenderIndex is the menu number of the always-present surrender entry.
	// Zero once the run is over.
	SurrenderIndex int
}

// Outcome describes one resolved turn.
type Outcome struct {
	Action Action
	// Tag is the chosen node tag. Empty for surrender.
	Tag string
	// ExperienceGained is the reward earned by the turn.
	ExperienceGained int64
	// TimeSpent is the cost charged by the turn.
	TimeSpent decimal.Decimal
	// Remaining is the time left in the current life after the turn. It may
	// be negative; the flood check runs on the next Prepare.
	Remaining decimal.Decimal
	// State is the engine state after the turn.
	State State
	// Snapshot is the record appended for the turn.
	Snapshot record.Snapshot
}

// InvalidActionError reports a menu choice that does not match a visible option.
// Engine state is unchanged when it is returned.
type InvalidActionError struct {
	Choice int
	Max    int
	// Input is set instead of Choice when the raw reply was not an integer.
	Input string
}

// Error implements error.
func (e *InvalidActionError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("engine: invalid action %q: choose a number from 1 to %d", e.Input, e.Max)
	}
	return fmt.Sprintf("engine: invalid action %d: choose a number from 1 to %d", e.Choice, e.Max)
}

// ErrGameOver is returned by Resolve once the run has been won or lost.
var ErrGameOver = errors.New("engine: game is over")
