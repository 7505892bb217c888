// Package engine implements the turn-by-turn traversal of a dungeon map.
package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/ledger"
	"github.com/cory-johannsen/dungeon/internal/game/record"
)

// Config holds the session constants.
type Config struct {
	// Budget is the time granted to each life.
	Budget decimal.Decimal
	// WinExperience is the experience needed when the hatch is opened.
	WinExperience int64
}

// DefaultConfig returns the standard budget and win threshold.
func DefaultConfig() Config {
	return Config{
		Budget:        decimal.RequireFromString(ledger.DefaultBudget),
		WinExperience: DefaultWinExperience,
	}
}

// Engine resolves turns against a dungeon tree. It owns the cursor, the set of
// visible children, the ledger and the recorder. It is not safe for concurrent use.
//
// Invariant: visible holds only children of cursor; a location left by a move
// is never visible again in the same life.
type Engine struct {
	tree     *dungeon.Tree
	cfg      Config
	ledger   *ledger.Ledger
	recorder *record.Recorder
	logger   *zap.Logger

	cursor  *dungeon.Location
	visible []dungeon.Node
	state   State
	life    int
	turn    int

	prepared bool
	flooded  bool
}

// New creates an engine standing at the root of tree with a full budget.
//
// Precondition: tree and tree.Root must be non-nil; logger must be non-nil;
// cfg.Budget must not be negative.
// Postcondition: State() == StateAtLocation, Life() == 1.
func New(tree *dungeon.Tree, cfg Config, logger *zap.Logger) *Engine {
	if tree == nil || tree.Root == nil {
		panic("engine: New precondition violated: tree must have a root")
	}
	e := &Engine{
		tree:     tree,
		cfg:      cfg,
		ledger:   ledger.New(cfg.Budget),
		recorder: record.NewRecorder(),
		logger:   logger,
		state:    StateAtLocation,
		life:     1,
		turn:     1,
	}
	e.enter(tree.Root)
	return e
}

// Prepare runs the flood check for the current turn and returns the view to
// present. Calling it again before Resolve returns the same view without a
// second check.
//
// Postcondition: if the remaining time was negative, the ledger is reset,
// the cursor is back at the root, Life() has grown by one and View.Flooded is true.
func (e *Engine) Prepare() View {
	if !e.state.Terminal() && !e.prepared {
		if e.ledger.Flooded() {
			e.flood()
		}
		e.prepared = true
	}
	return e.view()
}

// Resolve plays the menu entry choice for the current turn. Prepare is called
// first if it has not been; the choice is checked against the menu Prepare
// would present before any pending flood is applied.
//
// Precondition: State() must not be terminal.
// Postcondition: on success exactly one snapshot is appended. On
// *InvalidActionError nothing changes, including a pending flood.
func (e *Engine) Resolve(choice int) (Outcome, error) {
	if e.state.Terminal() {
		return Outcome{}, ErrGameOver
	}
	surrender := e.menuSize() + 1
	if choice < 1 || choice > surrender {
		return Outcome{}, &InvalidActionError{Choice: choice, Max: surrender}
	}
	e.Prepare()

	var out Outcome
	if choice == surrender {
		e.state = StateLost
		out = Outcome{Action: ActionSurrender, TimeSpent: decimal.Zero}
	} else {
		out = e.apply(choice - 1)
	}
	out.State = e.state

	bal := e.ledger.Balance()
	out.Remaining = bal.Remaining
	out.Snapshot = e.recorder.Append(record.Snapshot{
		Life:        e.life,
		Location:    e.cursor.Label(),
		Experience:  bal.Experience,
		Elapsed:     bal.SessionElapsed,
		LifeElapsed: bal.Elapsed,
	})

	e.logger.Debug("turn resolved",
		zap.Int("turn", e.turn),
		zap.Int("life", e.life),
		zap.String("action", out.Action.String()),
		zap.String("tag", out.Tag),
		zap.Int64("experience", bal.Experience),
		zap.Stringer("remaining", bal.Remaining),
		zap.Stringer("elapsed", bal.Elapsed),
		zap.String("state", e.state.String()),
	)

	e.turn++
	e.prepared = false
	e.flooded = false
	return out, nil
}

// menuSize is the number of options the current turn shows, without running
// the flood check.
func (e *Engine) menuSize() int {
	if !e.prepared && e.ledger.Flooded() {
		return len(e.tree.Root.Children)
	}
	return len(e.visible)
}

func (e *Engine) apply(i int) Outcome {
	node := e.visible[i]
	out := Outcome{Tag: node.Tag().Raw}

	switch n := node.(type) {
	case *dungeon.Encounter:
		e.ledger.Gain(n.Reward())
		e.ledger.Spend(n.Cost())
		e.visible = append(e.visible[:i], e.visible[i+1:]...)
		out.Action = ActionAttack
		out.ExperienceGained = n.Reward()
		out.TimeSpent = n.Cost()
	case *dungeon.Location:
		e.ledger.Spend(n.TravelCost())
		e.enter(n)
		out.Action = ActionMove
		out.TimeSpent = n.TravelCost()
	case *dungeon.Exit:
		e.ledger.Spend(n.Cost())
		if e.ledger.Experience() >= e.cfg.WinExperience {
			e.state = StateWon
		} else {
			e.state = StateLost
		}
		out.Action = ActionOpenExit
		out.TimeSpent = n.Cost()
	}
	return out
}

// enter moves the cursor to loc; its children become the visible set and the
// previous location is dropped.
func (e *Engine) enter(loc *dungeon.Location) {
	e.cursor = loc
	e.visible = make([]dungeon.Node, len(loc.Children))
	copy(e.visible, loc.Children)
}

func (e *Engine) flood() {
	drowned := e.ledger.Balance()
	e.life++
	e.ledger.Reset()
	e.enter(e.tree.Root)
	e.flooded = true
	e.logger.Info("flood: life ended, respawning at root",
		zap.Int("life", e.life),
		zap.Stringer("overdrawn", drowned.Remaining),
		zap.Int64("experience_lost", drowned.Experience),
	)
}

func (e *Engine) view() View {
	bal := e.ledger.Balance()
	v := View{
		Turn:           e.turn,
		Life:           e.life,
		Flooded:        e.flooded,
		State:          e.state,
		Location:       e.cursor.Label(),
		Experience:     bal.Experience,
		Remaining:      bal.Remaining,
		Elapsed:        bal.Elapsed,
		SessionElapsed: bal.SessionElapsed,
	}
	if e.state.Terminal() {
		return v
	}
	v.Options = make([]Option, len(e.visible))
	for i, n := range e.visible {
		t := n.Tag()
		v.Options[i] = Option{Index: i + 1, Kind: t.Kind, Tag: t.Raw}
	}
	v.SurrenderIndex = len(e.visible) + 1
	return v
}

// IndexOf returns the menu number of a visible node, or 0 if it is not visible.
func (e *Engine) IndexOf(node dungeon.Node) int {
	for i, n := range e.visible {
		if n == node {
			return i + 1
		}
	}
	return 0
}

// State returns the current traversal state.
func (e *Engine) State() State { return e.state }

// Done reports whether the run is over.
func (e *Engine) Done() bool { return e.state.Terminal() }

// Life returns the 1-based life number.
func (e *Engine) Life() int { return e.life }

// Balance returns a copy of the ledger accounts.
func (e *Engine) Balance() ledger.Balance { return e.ledger.Balance() }

// Location returns the location the cursor stands in.
func (e *Engine) Location() *dungeon.Location { return e.cursor }

// Records returns every snapshot appended so far.
func (e *Engine) Records() []record.Snapshot { return e.recorder.Records() }
