package solver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
)

// ErrRouteDiverged is returned when the engine no longer shows the next step.
var ErrRouteDiverged = errors.New("solver: route diverged from the game")

// Driver plays a Route against a live engine by translating each node into
// its current menu number.
type Driver struct {
	route  Route
	engine *engine.Engine
	logger *zap.Logger
	next   int
}

// NewDriver creates a Driver that plays route on e.
//
// Precondition: e and logger must not be nil.
func NewDriver(route Route, e *engine.Engine, logger *zap.Logger) *Driver {
	if e == nil || logger == nil {
		panic("solver.NewDriver: engine and logger must not be nil")
	}
	return &Driver{route: route, engine: e, logger: logger}
}

// Choose implements session.Driver. It surrenders once the route is played out.
func (d *Driver) Choose(_ context.Context, v engine.View) (int, error) {
	if v.Flooded {
		return 0, fmt.Errorf("turn %d: flooded: %w", v.Turn, ErrRouteDiverged)
	}
	if d.next >= len(d.route) {
		return v.SurrenderIndex, nil
	}
	step := d.route[d.next]
	idx := d.engine.IndexOf(step)
	if idx == 0 {
		return 0, fmt.Errorf("turn %d: %s is not visible: %w", v.Turn, step.Tag().Raw, ErrRouteDiverged)
	}
	d.next++
	return idx, nil
}

// Reject implements session.Driver.
func (d *Driver) Reject(err error) {
	d.logger.Warn("route step rejected", zap.Error(err))
}

// Notify implements session.Driver.
func (d *Driver) Notify(out engine.Outcome) {
	d.logger.Debug("route step played",
		zap.Int("step", d.next),
		zap.String("tag", out.Tag),
		zap.Int64("experience", out.Snapshot.Experience),
	)
}
