// Package solver searches a dungeon tree for a route that opens the hatch with
// enough experience inside a single life.
package solver

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
)

// MaxEncountersPerLocation bounds the subsets tried in one location.
const MaxEncountersPerLocation = 20

// ErrNoRoute is returned when no winning route exists within one life.
var ErrNoRoute = errors.New("solver: no winning route")

// Route is an ordered list of nodes to act on, starting at the root.
type Route []dungeon.Node

// Tags returns the raw tag of every step.
func (r Route) Tags() []string {
	out := make([]string, len(r))
	for i, n := range r {
		out[i] = n.Tag().Raw
	}
	return out
}

// Find returns the first winning route in depth-first order. In each location
// encounter subsets are tried from "attack everything" downwards, then child
// locations and exits in map order. A step is only taken while the remaining
// time is not negative, so the route never triggers a flood.
//
// Precondition: tree must have a root; budget must not be negative.
// Postcondition: Returns a non-empty route ending in an exit, or ErrNoRoute,
// or an error when a location has more than MaxEncountersPerLocation encounters.
func Find(tree *dungeon.Tree, budget decimal.Decimal, threshold int64) (Route, error) {
	if tree == nil || tree.Root == nil {
		panic("solver.Find: tree must have a root")
	}
	s := &search{threshold: threshold}
	ok, err := s.visit(tree.Root, budget, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoRoute
	}
	return s.route, nil
}

type search struct {
	threshold int64
	route     Route
}

func (s *search) visit(loc *dungeon.Location, remaining decimal.Decimal, exp int64) (bool, error) {
	var encounters []*dungeon.Encounter
	var next []dungeon.Node
	for _, c := range loc.Children {
		if enc, ok := c.(*dungeon.Encounter); ok {
			encounters = append(encounters, enc)
		} else {
			next = append(next, c)
		}
	}
	if len(encounters) > MaxEncountersPerLocation {
		return false, fmt.Errorf("solver: %s has %d encounters, more than %d",
			loc.Label(), len(encounters), MaxEncountersPerLocation)
	}
	if len(next) == 0 {
		return false, nil
	}

	base := len(s.route)
	for mask := (1 << len(encounters)) - 1; mask >= 0; mask-- {
		rem, gained := remaining, exp
		s.route = s.route[:base]
		for i, enc := range encounters {
			if mask&(1<<i) == 0 {
				continue
			}
			rem = rem.Sub(enc.Cost())
			gained += enc.Reward()
			s.route = append(s.route, enc)
		}
		if rem.IsNegative() {
			continue
		}

		ok, err := s.leave(next, rem, gained)
		if err != nil || ok {
			return ok, err
		}
	}
	s.route = s.route[:base]
	return false, nil
}

// leave tries every way out of a location once its encounters are settled.
func (s *search) leave(next []dungeon.Node, remaining decimal.Decimal, exp int64) (bool, error) {
	mark := len(s.route)
	for _, n := range next {
		s.route = s.route[:mark]
		switch n := n.(type) {
		case *dungeon.Exit:
			if exp >= s.threshold {
				s.route = append(s.route, n)
				return true, nil
			}
		case *dungeon.Location:
			rem := remaining.Sub(n.TravelCost())
			if rem.IsNegative() {
				continue
			}
			s.route = append(s.route, n)
			ok, err := s.visit(n, rem, exp)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	s.route = s.route[:mark]
	return false, nil
}
