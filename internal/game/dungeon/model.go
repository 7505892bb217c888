// Package dungeon provides the decoded dungeon map: a tree of locations whose
// children are sub-locations, monster encounters and the exit hatch.
package dungeon

import (
	"github.com/shopspring/decimal"

	"github.com/cory-johannsen/dungeon/internal/game/tag"
)

// Node is one child of a location. The set of implementations is closed:
// *Location, *Encounter and *Exit.
type Node interface {
	// Tag returns the decoded tag that identifies the node.
	Tag() tag.Tag
	isNode()
}

// Location is a place the player can occupy.
//
// Invariant: Children is in map order and is never modified after Build.
type Location struct {
	tag      tag.Tag
	Children []Node
}

// NewLocation creates a location node from a location tag.
//
// Precondition: t.Kind == tag.KindLocation.
func NewLocation(t tag.Tag, children ...Node) *Location {
	return &Location{tag: t, Children: children}
}

// Tag implements Node.
func (l *Location) Tag() tag.Tag { return l.tag }

// Label returns the raw location tag.
func (l *Location) Label() string { return l.tag.Raw }

// TravelCost returns the time spent entering the location.
func (l *Location) TravelCost() decimal.Decimal { return l.tag.Time }

func (*Location) isNode() {}

// Encounter is a Mob or Boss that awards experience when attacked.
type Encounter struct {
	tag tag.Tag
}

// NewEncounter creates an encounter node.
//
// Precondition: t.Kind == tag.KindEncounter.
func NewEncounter(t tag.Tag) *Encounter {
	return &Encounter{tag: t}
}

// Tag implements Node.
func (e *Encounter) Tag() tag.Tag { return e.tag }

// Reward returns the experience awarded for defeating the encounter.
func (e *Encounter) Reward() int64 { return e.tag.Experience }

// Cost returns the time spent fighting the encounter.
func (e *Encounter) Cost() decimal.Decimal { return e.tag.Time }

func (*Encounter) isNode() {}

// Exit is the hatch. Opening it ends the run.
type Exit struct {
	tag tag.Tag
}

// NewExit creates an exit node.
//
// Precondition: t.Kind == tag.KindExit.
func NewExit(t tag.Tag) *Exit {
	return &Exit{tag: t}
}

// Tag implements Node.
func (x *Exit) Tag() tag.Tag { return x.tag }

// Cost returns the time spent opening the hatch.
func (x *Exit) Cost() decimal.Decimal { return x.tag.Time }

func (*Exit) isNode() {}

// Tree is a fully decoded dungeon map.
type Tree struct {
	Root *Location
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Locations  int
	Encounters int
	Exits      int
	// Depth is the number of locations on the longest root-to-leaf chain.
	Depth int
}

// Stats walks the tree and counts its nodes.
//
// Precondition: t.Root must be non-nil.
func (t *Tree) Stats() Stats {
	var s Stats
	countLocation(t.Root, 1, &s)
	return s
}

func countLocation(l *Location, depth int, s *Stats) {
	s.Locations++
	if depth > s.Depth {
		s.Depth = depth
	}
	for _, child := range l.Children {
		switch c := child.(type) {
		case *Location:
			countLocation(c, depth+1, s)
		case *Encounter:
			s.Encounters++
		case *Exit:
			s.Exits++
		}
	}
}
