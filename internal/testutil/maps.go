package testutil

import (
	"testing"

	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
)

// SampleMapJSON is a small dungeon in the rpg.json layout.
//
// Winning route under the default budget of 123456.0987654321 and threshold 280:
// attack Mob_exp10_tm0, enter Location_2_tm33300, attack Boss_exp100_tm3600 and
// Mob_exp50_tm1800.5, enter Location_4_tm44400, attack Boss_exp120_tm20000.0987654321,
// open Hatch_tm20355.4999999999. That leaves exactly 0.0000000001 seconds.
//
// Location_1 leads to a hatch with too little experience. Location_5 costs
// 0.0000000001 seconds more than the whole budget.
const SampleMapJSON = `{
  "Location_0_tm0": [
    "Mob_exp10_tm0",
    {"Location_1_tm1040": [
      "Mob_exp10_tm10",
      {"Location_3_tm55500": [
        "Mob_exp40_tm50",
        "Hatch_tm100"
      ]}
    ]},
    {"Location_2_tm33300": [
      "Boss_exp100_tm3600",
      "Mob_exp50_tm1800.5",
      {"Location_4_tm44400": [
        "Boss_exp120_tm20000.0987654321",
        "Mob_exp10_tm20",
        "Hatch_tm20355.4999999999"
      ]}
    ]},
    {"Location_5_tm123456.0987654322": [
      "Hatch_tm0"
    ]}
  ]
}`

// ExampleMapJSON is the fragment from the game description rooted at the
// expensive location. The root's own travel cost is never charged.
const ExampleMapJSON = `{
  "Location_2_tm1234567890": [
    "Mob_exp10_tm10",
    {"Location_3_tm55500": []}
  ]
}`

// DeepFloodMapJSON has a root whose only sub-location costs more than the
// whole budget.
const DeepFloodMapJSON = `{
  "Location_0_tm0": [
    {"Location_2_tm1234567890": [
      "Mob_exp10_tm10"
    ]}
  ]
}`

// SampleTree builds SampleMapJSON or fails the test.
func SampleTree(t testing.TB) *dungeon.Tree {
	t.Helper()
	return MustTree(t, SampleMapJSON)
}

// MustTree builds a tree from a JSON or YAML document or fails the test.
func MustTree(t testing.TB, doc string) *dungeon.Tree {
	t.Helper()
	tree, err := dungeon.LoadFromBytes([]byte(doc))
	if err != nil {
		t.Fatalf("building test map: %v", err)
	}
	return tree
}
