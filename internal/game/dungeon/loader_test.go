package dungeon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dungeon/internal/game/tag"
)

const sampleJSON = `{
  "Location_0_tm0": [
    "Mob_exp10_tm0",
    {"Location_1_tm1040": ["Mob_exp10_tm10", "Hatch_tm100"]},
    {"Location_2_tm33300": []},
    "Boss_exp20_tm5.5"
  ]
}`

const sampleYAML = `
Location_0_tm0:
  - Mob_exp10_tm0
  - Location_1_tm1040:
      - Mob_exp10_tm10
      - Hatch_tm100
  - Location_2_tm33300: []
  - Boss_exp20_tm5.5
`

func labels(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Tag().Raw)
	}
	return out
}

func TestLoadFromBytes_JSONKeepsOrder(t *testing.T) {
	tree, err := LoadFromBytes([]byte(sampleJSON))
	require.NoError(t, err)
	require.NotNil(t, tree.Root)

	assert.Equal(t, "Location_0_tm0", tree.Root.Label())
	assert.Equal(t, []string{
		"Mob_exp10_tm0",
		"Location_1_tm1040",
		"Location_2_tm33300",
		"Boss_exp20_tm5.5",
	}, labels(tree.Root.Children))

	loc1, ok := tree.Root.Children[1].(*Location)
	require.True(t, ok, "second child must be a location")
	assert.Equal(t, []string{"Mob_exp10_tm10", "Hatch_tm100"}, labels(loc1.Children))
	assert.Equal(t, "1040", loc1.TravelCost().String())

	_, ok = loc1.Children[1].(*Exit)
	assert.True(t, ok, "hatch must decode as an exit")

	boss, ok := tree.Root.Children[3].(*Encounter)
	require.True(t, ok)
	assert.Equal(t, int64(20), boss.Reward())
	assert.Equal(t, "5.5", boss.Cost().String())
}

func TestLoadFromBytes_YAMLMatchesJSON(t *testing.T) {
	fromJSON, err := LoadFromBytes([]byte(sampleJSON))
	require.NoError(t, err)
	fromYAML, err := LoadFromBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, labels(fromJSON.Root.Children), labels(fromYAML.Root.Children))
	assert.Equal(t, fromJSON.Stats(), fromYAML.Stats())
}

func TestLoadFromBytes_EmptyLocation(t *testing.T) {
	tree, err := LoadFromBytes([]byte(`{"Location_0_tm0": null}`))
	require.NoError(t, err)
	assert.Empty(t, tree.Root.Children)
}

func TestLoadFromBytes_BareLocationString(t *testing.T) {
	tree, err := LoadFromBytes([]byte(`{"Location_0_tm0": ["Location_7_tm3"]}`))
	require.NoError(t, err)
	loc, ok := tree.Root.Children[0].(*Location)
	require.True(t, ok)
	assert.Empty(t, loc.Children)
	assert.Equal(t, 7, loc.Tag().Number)
}

func TestLoadFromBytes_MalformedTagCarriesPath(t *testing.T) {
	doc := `{"Location_0_tm0": [{"Location_1_tm5": ["Goblin_exp1_tm1"]}]}`
	_, err := LoadFromBytes([]byte(doc))
	require.Error(t, err)

	var mte *tag.MalformedTagError
	require.True(t, errors.As(err, &mte), "error must wrap MalformedTagError")
	assert.Equal(t, "Goblin_exp1_tm1", mte.Tag)
	assert.Contains(t, err.Error(), "Location_0_tm0 > Location_1_tm5")
}

func TestLoadFromBytes_StructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"root is a list", `["Location_0_tm0"]`},
		{"root has two keys", `{"Location_0_tm0": [], "Location_1_tm0": []}`},
		{"root key is an encounter", `{"Mob_exp1_tm1": []}`},
		{"location value is a string", `{"Location_0_tm0": "Mob_exp1_tm1"}`},
		{"nested list child", `{"Location_0_tm0": [["Mob_exp1_tm1"]]}`},
		{"child mapping with two keys", `{"Location_0_tm0": [{"Location_1_tm1": [], "Location_2_tm1": []}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMap), "got %v", err)
		})
	}
}

func TestLoadFromBytes_InvalidSyntax(t *testing.T) {
	_, err := LoadFromBytes([]byte(`{"Location_0_tm0": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing map document")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpg.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0644))

	tree, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Location_0_tm0", tree.Root.Label())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTree_Stats(t *testing.T) {
	tree, err := LoadFromBytes([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, Stats{Locations: 3, Encounters: 3, Exits: 1, Depth: 2}, tree.Stats())
}

// TestPropertyBuild_ChainDepth verifies that a chain of n nested locations is
// decoded with depth n and one encounter per level.
func TestPropertyBuild_ChainDepth(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(rt, "depth")

		doc := ""
		for i := n - 1; i >= 0; i-- {
			inner := `"Mob_exp1_tm1"`
			if doc != "" {
				inner += ", " + doc
			}
			doc = `{"Location_` + strconv.Itoa(i) + `_tm1": [` + inner + `]}`
		}

		tree, err := LoadFromBytes([]byte(doc))
		require.NoError(rt, err)
		stats := tree.Stats()
		assert.Equal(rt, n, stats.Depth)
		assert.Equal(rt, n, stats.Locations)
		assert.Equal(rt, n, stats.Encounters)
	})
}
