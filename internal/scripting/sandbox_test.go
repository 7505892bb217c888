package scripting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	err := L.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
		local t = {}
		table.insert(t, 1)
		assert(#t == 1, "table.insert failed")
	`)
	assert.NoError(t, err)
}

func TestLimitInstructions_Exceeded(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	release := limitInstructions(context.Background(), L, 10)
	defer release()
	assert.Error(t, L.DoString(`while true do end`))
}

func TestLimitInstructions_FreshBudgetPerCall(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	for i := 0; i < 3; i++ {
		release := limitInstructions(context.Background(), L, 1000)
		require.NoError(t, L.DoString(`local s = 0 for i = 1, 50 do s = s + i end`), "call %d", i)
		release()
	}
}

func TestLimitInstructions_ParentCancel(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := limitInstructions(ctx, L, 0)
	defer release()
	assert.Error(t, L.DoString(`while true do end`))
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := NewSandboxedState()
		defer L.Close()
		release := limitInstructions(context.Background(), L, limit)
		defer release()
		if err := L.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}
