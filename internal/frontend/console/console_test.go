package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/frontend/console"
	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/testutil"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(testutil.SampleTree(t), engine.DefaultConfig(), zap.NewNop())
}

func TestRenderView_Menu(t *testing.T) {
	text := console.Renderer{}.RenderView(newEngine(t).Prepare())

	assert.Contains(t, text, "You are in Location_0_tm0\n")
	assert.Contains(t, text, "You have 0 experience and 123456.0987654321 seconds until the flood\n")
	assert.Contains(t, text, "  - Monster Mob_exp10_tm0\n")
	assert.Contains(t, text, "1. Attack monster Mob_exp10_tm0\n")
	assert.Contains(t, text, "2. Go to location Location_1_tm1040\n")
	assert.Contains(t, text, "5. Surrender and quit\n")
	assert.NotContains(t, text, "\033[")
	assert.NotContains(t, text, "FLOOD")
}

func TestRenderView_Color(t *testing.T) {
	text := console.Renderer{Palette: console.Palette{Enabled: true}}.RenderView(newEngine(t).Prepare())
	assert.Contains(t, text, console.Colorize(console.BrightYellow, "Location_0_tm0"))
	plain := console.Renderer{}.RenderView(newEngine(t).Prepare())
	assert.Equal(t, plain, console.StripANSI(text))
}

func TestRenderView_FloodBanner(t *testing.T) {
	e := newEngine(t)
	_, err := e.Resolve(4)
	require.NoError(t, err)

	text := console.Renderer{}.RenderView(e.Prepare())
	assert.Contains(t, text, "THE FLOOD!")
	assert.Contains(t, text, "Life 2 begins.")
}

func TestRenderOutcome(t *testing.T) {
	e := newEngine(t)
	out, err := e.Resolve(1)
	require.NoError(t, err)

	text := console.Renderer{}.RenderOutcome(out)
	assert.Contains(t, text, "You defeated Mob_exp10_tm0\n")
	assert.Contains(t, text, "Experience: 10\n")
	assert.Contains(t, text, "Remaining: 123456.0987654321 seconds\n")
	assert.True(t, strings.HasSuffix(text, console.Separator+"\n"))

	out, err = e.Resolve(4)
	require.NoError(t, err)
	assert.Contains(t, console.Renderer{}.RenderOutcome(out), "You surrendered")
}

func TestRenderRejection(t *testing.T) {
	text := console.Renderer{}.RenderRejection(errors.New("nope"))
	assert.Equal(t, "nope\n", text)
}

func TestDriver_RepromptsOnNonNumber(t *testing.T) {
	var out bytes.Buffer
	d := console.NewDriver(strings.NewReader("attack\n\n  2 \n"), &out, console.Palette{})

	choice, err := d.Choose(context.Background(), newEngine(t).Prepare())
	require.NoError(t, err)
	assert.Equal(t, 2, choice)
	assert.Contains(t, out.String(), (&engine.InvalidActionError{Input: "attack", Max: 5}).Error())
	assert.Contains(t, out.String(), `invalid action "(blank)"`)
	assert.Equal(t, 3, strings.Count(out.String(), "> "))
}

func TestDriver_NonNumberRejectsWithInvalidAction(t *testing.T) {
	var out bytes.Buffer
	d := console.NewDriver(strings.NewReader("north\n3\n"), &out, console.Palette{})

	choice, err := d.Choose(context.Background(), newEngine(t).Prepare())
	require.NoError(t, err)
	assert.Equal(t, 3, choice)
	assert.Contains(t, out.String(), `engine: invalid action "north": choose a number from 1 to 5`)
}

func TestDriver_OverlongLineReprompts(t *testing.T) {
	var out bytes.Buffer
	long := strings.Repeat("x", 200*1024)
	d := console.NewDriver(strings.NewReader(long+"\n2\n"), &out, console.Palette{})

	choice, err := d.Choose(context.Background(), newEngine(t).Prepare())
	require.NoError(t, err)
	assert.Equal(t, 2, choice)
	assert.Contains(t, out.String(), `invalid action "`+strings.Repeat("x", 32)+`..."`)
	assert.Less(t, out.Len(), 10*1024, "the rejected line is not echoed in full")
}

func TestDriver_LastLineWithoutNewline(t *testing.T) {
	d := console.NewDriver(strings.NewReader("4"), &bytes.Buffer{}, console.Palette{})
	e := newEngine(t)

	choice, err := d.Choose(context.Background(), e.Prepare())
	require.NoError(t, err)
	assert.Equal(t, 4, choice)

	choice, err = d.Choose(context.Background(), e.Prepare())
	require.NoError(t, err)
	assert.Equal(t, 5, choice, "end of input surrenders")
}

func TestDriver_EOFSurrenders(t *testing.T) {
	var out bytes.Buffer
	d := console.NewDriver(strings.NewReader(""), &out, console.Palette{})

	v := newEngine(t).Prepare()
	choice, err := d.Choose(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, v.SurrenderIndex, choice)
}

func TestDriver_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := console.NewDriver(strings.NewReader("1\n"), &bytes.Buffer{}, console.Palette{})

	_, err := d.Choose(ctx, newEngine(t).Prepare())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriver_FullGame(t *testing.T) {
	var out bytes.Buffer
	d := console.NewDriver(strings.NewReader("9\n1\n2\n1\n1\n1\n1\n2\n"), &out, console.Palette{})

	res, err := session.Run(context.Background(), newEngine(t), d, record.Discard, session.Options{})
	require.NoError(t, err)

	assert.Equal(t, engine.StateWon, res.State)
	assert.Contains(t, out.String(), "engine: invalid action 9")
	assert.Contains(t, out.String(), "Congratulations! You made it to the surface!")
}
