package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
)

// registerModules defines the dungeon global table.
//
//	dungeon.log(msg)  logs msg at Info level on the driver's logger
func (d *Driver) registerModules() {
	mod := d.L.NewTable()
	d.L.SetField(mod, "log", d.L.NewFunction(func(L *lua.LState) int {
		d.logger.Info("script", zap.String("script", d.name), zap.String("msg", L.CheckString(1)))
		return 0
	}))
	d.L.SetGlobal("dungeon", mod)
}

// viewTable converts a view to the table passed to choose. Decimal amounts are
// given twice: exactly as strings and approximately as numbers for arithmetic.
func viewTable(L *lua.LState, v engine.View) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "turn", lua.LNumber(v.Turn))
	L.SetField(t, "life", lua.LNumber(v.Life))
	L.SetField(t, "flooded", lua.LBool(v.Flooded))
	L.SetField(t, "location", lua.LString(v.Location))
	L.SetField(t, "experience", lua.LNumber(v.Experience))
	L.SetField(t, "remaining", lua.LString(v.Remaining.String()))
	L.SetField(t, "remaining_seconds", lua.LNumber(v.Remaining.InexactFloat64()))
	L.SetField(t, "elapsed", lua.LString(v.Elapsed.String()))
	L.SetField(t, "session_elapsed", lua.LString(v.SessionElapsed.String()))
	L.SetField(t, "surrender", lua.LNumber(v.SurrenderIndex))

	opts := L.NewTable()
	for _, o := range v.Options {
		ot := L.NewTable()
		L.SetField(ot, "index", lua.LNumber(o.Index))
		L.SetField(ot, "kind", lua.LString(o.Kind.String()))
		L.SetField(ot, "tag", lua.LString(o.Tag))
		opts.Append(ot)
	}
	L.SetField(t, "options", opts)
	return t
}

func outcomeTable(L *lua.LState, out engine.Outcome) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "action", lua.LString(out.Action.String()))
	L.SetField(t, "tag", lua.LString(out.Tag))
	L.SetField(t, "experience_gained", lua.LNumber(out.ExperienceGained))
	L.SetField(t, "time_spent", lua.LString(out.TimeSpent.String()))
	L.SetField(t, "remaining", lua.LString(out.Remaining.String()))
	L.SetField(t, "state", lua.LString(out.State.String()))
	L.SetField(t, "experience", lua.LNumber(out.Snapshot.Experience))
	return t
}
