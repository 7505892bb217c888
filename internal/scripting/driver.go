package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
)

// ErrNoChoose is returned when a script does not define a choose function.
var ErrNoChoose = errors.New("scripting: script does not define choose(view)")

// Driver is a player backed by a Lua script. It is not safe for concurrent use.
type Driver struct {
	L         *lua.LState
	name      string
	instLimit int
	logger    *zap.Logger
}

// Load reads the script at path and returns a Driver for it.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: Returns a Driver whose script defines choose, or a non-nil error.
func Load(path string, instLimit int, logger *zap.Logger) (*Driver, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return LoadString(path, string(src), instLimit, logger)
}

// LoadString is Load for in-memory source; name is used in logs and errors.
func LoadString(name, src string, instLimit int, logger *zap.Logger) (*Driver, error) {
	d := &Driver{L: NewSandboxedState(), name: name, instLimit: instLimit, logger: logger}
	d.registerModules()

	release := limitInstructions(context.Background(), d.L, instLimit)
	err := d.L.DoString(src)
	release()
	if err != nil {
		d.L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	if _, ok := d.L.GetGlobal("choose").(*lua.LFunction); !ok {
		d.L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", name, ErrNoChoose)
	}
	return d, nil
}

// Close releases the VM.
func (d *Driver) Close() {
	d.L.Close()
}

// Choose implements session.Driver by calling choose(view). The script must
// return an integer menu number.
func (d *Driver) Choose(ctx context.Context, v engine.View) (int, error) {
	ret, err := d.call(ctx, "choose", viewTable(d.L, v))
	if err != nil {
		return 0, err
	}
	n, ok := ret.(lua.LNumber)
	if !ok || float64(n) != float64(int(n)) {
		return 0, fmt.Errorf("scripting: %s: choose returned %s %q, want an integer", d.name, ret.Type(), ret.String())
	}
	return int(n), nil
}

// Reject implements session.Driver by calling on_reject(message) when defined.
func (d *Driver) Reject(err error) {
	d.logger.Warn("scripting: choice rejected", zap.String("script", d.name), zap.Error(err))
	d.hook("on_reject", lua.LString(err.Error()))
}

// Notify implements session.Driver by calling on_outcome(outcome) when defined.
func (d *Driver) Notify(out engine.Outcome) {
	d.hook("on_outcome", outcomeTable(d.L, out))
}

// hook calls an optional global. Lua runtime errors are logged at Warn level
// and never propagated.
func (d *Driver) hook(name string, args ...lua.LValue) {
	if _, ok := d.L.GetGlobal(name).(*lua.LFunction); !ok {
		return
	}
	if _, err := d.call(context.Background(), name, args...); err != nil {
		d.logger.Warn("scripting: Lua runtime error",
			zap.String("script", d.name),
			zap.String("hook", name),
			zap.Error(err),
		)
	}
}

func (d *Driver) call(ctx context.Context, name string, args ...lua.LValue) (lua.LValue, error) {
	fn := d.L.GetGlobal(name)
	release := limitInstructions(ctx, d.L, d.instLimit)
	defer release()

	if err := d.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return lua.LNil, ctxErr
		}
		return lua.LNil, fmt.Errorf("scripting: %s: %s: %w", d.name, name, err)
	}
	ret := d.L.Get(-1)
	d.L.Pop(1)
	return ret, nil
}
