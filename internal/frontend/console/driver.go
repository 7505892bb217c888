package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
)

// maxEcho caps how much of a rejected line is repeated back.
const maxEcho = 32

// Driver is the interactive player: it prints each view to out and reads one
// menu number per line from in.
type Driver struct {
	in       *bufio.Reader
	out      io.Writer
	renderer Renderer
}

// NewDriver creates a console Driver.
//
// Precondition: in and out must not be nil.
func NewDriver(in io.Reader, out io.Writer, palette Palette) *Driver {
	return &Driver{
		in:       bufio.NewReader(in),
		out:      out,
		renderer: Renderer{Palette: palette},
	}
}

// Choose implements session.Driver. A line that is not an integer is rejected
// with an *engine.InvalidActionError and the prompt repeats; lines of any
// length are accepted. End of input surrenders.
func (d *Driver) Choose(ctx context.Context, v engine.View) (int, error) {
	if _, err := io.WriteString(d.out, d.renderer.RenderView(v)); err != nil {
		return 0, fmt.Errorf("writing view: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, err := io.WriteString(d.out, "> "); err != nil {
			return 0, fmt.Errorf("writing prompt: %w", err)
		}
		raw, err := d.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("reading choice: %w", err)
		}
		if err != nil && raw == "" {
			io.WriteString(d.out, "\n")
			return v.SurrenderIndex, nil
		}
		line := strings.TrimSpace(raw)
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			d.Reject(&engine.InvalidActionError{Input: echo(line), Max: v.SurrenderIndex})
			continue
		}
		return n, nil
	}
}

func echo(line string) string {
	if line == "" {
		return "(blank)"
	}
	if len(line) > maxEcho {
		return line[:maxEcho] + "..."
	}
	return line
}

// Reject implements session.Driver.
func (d *Driver) Reject(err error) {
	io.WriteString(d.out, d.renderer.RenderRejection(err))
}

// Notify implements session.Driver.
func (d *Driver) Notify(out engine.Outcome) {
	io.WriteString(d.out, d.renderer.RenderOutcome(out))
}
