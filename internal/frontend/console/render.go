package console

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/tag"
)

// Separator is printed after every resolved turn.
var Separator = strings.Repeat(".", 60)

// Renderer formats engine views and outcomes as terminal text.
type Renderer struct {
	Palette Palette
}

// RenderView formats the status block, the contents of the location and the
// numbered action menu.
func (r Renderer) RenderView(v engine.View) string {
	p := r.Palette
	var b strings.Builder

	if v.Flooded {
		b.WriteString(p.Paint(BrightRed, "You did not open the hatch in time. THE FLOOD!"))
		b.WriteString("\n")
		b.WriteString(p.Paintf(Dim, "Everything goes dark... and you wake at the cave entrance. Life %d begins.", v.Life))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("You are in %s\n", p.Paint(BrightYellow, v.Location)))
	b.WriteString(fmt.Sprintf("You have %s experience and %s seconds until the flood\n",
		p.Paint(BrightGreen, fmt.Sprint(v.Experience)),
		p.Paint(BrightCyan, v.Remaining.String())))
	b.WriteString(fmt.Sprintf("Elapsed: %s seconds\n", v.Elapsed.String()))

	if len(v.Options) > 0 {
		b.WriteString("Inside you see:\n")
		for _, o := range v.Options {
			b.WriteString(fmt.Sprintf("  - %s %s\n", describe(o.Kind), p.Paint(kindColor(o.Kind), o.Tag)))
		}
	}

	b.WriteString("Choose an action:\n")
	for _, o := range v.Options {
		b.WriteString(fmt.Sprintf("%d. %s %s\n", o.Index, verb(o.Kind), o.Tag))
	}
	b.WriteString(fmt.Sprintf("%d. Surrender and quit\n", v.SurrenderIndex))
	return b.String()
}

// RenderOutcome formats the result of one resolved turn.
func (r Renderer) RenderOutcome(out engine.Outcome) string {
	p := r.Palette
	var b strings.Builder

	switch out.Action {
	case engine.ActionAttack:
		b.WriteString(fmt.Sprintf("You defeated %s\n", out.Tag))
		b.WriteString(fmt.Sprintf("Experience: %d\n", out.Snapshot.Experience))
		r.writeClock(&b, out)
	case engine.ActionMove:
		b.WriteString(fmt.Sprintf("You entered %s\n", p.Paint(BrightYellow, out.Tag)))
		r.writeClock(&b, out)
	case engine.ActionOpenExit:
		b.WriteString("Opening the hatch...\n")
		if out.State == engine.StateWon {
			b.WriteString(p.Paint(BrightGreen, "Congratulations! You made it to the surface!"))
		} else {
			b.WriteString(p.Paint(Red, "Not enough experience to open the hatch. Game over."))
		}
		b.WriteString("\n")
	case engine.ActionSurrender:
		b.WriteString(p.Paint(Red, "You surrendered and left the game."))
		b.WriteString("\n")
	}
	b.WriteString(Separator)
	b.WriteString("\n")
	return b.String()
}

// RenderRejection formats an invalid choice message.
func (r Renderer) RenderRejection(err error) string {
	return r.Palette.Paint(Yellow, err.Error()) + "\n"
}

func (r Renderer) writeClock(b *strings.Builder, out engine.Outcome) {
	b.WriteString(fmt.Sprintf("Elapsed: %s seconds\n", out.Snapshot.LifeElapsed.String()))
	b.WriteString(fmt.Sprintf("Remaining: %s seconds\n", out.Remaining.String()))
}

func describe(k tag.Kind) string {
	switch k {
	case tag.KindEncounter:
		return "Monster"
	case tag.KindLocation:
		return "Entrance to"
	case tag.KindExit:
		return "Hatch"
	default:
		return "Something"
	}
}

func verb(k tag.Kind) string {
	switch k {
	case tag.KindEncounter:
		return "Attack monster"
	case tag.KindLocation:
		return "Go to location"
	case tag.KindExit:
		return "Open hatch"
	default:
		return "Use"
	}
}

func kindColor(k tag.Kind) string {
	switch k {
	case tag.KindEncounter:
		return Red
	case tag.KindLocation:
		return Cyan
	default:
		return Magenta
	}
}
