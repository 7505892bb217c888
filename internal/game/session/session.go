// Package session runs one game from the first turn to a terminal state,
// asking a Driver for each move and persisting every resolved turn.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/ledger"
	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/observability"
)

// Driver is the player. Implementations include the interactive console, a
// Lua script, a fixed move list and the route finder.
type Driver interface {
	// Choose returns the 1-based menu number to play for v.
	Choose(ctx context.Context, v engine.View) (int, error)
	// Reject reports that the last choice was not accepted. The same turn is
	// presented again.
	Reject(err error)
	// Notify reports a resolved turn.
	Notify(out engine.Outcome)
}

// ErrTooManyRejects is returned when a driver exceeds Options.MaxRejects
// consecutive invalid choices.
var ErrTooManyRejects = errors.New("session: too many invalid choices")

// Options configures Run.
type Options struct {
	// Session identifies the run in persisted logs. A zero ID gets a fresh one.
	Session record.Session
	// Logger receives run-level events. Nil means no logging.
	Logger *zap.Logger
	// MaxRejects caps consecutive invalid choices. Zero means unlimited.
	MaxRejects int
}

// Result summarises a finished run.
type Result struct {
	Session record.Session
	State   engine.State
	Turns   int
	Lives   int
	Balance ledger.Balance
	Records []record.Snapshot
}

// Run plays e with d until the game is won or lost. sink.Start is called once
// before the first turn and sink.Append once per resolved turn. The caller
// owns sink and closes it.
//
// Precondition: e, d and sink must be non-nil; e must not be finished.
// Postcondition: On success Result.State is terminal and len(Result.Records) == Result.Turns.
func Run(ctx context.Context, e *engine.Engine, d Driver, sink record.Sink, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sess := opts.Session
	if sess.ID == uuid.Nil {
		sess = record.NewSession(sess.MapPath)
	}
	logger = logger.With(zap.String("session_id", sess.ID.String()))

	tracer := observability.Tracer("session")
	ctx, span := tracer.Start(ctx, "session.run")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID.String()))

	result := Result{Session: sess}

	if err := sink.Start(ctx, sess); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("starting run log: %w", err)
	}
	logger.Info("run started", zap.String("map", sess.MapPath))

	rejects := 0
	for !e.Done() {
		if err := ctx.Err(); err != nil {
			return finish(result, e), err
		}

		v := e.Prepare()

		turnCtx, turnSpan := tracer.Start(ctx, "session.turn")
		turnSpan.SetAttributes(
			attribute.Int("turn", v.Turn),
			attribute.Int("life", v.Life),
			attribute.String("location", v.Location),
			attribute.Bool("flooded", v.Flooded),
		)

		choice, err := d.Choose(turnCtx, v)
		if err != nil {
			turnSpan.SetStatus(codes.Error, err.Error())
			turnSpan.End()
			return finish(result, e), fmt.Errorf("choosing turn %d: %w", v.Turn, err)
		}

		out, err := e.Resolve(choice)
		var invalid *engine.InvalidActionError
		if errors.As(err, &invalid) {
			turnSpan.AddEvent("rejected", trace.WithAttributes(attribute.Int("choice", choice)))
			turnSpan.End()
			d.Reject(err)
			rejects++
			if opts.MaxRejects > 0 && rejects >= opts.MaxRejects {
				return finish(result, e), fmt.Errorf("turn %d: %w", v.Turn, ErrTooManyRejects)
			}
			continue
		}
		if err != nil {
			turnSpan.SetStatus(codes.Error, err.Error())
			turnSpan.End()
			return finish(result, e), fmt.Errorf("resolving turn %d: %w", v.Turn, err)
		}
		rejects = 0

		if err := sink.Append(turnCtx, out.Snapshot); err != nil {
			turnSpan.SetStatus(codes.Error, err.Error())
			turnSpan.End()
			return finish(result, e), fmt.Errorf("appending turn %d to run log: %w", v.Turn, err)
		}

		turnSpan.SetAttributes(
			attribute.String("action", out.Action.String()),
			attribute.String("tag", out.Tag),
			attribute.Int64("experience", out.Snapshot.Experience),
		)
		turnSpan.End()
		d.Notify(out)
	}

	result = finish(result, e)
	span.SetAttributes(
		attribute.String("state", result.State.String()),
		attribute.Int("turns", result.Turns),
		attribute.Int("lives", result.Lives),
	)
	logger.Info("run finished",
		zap.String("state", result.State.String()),
		zap.Int("turns", result.Turns),
		zap.Int("lives", result.Lives),
		zap.Int64("experience", result.Balance.Experience),
		zap.Stringer("session_elapsed", result.Balance.SessionElapsed),
	)
	return result, nil
}

func finish(r Result, e *engine.Engine) Result {
	r.State = e.State()
	r.Lives = e.Life()
	r.Balance = e.Balance()
	r.Records = e.Records()
	r.Turns = len(r.Records)
	return r
}
