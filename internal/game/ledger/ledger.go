// Package ledger keeps the exact time and experience accounts of a run.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultBudget is the time, in seconds, granted to every life.
const DefaultBudget = "123456.0987654321"

// Balance is a point-in-time copy of a Ledger.
type Balance struct {
	// Budget is the time granted at the start of each life.
	Budget decimal.Decimal
	// Elapsed is the time spent in the current life.
	Elapsed decimal.Decimal
	// Remaining is Budget minus Elapsed. It may be negative until the next flood check.
	Remaining decimal.Decimal
	// SessionElapsed is the time spent across all lives. It is never reset.
	SessionElapsed decimal.Decimal
	// Experience is the experience earned in the current life.
	Experience int64
}

// Ledger holds elapsed time, remaining time and experience.
//
// Invariant: Elapsed + Remaining == Budget at all times.
// Invariant: Elapsed, SessionElapsed and Experience never decrease except on Reset,
// which never touches SessionElapsed.
type Ledger struct {
	budget     decimal.Decimal
	elapsed    decimal.Decimal
	remaining  decimal.Decimal
	session    decimal.Decimal
	experience int64
}

// ParseBudget parses a decimal budget string without passing through float64.
//
// Postcondition: Returns a non-negative decimal or a non-nil error.
func ParseBudget(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing time budget %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("time budget %q must not be negative", s)
	}
	return d, nil
}

// New creates a Ledger with the whole budget remaining.
//
// Precondition: budget must not be negative.
// Postcondition: Elapsed == 0, Remaining == budget, Experience == 0.
func New(budget decimal.Decimal) *Ledger {
	if budget.IsNegative() {
		panic("ledger: New precondition violated: budget must not be negative")
	}
	return &Ledger{
		budget:    budget,
		remaining: budget,
	}
}

// Spend moves cost seconds from remaining to elapsed.
//
// Precondition: cost must not be negative.
// Postcondition: Elapsed and SessionElapsed grow by cost; Remaining shrinks by cost.
func (l *Ledger) Spend(cost decimal.Decimal) {
	if cost.IsNegative() {
		panic("ledger: Spend precondition violated: cost must not be negative")
	}
	l.elapsed = l.elapsed.Add(cost)
	l.remaining = l.remaining.Sub(cost)
	l.session = l.session.Add(cost)
}

// Gain adds experience.
//
// Precondition: exp must not be negative.
func (l *Ledger) Gain(exp int64) {
	if exp < 0 {
		panic("ledger: Gain precondition violated: exp must not be negative")
	}
	l.experience += exp
}

// Flooded reports whether the remaining time has gone below zero.
func (l *Ledger) Flooded() bool {
	return l.remaining.IsNegative()
}

// Reset starts a new life: time spent and experience are cleared and the full
// budget is restored.
//
// Postcondition: Elapsed == 0, Remaining == Budget, Experience == 0;
// SessionElapsed is unchanged.
func (l *Ledger) Reset() {
	l.elapsed = decimal.Zero
	l.remaining = l.budget
	l.experience = 0
}

// Experience returns the experience earned in the current life.
func (l *Ledger) Experience() int64 { return l.experience }

// Elapsed returns the time spent in the current life.
func (l *Ledger) Elapsed() decimal.Decimal { return l.elapsed }

// Remaining returns the time left in the current life.
func (l *Ledger) Remaining() decimal.Decimal { return l.remaining }

// Balance returns a copy of all accounts.
func (l *Ledger) Balance() Balance {
	return Balance{
		Budget:         l.budget,
		Elapsed:        l.elapsed,
		Remaining:      l.remaining,
		SessionElapsed: l.session,
		Experience:     l.experience,
	}
}
