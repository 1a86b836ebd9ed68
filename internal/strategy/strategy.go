// Package strategy provides automated human-side players for simulations.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/cardguess/internal/guess/domain"
	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

// Strategy picks the human guess for the next round from the rounds played
// so far. round is 1-based.
type Strategy interface {
	Guess(round int, history []domain.RoundRecord) (domain.Outcome, error)
}

// Func adapts a plain function to Strategy.
type Func func(round int, history []domain.RoundRecord) (domain.Outcome, error)

// Guess calls f.
func (f Func) Guess(round int, history []domain.RoundRecord) (domain.Outcome, error) {
	return f(round, history)
}

var builtins = map[string]Strategy{
	"always-red": Func(func(int, []domain.RoundRecord) (domain.Outcome, error) {
		return domain.OutcomeRed, nil
	}),
	"always-blue": Func(func(int, []domain.RoundRecord) (domain.Outcome, error) {
		return domain.OutcomeBlue, nil
	}),
	"alternate": Func(func(round int, _ []domain.RoundRecord) (domain.Outcome, error) {
		if round%2 == 1 {
			return domain.OutcomeRed, nil
		}
		return domain.OutcomeBlue, nil
	}),
	// follow-majority guesses the colour drawn most often so far, Red on ties.
	"follow-majority": Func(func(_ int, history []domain.RoundRecord) (domain.Outcome, error) {
		var red int
		for _, r := range history {
			if r.Draw == domain.OutcomeRed {
				red++
			}
		}
		if 2*red >= len(history) {
			return domain.OutcomeRed, nil
		}
		return domain.OutcomeBlue, nil
	}),
}

// Builtin returns a named built-in strategy.
func Builtin(name string) (Strategy, error) {
	s, ok := builtins[name]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeStrategyFailed,
			fmt.Sprintf("unknown strategy %q (built-ins: %s)", name, strings.Join(BuiltinNames(), ", ")),
			map[string]string{"strategy": name})
	}
	return s, nil
}

// BuiltinNames lists the built-in strategies in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
