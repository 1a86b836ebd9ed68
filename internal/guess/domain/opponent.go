package domain

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// PriorPseudoCount is the initial pseudo-count for each colour: a symmetric
// Beta(0.5, 0.5) prior.
const PriorPseudoCount = 0.5

// BeliefState holds the opponent's Beta pseudo-counts for Red (Alpha) and
// Blue (Beta).
type BeliefState struct {
	Alpha float64
	Beta  float64
}

// NewBeliefState returns the prior belief.
func NewBeliefState() BeliefState {
	return BeliefState{Alpha: PriorPseudoCount, Beta: PriorPseudoCount}
}

// PRed is the posterior mean probability that the next draw is Red.
func (b BeliefState) PRed() float64 {
	return b.Alpha / (b.Alpha + b.Beta)
}

// Evidence is the total pseudo-count mass: one for the prior plus one per
// observed round.
func (b BeliefState) Evidence() float64 {
	return b.Alpha + b.Beta
}

// Decide is the guess an opponent holding b would make.
func (b BeliefState) Decide() Outcome {
	if b.PRed() > 0.5 {
		return OutcomeRed
	}
	return OutcomeBlue
}

// Posterior summarises the Beta(Alpha, Beta) distribution over the draw bias.
type Posterior struct {
	Mean   float64
	StdDev float64
	// Level is the probability mass between Lower and Upper.
	Level float64
	Lower float64
	Upper float64
}

// DefaultCredibleLevel is used when callers do not ask for a specific level.
const DefaultCredibleLevel = 0.95

// Posterior returns the mean, spread and central credible interval of the
// belief. level must lie strictly between 0 and 1.
func (b BeliefState) Posterior(level float64) (Posterior, error) {
	if !(level > 0 && level < 1) {
		return Posterior{}, fmt.Errorf("credible level must be within (0, 1), got %v", level)
	}
	dist := distuv.Beta{Alpha: b.Alpha, Beta: b.Beta}
	tail := (1 - level) / 2
	return Posterior{
		Mean:   dist.Mean(),
		StdDev: dist.StdDev(),
		Level:  level,
		Lower:  dist.Quantile(tail),
		Upper:  dist.Quantile(1 - tail),
	}, nil
}

// Opponent guesses the next draw from past draws alone. It never sees the
// configured bias.
type Opponent struct {
	belief BeliefState
}

// NewOpponent returns an opponent holding the prior belief.
func NewOpponent() *Opponent {
	return &Opponent{belief: NewBeliefState()}
}

// Belief returns a copy of the current belief.
func (o *Opponent) Belief() BeliefState {
	return o.belief
}

// Decide guesses Red when the posterior mean for Red is strictly above one
// half. An exact tie guesses Blue.
func (o *Opponent) Decide() Outcome {
	return o.belief.Decide()
}

// Update adds one unit of evidence for the observed draw. It must be called
// once per round, after Decide.
func (o *Opponent) Update(observed Outcome) error {
	switch observed {
	case OutcomeRed:
		o.belief.Alpha++
	case OutcomeBlue:
		o.belief.Beta++
	default:
		return ErrInvalidOutcome
	}
	return nil
}
