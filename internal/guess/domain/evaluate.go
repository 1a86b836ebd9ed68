package domain

import (
	"errors"

	"github.com/louisbranch/cardguess/internal/core/draw"
)

// Evaluate compares a guess against the drawn outcome.
func Evaluate(guess, drawn Outcome) Result {
	if guess == drawn {
		return ResultCorrect
	}
	return ResultWrong
}

// Draw produces Red with probability bias and Blue otherwise, taking one
// sample from src.
func Draw(src draw.Source, bias float64) (Outcome, error) {
	red, err := draw.Bernoulli(src, bias)
	if err != nil {
		if errors.Is(err, draw.ErrInvalidProbability) {
			return OutcomeUnspecified, invalidBias(bias)
		}
		return OutcomeUnspecified, err
	}
	if red {
		return OutcomeRed, nil
	}
	return OutcomeBlue, nil
}
