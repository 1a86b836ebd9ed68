// Package draw produces biased binary draws from an injected random source.
package draw

import (
	"errors"
	"math"
)

var (
	// ErrInvalidProbability indicates a probability outside [0, 1] or NaN.
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	// ErrMissingSource indicates that no random source was supplied.
	ErrMissingSource = errors.New("random source is required")
)

// Source supplies uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// ValidProbability reports whether p can be used as a Bernoulli parameter.
func ValidProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// Bernoulli performs one Bernoulli trial with success probability p.
//
// # Sampling
//
// Exactly one uniform sample u is taken from src and the trial succeeds when
// u < p. A probability of 0 therefore never succeeds and a probability of 1
// always does.
//
// # Errors
//
// An invalid p returns ErrInvalidProbability without consuming a sample, so
// rejected calls never shift a seeded sequence.
func Bernoulli(src Source, p float64) (bool, error) {
	if !ValidProbability(p) {
		return false, ErrInvalidProbability
	}
	if src == nil {
		return false, ErrMissingSource
	}
	return src.Float64() < p, nil
}
