package domain

import apperrors "github.com/louisbranch/cardguess/internal/platform/errors"

// sequenceError reports a round started before the previous one finished.
// That is a caller bug, so debug builds stop immediately.
func sequenceError(phase Phase) error {
	err := apperrors.WithMetadata(apperrors.CodeRoundInFlight, ErrRoundInFlight.Message, map[string]string{
		"phase": phase.String(),
	})
	if panicOnSequenceError {
		panic(err)
	}
	return err
}
