package domain

import (
	"strconv"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

var (
	// ErrInvalidBias indicates a draw bias outside [0, 1].
	ErrInvalidBias = apperrors.New(apperrors.CodeInvalidBias, "bias must be within [0, 1]")
	// ErrInvalidOutcome indicates a missing or unrecognised outcome or result.
	ErrInvalidOutcome = apperrors.New(apperrors.CodeInvalidOutcome, "outcome must be Red or Blue")
	// ErrRoundInFlight indicates PlayRound was called before the previous
	// round was recorded.
	ErrRoundInFlight = apperrors.New(apperrors.CodeRoundInFlight, "previous round is not recorded")
	// ErrInvalidWindow indicates a smoothing window smaller than one.
	ErrInvalidWindow = apperrors.New(apperrors.CodeInvalidWindow, "smoothing window must be at least 1")
	// ErrCSVMalformed indicates ledger CSV text that cannot be parsed.
	ErrCSVMalformed = apperrors.New(apperrors.CodeCSVMalformed, "ledger csv is malformed")
)

func invalidBias(bias float64) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidBias, ErrInvalidBias.Message, map[string]string{
		"bias": strconv.FormatFloat(bias, 'g', -1, 64),
	})
}

func invalidWindow(window int) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidWindow, ErrInvalidWindow.Message, map[string]string{
		"window": strconv.Itoa(window),
	})
}
