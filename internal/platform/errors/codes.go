// Package errors provides structured domain errors with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeInvalidBias Code = "INVALID_BIAS"

	// Round errors
	CodeInvalidOutcome Code = "INVALID_OUTCOME"
	CodeRoundInFlight  Code = "ROUND_IN_FLIGHT"

	// Analytics errors
	CodeInvalidWindow Code = "INVALID_WINDOW"

	// Ledger export errors
	CodeCSVMalformed Code = "CSV_MALFORMED"

	// Session errors
	CodeSessionRequired Code = "SESSION_REQUIRED"
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Scripted player errors
	CodeStrategyFailed Code = "STRATEGY_FAILED"
)

// Invalid reports whether the code describes a caller mistake rather than an
// internal failure.
func (c Code) Invalid() bool {
	switch c {
	case CodeInvalidBias, CodeInvalidOutcome, CodeInvalidWindow, CodeCSVMalformed, CodeSessionRequired:
		return true
	default:
		return false
	}
}
