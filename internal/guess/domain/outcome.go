package domain

import (
	"strings"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

// Outcome is the colour of a card: what is drawn and what is guessed.
type Outcome int

const (
	OutcomeUnspecified Outcome = iota
	OutcomeRed
	OutcomeBlue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRed:
		return "Red"
	case OutcomeBlue:
		return "Blue"
	default:
		return "Unspecified"
	}
}

// Valid reports whether o is Red or Blue.
func (o Outcome) Valid() bool {
	return o == OutcomeRed || o == OutcomeBlue
}

// ParseOutcome parses "Red"/"Blue" case-insensitively; "r" and "b" are
// accepted as shorthands.
func ParseOutcome(value string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "red", "r":
		return OutcomeRed, nil
	case "blue", "b":
		return OutcomeBlue, nil
	default:
		return OutcomeUnspecified, apperrors.WithMetadata(apperrors.CodeInvalidOutcome, ErrInvalidOutcome.Message, map[string]string{
			"value": value,
		})
	}
}

// Result is the evaluation of a single guess.
type Result int

const (
	ResultUnspecified Result = iota
	ResultCorrect
	ResultWrong
)

func (r Result) String() string {
	switch r {
	case ResultCorrect:
		return "Correct"
	case ResultWrong:
		return "Wrong"
	default:
		return "Unspecified"
	}
}

// Valid reports whether r is Correct or Wrong.
func (r Result) Valid() bool {
	return r == ResultCorrect || r == ResultWrong
}

// Delta is the change applied to a net score: +1 for Correct, -1 for Wrong.
func (r Result) Delta() int {
	switch r {
	case ResultCorrect:
		return 1
	case ResultWrong:
		return -1
	default:
		return 0
	}
}

// ParseResult parses "Correct"/"Wrong" case-insensitively.
func ParseResult(value string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "correct":
		return ResultCorrect, nil
	case "wrong":
		return ResultWrong, nil
	default:
		return ResultUnspecified, apperrors.WithMetadata(apperrors.CodeInvalidOutcome, "result must be Correct or Wrong", map[string]string{
			"value": value,
		})
	}
}
