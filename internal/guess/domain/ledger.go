package domain

import (
	"slices"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

// RoundRecord is the immutable record of one played round.
type RoundRecord struct {
	HumanGuess     Outcome
	Draw           Outcome
	HumanResult    Result
	OpponentGuess  Outcome
	OpponentResult Result
}

// Validate checks that every field is set and that both results agree with
// their guess and the draw.
func (r RoundRecord) Validate() error {
	if !r.HumanGuess.Valid() || !r.Draw.Valid() || !r.OpponentGuess.Valid() {
		return ErrInvalidOutcome
	}
	if r.HumanResult != Evaluate(r.HumanGuess, r.Draw) {
		return apperrors.New(apperrors.CodeInvalidOutcome, "human result does not match guess and draw")
	}
	if r.OpponentResult != Evaluate(r.OpponentGuess, r.Draw) {
		return apperrors.New(apperrors.CodeInvalidOutcome, "opponent result does not match guess and draw")
	}
	return nil
}

// Ledger is the append-only history of a session together with both running
// net scores and their cumulative histories.
//
// The three sequences always have the same length: Record either appends to
// all of them or to none.
type Ledger struct {
	records         []RoundRecord
	humanScore      int
	opponentScore   int
	humanHistory    []int
	opponentHistory []int
}

// NewLedger returns an empty ledger with both scores at zero.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a validated round and the resulting cumulative scores.
func (l *Ledger) Record(record RoundRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	l.records = append(l.records, record)
	l.humanScore += record.HumanResult.Delta()
	l.opponentScore += record.OpponentResult.Delta()
	l.humanHistory = append(l.humanHistory, l.humanScore)
	l.opponentHistory = append(l.opponentHistory, l.opponentScore)
	return nil
}

// Len is the number of recorded rounds.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of all rounds in play order.
func (l *Ledger) Records() []RoundRecord {
	return slices.Clone(l.records)
}

// Scores returns the current human and opponent net scores.
func (l *Ledger) Scores() (human, opponent int) {
	return l.humanScore, l.opponentScore
}

// ScoreHistories returns copies of the cumulative human and opponent scores
// after each round.
func (l *Ledger) ScoreHistories() (human, opponent []int) {
	return slices.Clone(l.humanHistory), slices.Clone(l.opponentHistory)
}
