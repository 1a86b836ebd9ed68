package domain

import (
	"fmt"

	"github.com/louisbranch/cardguess/internal/core/draw"
)

// Phase is the position of the current round in its lifecycle. Rounds move
// forward only: Idle, Drawn, Evaluated, Recorded.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDrawn
	PhaseEvaluated
	PhaseRecorded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseDrawn:
		return "Drawn"
	case PhaseEvaluated:
		return "Evaluated"
	case PhaseRecorded:
		return "Recorded"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// acceptsRound reports whether a new round may start from p.
func (p Phase) acceptsRound() bool {
	return p == PhaseIdle || p == PhaseRecorded
}

// RoundResult is what PlayRound hands back to the presentation layer.
type RoundResult struct {
	// Round is the 1-based number of the round just played.
	Round         int
	Record        RoundRecord
	HumanScore    int
	OpponentScore int
	// Belief is the opponent's belief after observing this round's draw.
	Belief BeliefState
}

// DefaultBias is the draw bias of a session nobody has configured.
const DefaultBias = 0.5

// Session owns all per-player state: the draw bias, the random source, the
// opponent's belief and the ledger. Sessions share nothing with each other.
type Session struct {
	bias     float64
	source   draw.Source
	opponent *Opponent
	ledger   *Ledger
	phase    Phase
}

// NewSession starts a session drawing with bias from source. Seed source
// with a fixed value to make the session reproducible.
func NewSession(bias float64, source draw.Source) (*Session, error) {
	if source == nil {
		return nil, draw.ErrMissingSource
	}
	if !draw.ValidProbability(bias) {
		return nil, invalidBias(bias)
	}
	return &Session{
		bias:     bias,
		source:   source,
		opponent: NewOpponent(),
		ledger:   NewLedger(),
		phase:    PhaseIdle,
	}, nil
}

// Configure changes the bias used by subsequent draws. An invalid bias is
// rejected and the previous bias stays in effect.
func (s *Session) Configure(bias float64) error {
	if !draw.ValidProbability(bias) {
		return invalidBias(bias)
	}
	s.bias = bias
	return nil
}

// Bias returns the bias used by the next draw.
func (s *Session) Bias() float64 {
	return s.bias
}

// Phase returns the lifecycle phase of the latest round.
func (s *Session) Phase() Phase {
	return s.phase
}

// PlayRound runs one complete round for the human's guess: draw, opponent
// decision, opponent update, evaluation of both guesses and recording.
//
// A round can only start once the previous one is Recorded; otherwise
// ErrRoundInFlight is returned, or the call panics in binaries built with
// the debug tag.
func (s *Session) PlayRound(guess Outcome) (RoundResult, error) {
	if !guess.Valid() {
		return RoundResult{}, ErrInvalidOutcome
	}
	if !s.phase.acceptsRound() {
		return RoundResult{}, sequenceError(s.phase)
	}
	start := s.phase

	drawn, err := Draw(s.source, s.bias)
	if err != nil {
		return RoundResult{}, err
	}
	s.phase = PhaseDrawn

	opponentGuess := s.opponent.Decide()
	record := RoundRecord{
		HumanGuess:     guess,
		Draw:           drawn,
		HumanResult:    Evaluate(guess, drawn),
		OpponentGuess:  opponentGuess,
		OpponentResult: Evaluate(opponentGuess, drawn),
	}
	s.phase = PhaseEvaluated

	if err := s.commit(record); err != nil {
		s.phase = start
		return RoundResult{}, err
	}
	s.phase = PhaseRecorded

	human, opponent := s.ledger.Scores()
	return RoundResult{
		Round:         s.ledger.Len(),
		Record:        record,
		HumanScore:    human,
		OpponentScore: opponent,
		Belief:        s.opponent.Belief(),
	}, nil
}

// commit feeds the draw to the opponent and appends the record. The record
// is validated first so a rejected record leaves belief and ledger as they
// were.
func (s *Session) commit(record RoundRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := s.opponent.Update(record.Draw); err != nil {
		return err
	}
	return s.ledger.Record(record)
}

// Rounds is the number of recorded rounds.
func (s *Session) Rounds() int {
	return s.ledger.Len()
}

// Ledger returns a snapshot of all recorded rounds.
func (s *Session) Ledger() []RoundRecord {
	return s.ledger.Records()
}

// Scores returns the current human and opponent net scores.
func (s *Session) Scores() (human, opponent int) {
	return s.ledger.Scores()
}

// ScoreHistories returns snapshots of both cumulative score histories.
func (s *Session) ScoreHistories() (human, opponent []int) {
	return s.ledger.ScoreHistories()
}

// Belief returns the opponent's current belief.
func (s *Session) Belief() BeliefState {
	return s.opponent.Belief()
}

// ExportCSV renders the ledger as CSV text.
func (s *Session) ExportCSV() (string, error) {
	return ExportCSV(s.ledger.records)
}

// Summary aggregates the ledger.
func (s *Session) Summary() Summary {
	return Summarize(s.ledger.records)
}
