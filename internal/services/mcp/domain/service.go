package domain

import (
	"context"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/louisbranch/cardguess/internal/guess/service"
	"github.com/louisbranch/cardguess/internal/storage"
)

// GameService is the session API the tools call.
type GameService interface {
	Start(ctx context.Context, req service.StartRequest) (service.SessionInfo, error)
	Configure(ctx context.Context, sessionID string, bias float64) (service.SessionInfo, error)
	PlayRound(ctx context.Context, sessionID string, guess guessdomain.Outcome) (guessdomain.RoundResult, error)
	Ledger(ctx context.Context, sessionID string) ([]guessdomain.RoundRecord, error)
	Scores(ctx context.Context, sessionID string, window int) (service.Scores, error)
	Belief(ctx context.Context, sessionID string, level float64) (guessdomain.BeliefState, guessdomain.Posterior, error)
	ExportCSV(ctx context.Context, sessionID string) (string, error)
	End(ctx context.Context, sessionID string) (guessdomain.Summary, error)
}

// ArchiveReader reads archived sessions.
type ArchiveReader interface {
	ListSessions(ctx context.Context) ([]storage.SessionSummary, error)
	GetSession(ctx context.Context, sessionID string) (storage.SessionSummary, error)
	ListRounds(ctx context.Context, sessionID string, filter string) ([]storage.ArchivedRound, error)
}

var _ GameService = (*service.Service)(nil)

// RoundEntry is one ledger row.
type RoundEntry struct {
	Round          int    `json:"round" jsonschema:"1-based round number"`
	HumanGuess     string `json:"human_guess" jsonschema:"human guess (Red, Blue)"`
	Draw           string `json:"draw" jsonschema:"drawn outcome (Red, Blue)"`
	HumanResult    string `json:"human_result" jsonschema:"human result (Correct, Wrong)"`
	OpponentGuess  string `json:"opponent_guess" jsonschema:"opponent guess (Red, Blue)"`
	OpponentResult string `json:"opponent_result" jsonschema:"opponent result (Correct, Wrong)"`
}

func roundEntry(round int, r guessdomain.RoundRecord) RoundEntry {
	return RoundEntry{
		Round:          round,
		HumanGuess:     r.HumanGuess.String(),
		Draw:           r.Draw.String(),
		HumanResult:    r.HumanResult.String(),
		OpponentGuess:  r.OpponentGuess.String(),
		OpponentResult: r.OpponentResult.String(),
	}
}

// BeliefResult is the opponent's Beta pseudo-counts.
type BeliefResult struct {
	Alpha float64 `json:"alpha" jsonschema:"pseudo-count for Red"`
	Beta  float64 `json:"beta" jsonschema:"pseudo-count for Blue"`
	PRed  float64 `json:"p_red" jsonschema:"posterior mean probability of Red"`
}

func beliefResult(b guessdomain.BeliefState) BeliefResult {
	return BeliefResult{Alpha: b.Alpha, Beta: b.Beta, PRed: b.PRed()}
}
