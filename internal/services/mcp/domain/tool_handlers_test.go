package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/louisbranch/cardguess/internal/guess/service"
	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
	"github.com/louisbranch/cardguess/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextHolder struct {
	ctx Context
}

func (h *contextHolder) get(*mcp.CallToolRequest) Context      { return h.ctx }
func (h *contextHolder) set(_ *mcp.CallToolRequest, c Context) { h.ctx = c }

func float(v float64) *float64 { return &v }
func seed(v int64) *int64      { return &v }

func startSession(t *testing.T, svc GameService, holder *contextHolder, bias float64) SessionResult {
	t.Helper()
	_, result, err := SessionStartHandler(svc, holder.set)(context.Background(), nil, SessionStartInput{
		Bias: float(bias),
		Seed: seed(11),
	})
	if err != nil {
		t.Fatalf("session start: %v", err)
	}
	return result
}

func TestSessionStartHandler(t *testing.T) {
	t.Run("sets context and reports seed", func(t *testing.T) {
		holder := &contextHolder{}
		result := startSession(t, service.New(nil), holder, 0.3)
		if result.SessionID == "" {
			t.Fatal("expected session id")
		}
		if holder.ctx.SessionID != result.SessionID {
			t.Fatalf("context session = %q, want %q", holder.ctx.SessionID, result.SessionID)
		}
		if result.Seed != 11 || result.SeedSource != "CLIENT" {
			t.Fatalf("seed = %d/%s", result.Seed, result.SeedSource)
		}
		if result.Bias != 0.3 {
			t.Fatalf("bias = %v, want 0.3", result.Bias)
		}
		if _, err := time.Parse(time.RFC3339, result.StartedAt); err != nil {
			t.Fatalf("started_at %q: %v", result.StartedAt, err)
		}
	})

	t.Run("default bias", func(t *testing.T) {
		_, result, err := SessionStartHandler(service.New(nil), nil)(context.Background(), nil, SessionStartInput{})
		if err != nil {
			t.Fatalf("session start: %v", err)
		}
		if result.Bias != guessdomain.DefaultBias {
			t.Fatalf("bias = %v, want %v", result.Bias, guessdomain.DefaultBias)
		}
		if result.SeedSource != "SERVER" {
			t.Fatalf("seed source = %q, want SERVER", result.SeedSource)
		}
	})

	t.Run("invalid bias", func(t *testing.T) {
		_, _, err := SessionStartHandler(service.New(nil), nil)(context.Background(), nil, SessionStartInput{Bias: float(2)})
		if !errors.Is(err, guessdomain.ErrInvalidBias) {
			t.Fatalf("error = %v, want invalid bias", err)
		}
		if !strings.Contains(err.Error(), "[INVALID_BIAS]") {
			t.Fatalf("error %q missing code", err)
		}
	})
}

func TestRoundPlayHandler(t *testing.T) {
	svc := service.New(nil)
	holder := &contextHolder{}
	startSession(t, svc, holder, 1)
	handler := RoundPlayHandler(svc, holder.get)

	_, first, err := handler(context.Background(), nil, RoundPlayInput{Guess: "red"})
	if err != nil {
		t.Fatalf("round play: %v", err)
	}
	if first.Record.Round != 1 || first.Record.Draw != "Red" || first.Record.HumanResult != "Correct" {
		t.Fatalf("first round = %+v", first.Record)
	}
	// A fresh opponent ties and guesses Blue.
	if first.Record.OpponentGuess != "Blue" || first.OpponentScore != -1 {
		t.Fatalf("opponent = %s score %d", first.Record.OpponentGuess, first.OpponentScore)
	}
	if first.Belief.Alpha != 1.5 || first.Belief.Beta != 0.5 {
		t.Fatalf("belief = %+v", first.Belief)
	}

	_, second, err := handler(context.Background(), nil, RoundPlayInput{Guess: "b"})
	if err != nil {
		t.Fatalf("round play: %v", err)
	}
	if second.HumanScore != 0 || second.OpponentScore != 0 {
		t.Fatalf("scores = %d/%d, want 0/0", second.HumanScore, second.OpponentScore)
	}

	if _, _, err := handler(context.Background(), nil, RoundPlayInput{Guess: "green"}); apperrors.CodeOf(err) != apperrors.CodeInvalidOutcome {
		t.Fatalf("invalid guess code = %s", apperrors.CodeOf(err))
	}
}

func TestHandlersRequireSession(t *testing.T) {
	svc := service.New(nil)
	holder := &contextHolder{}
	ctx := context.Background()

	if _, _, err := RoundPlayHandler(svc, holder.get)(ctx, nil, RoundPlayInput{Guess: "Red"}); !errors.Is(err, service.ErrSessionRequired) {
		t.Fatalf("round play error = %v", err)
	}
	if _, _, err := LedgerGetHandler(svc, holder.get)(ctx, nil, LedgerGetInput{SessionID: "missing"}); !errors.Is(err, service.ErrSessionNotFound) {
		t.Fatalf("ledger get error = %v", err)
	}
	if _, _, err := SessionEndHandler(svc, nil, nil)(ctx, nil, SessionEndInput{}); !errors.Is(err, service.ErrSessionRequired) {
		t.Fatalf("session end error = %v", err)
	}
}

func TestLedgerScoresBeliefAndExport(t *testing.T) {
	svc := service.New(nil)
	holder := &contextHolder{}
	ctx := context.Background()
	startSession(t, svc, holder, 1)
	for i := 0; i < 4; i++ {
		if _, _, err := RoundPlayHandler(svc, holder.get)(ctx, nil, RoundPlayInput{Guess: "Red"}); err != nil {
			t.Fatalf("round play: %v", err)
		}
	}

	_, ledger, err := LedgerGetHandler(svc, holder.get)(ctx, nil, LedgerGetInput{})
	if err != nil {
		t.Fatalf("ledger get: %v", err)
	}
	if len(ledger.Rounds) != 4 || ledger.Rounds[3].Round != 4 {
		t.Fatalf("ledger = %+v", ledger.Rounds)
	}

	_, scores, err := ScoresGetHandler(svc, holder.get)(ctx, nil, ScoresGetInput{Window: 2})
	if err != nil {
		t.Fatalf("scores get: %v", err)
	}
	wantHuman := []int{1, 2, 3, 4}
	for i, v := range wantHuman {
		if scores.Human[i] != v {
			t.Fatalf("human = %v, want %v", scores.Human, wantHuman)
		}
	}
	if scores.HumanSmoothed[3] != 3.5 {
		t.Fatalf("smoothed = %v", scores.HumanSmoothed)
	}
	if len(scores.HumanAccuracy) != 4 || scores.HumanAccuracy[3] != 1 {
		t.Fatalf("human accuracy = %v", scores.HumanAccuracy)
	}
	if len(scores.OpponentAccuracy) != 4 || scores.OpponentAccuracy[0] != 0 || scores.OpponentAccuracy[3] != 0.75 {
		t.Fatalf("opponent accuracy = %v", scores.OpponentAccuracy)
	}
	if _, _, err := ScoresGetHandler(svc, holder.get)(ctx, nil, ScoresGetInput{Window: -2}); apperrors.CodeOf(err) != apperrors.CodeInvalidWindow {
		t.Fatalf("window code = %s", apperrors.CodeOf(err))
	}

	_, belief, err := BeliefGetHandler(svc, holder.get)(ctx, nil, BeliefGetInput{Level: 0.9})
	if err != nil {
		t.Fatalf("belief get: %v", err)
	}
	if belief.NextGuess != "Red" || belief.Level != 0.9 {
		t.Fatalf("belief = %+v", belief)
	}
	if !(belief.Lower < belief.Mean && belief.Mean < belief.Upper) {
		t.Fatalf("interval [%v, %v] does not contain mean %v", belief.Lower, belief.Upper, belief.Mean)
	}

	_, export, err := LedgerExportCSVHandler(svc, holder.get)(ctx, nil, LedgerExportCSVInput{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := guessdomain.ParseCSV(export.CSV)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("csv rounds = %d, want 4", len(records))
	}
}

func TestSessionConfigureAndEnd(t *testing.T) {
	svc := service.New(nil)
	holder := &contextHolder{}
	ctx := context.Background()
	started := startSession(t, svc, holder, 0.5)

	_, configured, err := SessionConfigureHandler(svc, holder.get)(ctx, nil, SessionConfigureInput{Bias: 0.9})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if configured.Bias != 0.9 || configured.SessionID != started.SessionID {
		t.Fatalf("configured = %+v", configured)
	}
	if _, _, err := SessionConfigureHandler(svc, holder.get)(ctx, nil, SessionConfigureInput{Bias: -0.5}); !errors.Is(err, guessdomain.ErrInvalidBias) {
		t.Fatalf("configure error = %v", err)
	}

	_, ended, err := SessionEndHandler(svc, holder.get, holder.set)(ctx, nil, SessionEndInput{})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.SessionID != started.SessionID || ended.Rounds != 0 {
		t.Fatalf("ended = %+v", ended)
	}
	if holder.ctx.SessionID != "" {
		t.Fatalf("context not cleared: %+v", holder.ctx)
	}
}

type fakeArchive struct {
	sessions   []storage.SessionSummary
	rounds     []storage.ArchivedRound
	lastFilter string
	err        error
}

func (f *fakeArchive) ListSessions(context.Context) ([]storage.SessionSummary, error) {
	return f.sessions, f.err
}

func (f *fakeArchive) GetSession(_ context.Context, sessionID string) (storage.SessionSummary, error) {
	if f.err != nil {
		return storage.SessionSummary{}, f.err
	}
	for _, s := range f.sessions {
		if s.SessionID == sessionID {
			return s, nil
		}
	}
	return storage.SessionSummary{}, storage.ErrNotFound
}

func (f *fakeArchive) ListRounds(_ context.Context, _ string, filter string) ([]storage.ArchivedRound, error) {
	f.lastFilter = filter
	return f.rounds, f.err
}

func TestArchiveHandlers(t *testing.T) {
	ended := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	archive := &fakeArchive{
		sessions: []storage.SessionSummary{{
			SessionID:  "s1",
			SeedSource: "SERVER",
			Bias:       0.7,
			Belief:     guessdomain.BeliefState{Alpha: 1.5, Beta: 0.5},
			RoundCount: 1,
			HumanScore: 1,
			StartedAt:  ended.Add(-time.Minute),
			EndedAt:    ended,
		}},
		rounds: []storage.ArchivedRound{{
			Round: 1,
			Record: guessdomain.RoundRecord{
				HumanGuess:     guessdomain.OutcomeRed,
				Draw:           guessdomain.OutcomeRed,
				HumanResult:    guessdomain.ResultCorrect,
				OpponentGuess:  guessdomain.OutcomeBlue,
				OpponentResult: guessdomain.ResultWrong,
			},
			HumanScore:    1,
			OpponentScore: -1,
		}},
	}
	ctx := context.Background()

	_, sessions, err := ArchiveSessionsListHandler(archive)(ctx, nil, ArchiveSessionsListInput{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions.Sessions) != 1 || sessions.Sessions[0].EndedAt != "2026-04-02T09:30:00Z" {
		t.Fatalf("sessions = %+v", sessions.Sessions)
	}

	_, rounds, err := ArchiveRoundsListHandler(archive)(ctx, nil, ArchiveRoundsListInput{SessionID: "s1", Filter: `draw = "Red"`})
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if archive.lastFilter != `draw = "Red"` {
		t.Fatalf("filter = %q", archive.lastFilter)
	}
	if len(rounds.Rounds) != 1 || rounds.Rounds[0].Record.OpponentResult != "Wrong" || rounds.Rounds[0].OpponentScore != -1 {
		t.Fatalf("rounds = %+v", rounds.Rounds)
	}

	if _, _, err := ArchiveRoundsListHandler(archive)(ctx, nil, ArchiveRoundsListInput{}); !errors.Is(err, service.ErrSessionRequired) {
		t.Fatalf("missing session error = %v", err)
	}
	archive.err = errors.New("db closed")
	if _, _, err := ArchiveSessionsListHandler(archive)(ctx, nil, ArchiveSessionsListInput{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestArchiveSessionGetHandler(t *testing.T) {
	ended := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	archive := &fakeArchive{sessions: []storage.SessionSummary{{
		SessionID:     "s1",
		Seed:          42,
		SeedSource:    "CLIENT",
		Bias:          0.25,
		Belief:        guessdomain.BeliefState{Alpha: 1, Beta: 3},
		RoundCount:    2,
		HumanScore:    2,
		OpponentScore: 0,
		StartedAt:     ended.Add(-time.Minute),
		EndedAt:       ended,
	}}}
	handler := ArchiveSessionGetHandler(archive)

	_, got, err := handler(context.Background(), nil, ArchiveSessionGetInput{SessionID: "s1"})
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Session.SessionID != "s1" || got.Session.Seed != 42 || got.Session.Rounds != 2 {
		t.Fatalf("session = %+v", got.Session)
	}
	if got.Session.StartedAt != "2026-04-02T09:29:00Z" || got.Session.Belief.Beta != 3 {
		t.Fatalf("session = %+v", got.Session)
	}

	tests := []struct {
		name      string
		sessionID string
		want      apperrors.Code
	}{
		{name: "missing id", sessionID: "", want: apperrors.CodeSessionRequired},
		{name: "unknown id", sessionID: "s2", want: apperrors.CodeSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := handler(context.Background(), nil, ArchiveSessionGetInput{SessionID: tt.sessionID})
			if apperrors.CodeOf(err) != tt.want {
				t.Fatalf("code = %s, want %s (err %v)", apperrors.CodeOf(err), tt.want, err)
			}
		})
	}
}
