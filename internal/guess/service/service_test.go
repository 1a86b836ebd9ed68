package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/cardguess/internal/guess/domain"
	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
	"github.com/louisbranch/cardguess/internal/random"
	"github.com/louisbranch/cardguess/internal/storage"
)

type fakeArchiver struct {
	mu       sync.Mutex
	archives []storage.SessionArchive
	err      error
}

func (f *fakeArchiver) ArchiveSession(_ context.Context, archive storage.SessionArchive) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.archives = append(f.archives, archive)
	return nil
}

func newTestService(archiver Archiver) *Service {
	svc := New(archiver)
	fixed := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }
	var n int
	var mu sync.Mutex
	svc.idGenerator = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("sess-%d", n), nil
	}
	svc.seedGenerator = func() (int64, error) { return 99, nil }
	return svc
}

func seedPtr(v int64) *int64 { return &v }

func TestStartSeedResolution(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	client, err := svc.Start(ctx, StartRequest{Bias: 0.5, Seed: seedPtr(7)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if client.Seed != 7 || client.SeedSource != random.SeedSourceClient {
		t.Fatalf("client seed = %d/%s", client.Seed, client.SeedSource)
	}
	if client.RngAlgo != random.RngAlgo {
		t.Fatalf("rng algo = %q", client.RngAlgo)
	}

	server, err := svc.Start(ctx, StartRequest{Bias: 0.5})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if server.Seed != 99 || server.SeedSource != random.SeedSourceServer {
		t.Fatalf("server seed = %d/%s", server.Seed, server.SeedSource)
	}
	if client.ID == server.ID {
		t.Fatalf("expected distinct ids, got %q twice", client.ID)
	}
	if svc.Count() != 2 {
		t.Fatalf("count = %d, want 2", svc.Count())
	}
}

func TestStartRejectsInvalidBias(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.Start(context.Background(), StartRequest{Bias: 1.5})
	if apperrors.CodeOf(err) != apperrors.CodeInvalidBias {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeInvalidBias)
	}
	if svc.Count() != 0 {
		t.Fatalf("count = %d, want 0", svc.Count())
	}
}

func TestStartSeedGeneratorFailure(t *testing.T) {
	svc := newTestService(nil)
	svc.seedGenerator = func() (int64, error) { return 0, errors.New("boom") }
	if _, err := svc.Start(context.Background(), StartRequest{Bias: 0.5}); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.PlayRound(ctx, "", domain.OutcomeRed); !errors.Is(err, ErrSessionRequired) {
		t.Fatalf("empty id error = %v", err)
	}
	_, err := svc.PlayRound(ctx, "nope", domain.OutcomeRed)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown id error = %v", err)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["session_id"] != "nope" {
		t.Fatalf("metadata = %+v", appErr)
	}
	if _, err := svc.End(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("end error = %v", err)
	}
}

func TestPlayRoundAlwaysRed(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	info, err := svc.Start(ctx, StartRequest{Bias: 1, Seed: seedPtr(1)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 1; i <= 3; i++ {
		result, err := svc.PlayRound(ctx, info.ID, domain.OutcomeRed)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		if result.Round != i {
			t.Fatalf("round = %d, want %d", result.Round, i)
		}
	}

	scores, err := svc.Scores(ctx, info.ID, 0)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if !slices.Equal(scores.Human, []int{1, 2, 3}) {
		t.Fatalf("human = %v, want [1 2 3]", scores.Human)
	}
	if scores.HumanSmoothed != nil {
		t.Fatalf("expected no smoothing for window 0, got %v", scores.HumanSmoothed)
	}
	if !slices.Equal(scores.HumanAccuracy, []float64{1, 1, 1}) {
		t.Fatalf("human accuracy = %v, want [1 1 1]", scores.HumanAccuracy)
	}
	if want := []float64{0, 0.5, float64(2) / float64(3)}; !slices.Equal(scores.OpponentAccuracy, want) {
		t.Fatalf("opponent accuracy = %v, want %v", scores.OpponentAccuracy, want)
	}

	scores, err = svc.Scores(ctx, info.ID, 2)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if !slices.Equal(scores.HumanSmoothed, []float64{1, 1.5, 2.5}) {
		t.Fatalf("smoothed = %v, want [1 1.5 2.5]", scores.HumanSmoothed)
	}

	belief, posterior, err := svc.Belief(ctx, info.ID, 0)
	if err != nil {
		t.Fatalf("belief: %v", err)
	}
	if belief.Alpha != 3.5 || belief.Beta != 0.5 {
		t.Fatalf("belief = %+v", belief)
	}
	if posterior.Level != domain.DefaultCredibleLevel {
		t.Fatalf("level = %v", posterior.Level)
	}
}

func TestScoresRejectsNegativeWindow(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	info, err := svc.Start(ctx, StartRequest{Bias: 0.5, Seed: seedPtr(1)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Scores(ctx, info.ID, -1); !errors.Is(err, domain.ErrInvalidWindow) {
		t.Fatalf("error = %v, want invalid window", err)
	}
}

func TestConfigure(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	info, err := svc.Start(ctx, StartRequest{Bias: 0.5, Seed: seedPtr(1)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	updated, err := svc.Configure(ctx, info.ID, 0.2)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if updated.Bias != 0.2 {
		t.Fatalf("bias = %v, want 0.2", updated.Bias)
	}
	if _, err := svc.Configure(ctx, info.ID, -1); !errors.Is(err, domain.ErrInvalidBias) {
		t.Fatalf("error = %v, want invalid bias", err)
	}
	current, err := svc.Info(ctx, info.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if current.Bias != 0.2 {
		t.Fatalf("bias after rejected configure = %v, want 0.2", current.Bias)
	}
}

func TestSameSeedSessionsMatch(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	a, err := svc.Start(ctx, StartRequest{Bias: 0.6, Seed: seedPtr(42)})
	if err != nil {
		t.Fatalf("start a: %v", err)
	}
	b, err := svc.Start(ctx, StartRequest{Bias: 0.6, Seed: seedPtr(42)})
	if err != nil {
		t.Fatalf("start b: %v", err)
	}

	guesses := []domain.Outcome{domain.OutcomeRed, domain.OutcomeBlue, domain.OutcomeRed, domain.OutcomeRed}
	for _, g := range guesses {
		if _, err := svc.PlayRound(ctx, a.ID, g); err != nil {
			t.Fatalf("play a: %v", err)
		}
	}
	// Rounds in b must not be affected by rounds played in a.
	for _, g := range guesses {
		if _, err := svc.PlayRound(ctx, b.ID, g); err != nil {
			t.Fatalf("play b: %v", err)
		}
	}

	ledgerA, err := svc.Ledger(ctx, a.ID)
	if err != nil {
		t.Fatalf("ledger a: %v", err)
	}
	ledgerB, err := svc.Ledger(ctx, b.ID)
	if err != nil {
		t.Fatalf("ledger b: %v", err)
	}
	if !slices.Equal(ledgerA, ledgerB) {
		t.Fatalf("ledgers differ:\n%v\n%v", ledgerA, ledgerB)
	}
}

func TestConcurrentSessions(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	const sessions, rounds = 8, 50

	ids := make([]string, sessions)
	for i := range ids {
		info, err := svc.Start(ctx, StartRequest{Bias: 0.5, Seed: seedPtr(int64(i))})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		ids[i] = info.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, sessions*2)
	for _, id := range ids {
		// Two writers per session exercise the per-session lock.
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					if _, err := svc.PlayRound(ctx, id, domain.OutcomeBlue); err != nil {
						errs <- err
						return
					}
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("play: %v", err)
	}

	for _, id := range ids {
		scores, err := svc.Scores(ctx, id, 0)
		if err != nil {
			t.Fatalf("scores: %v", err)
		}
		if len(scores.Human) != 2*rounds || len(scores.Opponent) != 2*rounds {
			t.Fatalf("history lengths = %d/%d, want %d", len(scores.Human), len(scores.Opponent), 2*rounds)
		}
		belief, _, err := svc.Belief(ctx, id, 0)
		if err != nil {
			t.Fatalf("belief: %v", err)
		}
		if belief.Alpha+belief.Beta != float64(2*rounds+1) {
			t.Fatalf("evidence = %v, want %d", belief.Alpha+belief.Beta, 2*rounds+1)
		}
	}
}

func TestExportCSVEmptySession(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	info, err := svc.Start(ctx, StartRequest{Bias: 0.5, Seed: seedPtr(1)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	text, err := svc.ExportCSV(ctx, info.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if text != "human_guess,draw,human_result,opponent_guess,opponent_result\n" {
		t.Fatalf("csv = %q", text)
	}
}

func TestEndArchivesAndRemoves(t *testing.T) {
	archiver := &fakeArchiver{}
	svc := newTestService(archiver)
	ctx := context.Background()
	info, err := svc.Start(ctx, StartRequest{Bias: 1, Seed: seedPtr(3)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.PlayRound(ctx, info.ID, domain.OutcomeRed); err != nil {
			t.Fatalf("play: %v", err)
		}
	}

	summary, err := svc.End(ctx, info.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if summary.Rounds != 2 || summary.Human.NetScore != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(archiver.archives) != 1 {
		t.Fatalf("archives = %d, want 1", len(archiver.archives))
	}
	got := archiver.archives[0]
	if got.SessionID != info.ID || got.Seed != 3 || got.SeedSource != random.SeedSourceClient {
		t.Fatalf("archive = %+v", got)
	}
	if len(got.Rounds) != 2 || got.Bias != 1 {
		t.Fatalf("archive rounds = %d bias = %v", len(got.Rounds), got.Bias)
	}
	if _, err := svc.Ledger(ctx, info.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("ledger after end error = %v", err)
	}
	if svc.Count() != 0 {
		t.Fatalf("count = %d, want 0", svc.Count())
	}
}

func TestEndKeepsSessionWhenArchiveFails(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("disk full")}
	svc := newTestService(archiver)
	ctx := context.Background()
	info, err := svc.Start(ctx, StartRequest{Bias: 0.5, Seed: seedPtr(3)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.End(ctx, info.ID); err == nil {
		t.Fatal("expected archive error")
	}
	if _, err := svc.Info(ctx, info.ID); err != nil {
		t.Fatalf("session should stay live: %v", err)
	}

	archiver.err = nil
	if _, err := svc.End(ctx, info.ID); err != nil {
		t.Fatalf("retry end: %v", err)
	}
}
