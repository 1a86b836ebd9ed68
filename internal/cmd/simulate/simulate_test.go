package simulate

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
	"github.com/louisbranch/cardguess/internal/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Rounds != 100 {
		t.Fatalf("expected 100 rounds, got %d", cfg.Rounds)
	}
	if cfg.Bias != guessdomain.DefaultBias {
		t.Fatalf("expected default bias, got %v", cfg.Bias)
	}
	if cfg.Strategy != "always-red" {
		t.Fatalf("expected always-red strategy, got %q", cfg.Strategy)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	environ := []string{"CARDGUESS_SIM_ROUNDS=5", "CARDGUESS_SIM_STRATEGY=alternate", "CARDGUESS_SIM_VERBOSE=true"}
	cfg, err := ParseConfig(fs, []string{"-rounds", "12", "-script", "bot.lua"}, environ)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Rounds != 12 {
		t.Fatalf("expected flag rounds, got %d", cfg.Rounds)
	}
	if cfg.Strategy != "alternate" || !cfg.Verbose {
		t.Fatalf("expected env strategy and verbose, got %q %v", cfg.Strategy, cfg.Verbose)
	}
	if cfg.Script != "bot.lua" {
		t.Fatalf("expected script flag, got %q", cfg.Script)
	}
}

func TestParseConfigRejectsNegativeRounds(t *testing.T) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{"-rounds", "-1"}, nil); err == nil {
		t.Fatal("expected error for negative rounds")
	}
}

func TestRunBuiltinStrategy(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ledger.csv")
	cfg := Config{Rounds: 3, Bias: 1, Seed: "11", Strategy: "always-red", CSVPath: csvPath}

	var out strings.Builder
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{
		"strategy:  always-red",
		"seed:      11 (CLIENT)",
		"rounds:    3",
		"human:     3 correct, 0 wrong, net 3",
		"opponent:  2 correct, 1 wrong, net 1",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected summary to contain %q, got:\n%s", want, out.String())
		}
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	records, err := guessdomain.ParseCSV(string(data))
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(records))
	}
}

func TestRunScriptStrategy(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "copycat.lua")
	source := `
function guess(round, history)
  if #history == 0 then
    return "Blue"
  end
  return history[#history].draw
end
`
	if err := os.WriteFile(script, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	archive := filepath.Join(dir, "archive.db")
	cfg := Config{Rounds: 4, Bias: 0, Seed: "2", Script: script, ArchivePath: archive, Verbose: true}

	var out, logs strings.Builder
	if err := Run(context.Background(), cfg, &out, &logs); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "strategy:  copycat") {
		t.Fatalf("expected script name in summary, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "human:     4 correct, 0 wrong") {
		t.Fatalf("expected copycat to follow blue draws, got:\n%s", out.String())
	}
	if got := strings.Count(logs.String(), "round="); got != 4 {
		t.Fatalf("expected 4 round logs, got %d:\n%s", got, logs.String())
	}

	store, err := sqlite.Open(archive)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer store.Close()
	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].RoundCount != 4 {
		t.Fatalf("expected one archived session with 4 rounds, got %+v", sessions)
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	err := Run(context.Background(), Config{Rounds: 1, Bias: 0.5, Strategy: "psychic"}, nil, nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeStrategyFailed, "")) {
		t.Fatalf("expected strategy error, got %v", err)
	}
}

func TestRunInvalidBias(t *testing.T) {
	err := Run(context.Background(), Config{Rounds: 1, Bias: 1.5, Strategy: "always-blue"}, nil, nil)
	if !errors.Is(err, guessdomain.ErrInvalidBias) {
		t.Fatalf("expected invalid bias, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, Config{Rounds: 5, Bias: 0.5, Strategy: "alternate"}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
