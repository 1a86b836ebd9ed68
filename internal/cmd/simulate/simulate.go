// Package simulate plays scripted sessions against the Bayesian opponent.
package simulate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/louisbranch/cardguess/internal/guess/service"
	"github.com/louisbranch/cardguess/internal/platform/config"
	"github.com/louisbranch/cardguess/internal/platform/otel"
	"github.com/louisbranch/cardguess/internal/random"
	"github.com/louisbranch/cardguess/internal/storage/sqlite"
	"github.com/louisbranch/cardguess/internal/strategy"
)

// Config holds simulate command configuration.
type Config struct {
	Rounds      int     `env:"SIM_ROUNDS"   envDefault:"100"`
	Bias        float64 `env:"BIAS"         envDefault:"0.5"`
	Seed        string  `env:"SEED"`
	Strategy    string  `env:"SIM_STRATEGY" envDefault:"always-red"`
	Script      string  `env:"SIM_SCRIPT"`
	CSVPath     string  `env:"SIM_CSV"`
	ArchivePath string  `env:"ARCHIVE_PATH"`
	Verbose     bool    `env:"SIM_VERBOSE"`
	otel.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, environ []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvFrom(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "number of rounds to play")
	fs.Float64Var(&cfg.Bias, "bias", cfg.Bias, "probability that a draw is Red")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "seed for a reproducible run (random when empty)")
	fs.StringVar(&cfg.Strategy, "strategy", cfg.Strategy,
		"built-in strategy for the human side: "+strings.Join(strategy.BuiltinNames(), ", "))
	fs.StringVar(&cfg.Script, "script", cfg.Script, "path to a lua strategy defining guess(round, history)")
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "write the ledger as CSV to this path")
	fs.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "SQLite file that receives the session")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log every round")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Rounds < 0 {
		return Config{}, fmt.Errorf("rounds must not be negative, got %d", cfg.Rounds)
	}
	return cfg, nil
}

// Run executes the simulation, writing the summary to out and per-round
// logs to errOut when verbose.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	shutdown, err := otel.Setup(ctx, "simulate", cfg.Config)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	player, name, err := loadStrategy(cfg)
	if err != nil {
		return err
	}

	seed, err := random.ParseSeed(cfg.Seed)
	if err != nil {
		return err
	}

	var archiver service.Archiver
	if cfg.ArchivePath != "" {
		store, err := sqlite.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
		archiver = store
	}

	svc := service.New(archiver)
	info, err := svc.Start(ctx, service.StartRequest{Bias: cfg.Bias, Seed: seed})
	if err != nil {
		return err
	}

	logger := log.New(errOut, "", 0)
	history := make([]guessdomain.RoundRecord, 0, cfg.Rounds)
	for round := 1; round <= cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		guess, err := player.Guess(round, history)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		result, err := svc.PlayRound(ctx, info.ID, guess)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		history = append(history, result.Record)
		if cfg.Verbose {
			r := result.Record
			logger.Printf("round=%d draw=%s human=%s/%s opponent=%s/%s scores=%d/%d",
				round, r.Draw, r.HumanGuess, r.HumanResult, r.OpponentGuess, r.OpponentResult,
				result.HumanScore, result.OpponentScore)
		}
	}

	if cfg.CSVPath != "" {
		text, err := svc.ExportCSV(ctx, info.ID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.CSVPath, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}

	summary, err := svc.End(ctx, info.ID)
	if err != nil {
		return err
	}
	writeSummary(out, name, info, summary)
	return nil
}

// loadStrategy prefers a script over the named built-in.
func loadStrategy(cfg Config) (strategy.Strategy, string, error) {
	if cfg.Script != "" {
		script, err := strategy.LoadScriptFile(cfg.Script)
		if err != nil {
			return nil, "", err
		}
		return script, script.Name(), nil
	}
	if cfg.Strategy == "" {
		return nil, "", errors.New("a strategy or script is required")
	}
	player, err := strategy.Builtin(cfg.Strategy)
	if err != nil {
		return nil, "", err
	}
	return player, cfg.Strategy, nil
}

func writeSummary(out io.Writer, name string, info service.SessionInfo, s guessdomain.Summary) {
	fmt.Fprintf(out, "strategy:  %s\n", name)
	fmt.Fprintf(out, "seed:      %d (%s)\n", info.Seed, info.SeedSource)
	fmt.Fprintf(out, "bias:      %.3f\n", info.Bias)
	fmt.Fprintf(out, "rounds:    %d\n", s.Rounds)
	fmt.Fprintf(out, "red draws: %d (%.3f)\n", s.RedDraws, s.RedFrequency)
	fmt.Fprintf(out, "human:     %d correct, %d wrong, net %d, accuracy %.3f\n",
		s.Human.Correct, s.Human.Wrong, s.Human.NetScore, s.Human.Accuracy)
	fmt.Fprintf(out, "opponent:  %d correct, %d wrong, net %d, accuracy %.3f\n",
		s.Opponent.Correct, s.Opponent.Wrong, s.Opponent.NetScore, s.Opponent.Accuracy)
}
