// Package play runs an interactive Red/Blue guessing session in a terminal.
package play

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/louisbranch/cardguess/internal/guess/service"
	"github.com/louisbranch/cardguess/internal/platform/config"
	errori18n "github.com/louisbranch/cardguess/internal/platform/errors/i18n"
	"github.com/louisbranch/cardguess/internal/platform/i18n/catalog"
	"github.com/louisbranch/cardguess/internal/platform/otel"
	"github.com/louisbranch/cardguess/internal/random"
	"github.com/louisbranch/cardguess/internal/storage/sqlite"
	"golang.org/x/text/message"
)

// Config holds play command configuration.
type Config struct {
	Bias        float64 `env:"BIAS"             envDefault:"0.5"`
	Seed        string  `env:"SEED"`
	Window      int     `env:"SMOOTHING_WINDOW" envDefault:"1"`
	ArchivePath string  `env:"ARCHIVE_PATH"`
	Locale      string  `env:"LOCALE"           envDefault:"en-US"`
	otel.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, environ []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvFrom(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.Float64Var(&cfg.Bias, "bias", cfg.Bias, "probability that a draw is Red")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "seed for a reproducible session (random when empty)")
	fs.IntVar(&cfg.Window, "window", cfg.Window, "chart smoothing window (1 turns smoothing off)")
	fs.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "SQLite file that receives the session when it ends")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "message locale, e.g. en-US or pt-BR")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Window < 1 {
		return Config{}, fmt.Errorf("window must be at least 1, got %d", cfg.Window)
	}
	return cfg, nil
}

// Run plays one session, reading commands from in and writing to out until
// quit, end of input or cancellation.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	shutdown, err := otel.Setup(ctx, "play", cfg.Config)
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

	bundle, err := catalog.LoadEmbedded()
	if err != nil {
		return err
	}
	if err := bundle.Register(); err != nil {
		return err
	}
	errs := errori18n.FromBundle(bundle, cfg.Locale)
	if !bundle.HasLocale(cfg.Locale) {
		log.Printf("locale %q not available, using %s", cfg.Locale, errs.Locale())
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

	g := &game{
		svc:       svc,
		sessionID: info.ID,
		window:    cfg.Window,
		p:         bundle.Printer(cfg.Locale),
		errs:      errs,
		out:       out,
	}
	g.println("play.welcome")
	g.println("play.help")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		quit, err := g.handle(ctx, scanner.Text())
		if err != nil {
			g.println("play.error", g.errs.Localize(err))
		}
		if quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return g.finish(ctx, archiver != nil)
}

type game struct {
	svc       *service.Service
	sessionID string
	window    int
	p         *message.Printer
	errs      *errori18n.Catalog
	out       io.Writer
}

func (g *game) println(key string, args ...any) {
	fmt.Fprintln(g.out, g.p.Sprintf(key, args...))
}

func (g *game) outcome(o guessdomain.Outcome) string {
	return g.p.Sprintf("outcome." + o.String())
}

func (g *game) result(r guessdomain.Result) string {
	return g.p.Sprintf("result." + r.String())
}

// handle runs one command line and reports whether the session should end.
func (g *game) handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "quit", "q", "exit":
		return true, nil
	case "help", "?":
		g.println("play.help")
		return false, nil
	case "bias":
		return false, g.setBias(ctx, args)
	case "smooth":
		return false, g.setWindow(args)
	case "chart":
		return false, g.chart(ctx)
	case "ledger":
		return false, g.ledger(ctx)
	case "belief":
		return false, g.belief(ctx)
	case "export":
		return false, g.export(ctx, args)
	}

	guess, err := guessdomain.ParseOutcome(command)
	if err != nil {
		g.println("play.unknown", line)
		return false, nil
	}
	return false, g.play(ctx, guess)
}

func (g *game) play(ctx context.Context, guess guessdomain.Outcome) error {
	result, err := g.svc.PlayRound(ctx, g.sessionID, guess)
	if err != nil {
		return err
	}
	r := result.Record
	g.println("play.round", result.Round, g.outcome(r.Draw))
	g.println("play.you", g.outcome(r.HumanGuess), g.result(r.HumanResult))
	g.println("play.opponent", g.outcome(r.OpponentGuess), g.result(r.OpponentResult))
	g.println("play.scores", result.HumanScore, result.OpponentScore)
	return nil
}

func (g *game) setBias(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: bias <p>")
	}
	bias, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("parse bias %q: %w", args[0], err)
	}
	info, err := g.svc.Configure(ctx, g.sessionID, bias)
	if err != nil {
		return err
	}
	g.println("play.bias", info.Bias)
	return nil
}

func (g *game) setWindow(args []string) error {
	window := guessdomain.DefaultSmoothingWindow
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("parse window %q: %w", args[0], err)
		}
		window = n
	default:
		return fmt.Errorf("usage: smooth [n]")
	}
	if _, err := guessdomain.Smoothed(nil, window); err != nil {
		return err
	}
	g.window = window
	g.println("play.smooth", window)
	return nil
}

func (g *game) chart(ctx context.Context) error {
	scores, err := g.svc.Scores(ctx, g.sessionID, g.window)
	if err != nil {
		return err
	}
	if len(scores.Human) == 0 {
		g.println("play.chart.empty")
		return nil
	}
	human, opponent := scores.HumanSmoothed, scores.OpponentSmoothed
	lo, hi := bounds(human, opponent)
	you, them := g.p.Sprintf("play.chart.you"), g.p.Sprintf("play.chart.opponent")
	width := max(len(you), len(them))
	fmt.Fprintf(g.out, "%-*s %s %+.1f\n", width, you, sparkline(human, lo, hi), human[len(human)-1])
	fmt.Fprintf(g.out, "%-*s %s %+.1f\n", width, them, sparkline(opponent, lo, hi), opponent[len(opponent)-1])
	return nil
}

func (g *game) ledger(ctx context.Context) error {
	records, err := g.svc.Ledger(ctx, g.sessionID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		g.println("play.chart.empty")
		return nil
	}
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\t"+strings.Join(guessdomain.CSVHeader, "\t"))
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1,
			g.outcome(r.HumanGuess), g.outcome(r.Draw), g.result(r.HumanResult),
			g.outcome(r.OpponentGuess), g.result(r.OpponentResult))
	}
	return tw.Flush()
}

func (g *game) belief(ctx context.Context) error {
	belief, posterior, err := g.svc.Belief(ctx, g.sessionID, 0)
	if err != nil {
		return err
	}
	g.println("play.belief", belief.Alpha, belief.Beta, belief.PRed(),
		posterior.Level*100, posterior.Lower, posterior.Upper, g.outcome(belief.Decide()))
	return nil
}

func (g *game) export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <path>")
	}
	text, err := g.svc.ExportCSV(ctx, g.sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], []byte(text), 0o644); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	info, err := g.svc.Info(ctx, g.sessionID)
	if err != nil {
		return err
	}
	g.println("play.exported", info.Rounds, args[0])
	return nil
}

func (g *game) finish(ctx context.Context, archived bool) error {
	summary, err := g.svc.End(ctx, g.sessionID)
	if err != nil {
		return err
	}
	g.println("play.summary", summary.Rounds,
		summary.Human.Correct, summary.Human.Wrong,
		summary.Opponent.Correct, summary.Opponent.Wrong,
		summary.RedFrequency*100)
	if archived {
		g.println("play.archived", g.sessionID)
	}
	return nil
}
