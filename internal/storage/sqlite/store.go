// Package sqlite provides a SQLite-backed session archive.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/louisbranch/cardguess/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/cardguess/internal/storage"
	"github.com/louisbranch/cardguess/internal/storage/filter"
	"github.com/louisbranch/cardguess/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists finished sessions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite archive and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ArchiveSession writes a finished session and all of its rounds in one
// transaction. Cumulative scores are recomputed from the rounds, so a record
// whose results disagree with its guesses is rejected.
func (s *Store) ArchiveSession(ctx context.Context, archive storage.SessionArchive) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID := strings.TrimSpace(archive.SessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	ledger := domain.NewLedger()
	for i, record := range archive.Rounds {
		if err := ledger.Record(record); err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
	}
	humanHistory, opponentHistory := ledger.ScoreHistories()
	humanScore, opponentScore := ledger.Scores()

	endedAt := archive.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}
	startedAt := archive.StartedAt
	if startedAt.IsZero() {
		startedAt = endedAt
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (
		   session_id,
		   seed,
		   seed_source,
		   bias,
		   alpha,
		   beta,
		   round_count,
		   human_score,
		   opponent_score,
		   started_at,
		   ended_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		archive.Seed,
		archive.SeedSource,
		archive.Bias,
		archive.Belief.Alpha,
		archive.Belief.Beta,
		len(archive.Rounds),
		humanScore,
		opponentScore,
		toMillis(startedAt),
		toMillis(endedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rounds (
		   session_id,
		   round_index,
		   human_guess,
		   draw,
		   human_result,
		   opponent_guess,
		   opponent_result,
		   human_score,
		   opponent_score
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare round insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range archive.Rounds {
		if _, err := stmt.ExecContext(ctx,
			sessionID,
			i+1,
			record.HumanGuess.String(),
			record.Draw.String(),
			record.HumanResult.String(),
			record.OpponentGuess.String(),
			record.OpponentResult.String(),
			humanHistory[i],
			opponentHistory[i],
		); err != nil {
			return fmt.Errorf("insert round %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

const sessionColumns = `session_id, seed, seed_source, bias, alpha, beta, round_count,
	human_score, opponent_score, started_at, ended_at`

// GetSession returns one archived session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionSummary{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionSummary{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`,
		strings.TrimSpace(sessionID),
	)
	summary, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionSummary{}, storage.ErrNotFound
		}
		return storage.SessionSummary{}, fmt.Errorf("get session: %w", err)
	}
	return summary, nil
}

// ListSessions returns archived sessions, most recently ended first.
func (s *Store) ListSessions(ctx context.Context) ([]storage.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY ended_at DESC, session_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []storage.SessionSummary
	for rows.Next() {
		summary, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListRounds returns the rounds of one session in play order, narrowed by an
// optional AIP-160 filter.
func (s *Store) ListRounds(ctx context.Context, sessionID string, filterStr string) ([]storage.ArchivedRound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	cond, err := filter.ParseRoundFilter(filterStr)
	if err != nil {
		return nil, err
	}

	query := `SELECT round_index, human_guess, draw, human_result, opponent_guess, opponent_result,
		human_score, opponent_score
		FROM rounds WHERE session_id = ?`
	params := []any{strings.TrimSpace(sessionID)}
	if cond.Clause != "" {
		query += " AND " + cond.Clause
		params = append(params, cond.Params...)
	}
	query += " ORDER BY round_index"

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []storage.ArchivedRound
	for rows.Next() {
		var (
			round                                               storage.ArchivedRound
			humanGuess, drawn, humanResult, oppGuess, oppResult string
		)
		if err := rows.Scan(
			&round.Round,
			&humanGuess,
			&drawn,
			&humanResult,
			&oppGuess,
			&oppResult,
			&round.HumanScore,
			&round.OpponentScore,
		); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		record, err := decodeRecord(humanGuess, drawn, humanResult, oppGuess, oppResult)
		if err != nil {
			return nil, fmt.Errorf("decode round %d: %w", round.Round, err)
		}
		round.Record = record
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return rounds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (storage.SessionSummary, error) {
	var (
		summary            storage.SessionSummary
		startedAt, endedAt int64
	)
	if err := row.Scan(
		&summary.SessionID,
		&summary.Seed,
		&summary.SeedSource,
		&summary.Bias,
		&summary.Belief.Alpha,
		&summary.Belief.Beta,
		&summary.RoundCount,
		&summary.HumanScore,
		&summary.OpponentScore,
		&startedAt,
		&endedAt,
	); err != nil {
		return storage.SessionSummary{}, err
	}
	summary.StartedAt = fromMillis(startedAt)
	summary.EndedAt = fromMillis(endedAt)
	return summary, nil
}

func decodeRecord(humanGuess, drawn, humanResult, oppGuess, oppResult string) (domain.RoundRecord, error) {
	var (
		record domain.RoundRecord
		err    error
	)
	if record.HumanGuess, err = domain.ParseOutcome(humanGuess); err != nil {
		return domain.RoundRecord{}, err
	}
	if record.Draw, err = domain.ParseOutcome(drawn); err != nil {
		return domain.RoundRecord{}, err
	}
	if record.HumanResult, err = domain.ParseResult(humanResult); err != nil {
		return domain.RoundRecord{}, err
	}
	if record.OpponentGuess, err = domain.ParseOutcome(oppGuess); err != nil {
		return domain.RoundRecord{}, err
	}
	if record.OpponentResult, err = domain.ParseResult(oppResult); err != nil {
		return domain.RoundRecord{}, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.ArchiveStore = (*Store)(nil)
