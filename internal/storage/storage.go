package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/cardguess/internal/guess/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a session was already archived.
	ErrAlreadyExists = errors.New("record already exists")
)

// SessionArchive is the final state of one session.
type SessionArchive struct {
	SessionID  string
	Seed       int64
	SeedSource string
	// Bias is the bias in effect when the session ended.
	Bias      float64
	Belief    domain.BeliefState
	StartedAt time.Time
	EndedAt   time.Time
	Rounds    []domain.RoundRecord
}

// SessionSummary describes an archived session without its rounds.
type SessionSummary struct {
	SessionID     string
	Seed          int64
	SeedSource    string
	Bias          float64
	Belief        domain.BeliefState
	RoundCount    int
	HumanScore    int
	OpponentScore int
	StartedAt     time.Time
	EndedAt       time.Time
}

// ArchivedRound is one stored round with its position and cumulative scores.
type ArchivedRound struct {
	Round         int
	Record        domain.RoundRecord
	HumanScore    int
	OpponentScore int
}

// ArchiveStore persists finished sessions.
type ArchiveStore interface {
	ArchiveSession(ctx context.Context, archive SessionArchive) error
	GetSession(ctx context.Context, sessionID string) (SessionSummary, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	// ListRounds returns the rounds of a session in play order. filter is an
	// optional AIP-160 expression over round fields.
	ListRounds(ctx context.Context, sessionID string, filter string) ([]ArchivedRound, error)
}
