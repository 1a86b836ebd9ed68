// Package service hosts isolated guessing sessions behind generated ids.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/cardguess/internal/guess/domain"
	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
	"github.com/louisbranch/cardguess/internal/platform/id"
	"github.com/louisbranch/cardguess/internal/random"
	"github.com/louisbranch/cardguess/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/cardguess/internal/guess/service"

var (
	// ErrSessionRequired indicates a call without a session id.
	ErrSessionRequired = apperrors.New(apperrors.CodeSessionRequired, "session id is required")
	// ErrSessionNotFound indicates an unknown or ended session id.
	ErrSessionNotFound = apperrors.New(apperrors.CodeSessionNotFound, "session not found")
)

// Archiver receives finished sessions.
type Archiver interface {
	ArchiveSession(ctx context.Context, archive storage.SessionArchive) error
}

// StartRequest configures a new session. A nil Seed asks the service to
// generate one.
type StartRequest struct {
	Bias float64
	Seed *int64
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID         string
	Seed       int64
	SeedSource string
	RngAlgo    string
	Bias       float64
	Rounds     int
	StartedAt  time.Time
}

// Scores carries both raw cumulative score histories and, when requested,
// their trailing means.
type Scores struct {
	Human            []int
	Opponent         []int
	Window           int
	HumanSmoothed    []float64
	OpponentSmoothed []float64
	// HumanAccuracy and OpponentAccuracy are the running fraction of
	// correct guesses after each round.
	HumanAccuracy    []float64
	OpponentAccuracy []float64
}

type entry struct {
	mu         sync.Mutex
	session    *domain.Session
	seed       int64
	seedSource string
	startedAt  time.Time
	ended      bool
}

// Service is a registry of sessions. Each session is serialised by its own
// lock; the registry lock only guards the map.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	archiver      Archiver
	clock         func() time.Time
	idGenerator   func() (string, error)
	seedGenerator func() (int64, error)
	tracer        trace.Tracer
}

// New creates a Service. archiver may be nil, in which case ended sessions
// are discarded.
func New(archiver Archiver) *Service {
	return &Service{
		sessions:      make(map[string]*entry),
		archiver:      archiver,
		clock:         time.Now,
		idGenerator:   id.NewID,
		seedGenerator: random.NewSeed,
		tracer:        otel.Tracer(tracerName),
	}
}

// Start creates a session and returns its description.
func (s *Service) Start(ctx context.Context, req StartRequest) (SessionInfo, error) {
	_, span := s.tracer.Start(ctx, "cardguess.session_start")
	defer span.End()

	seed, seedSource, err := random.ResolveSeed(req.Seed, s.seedGenerator)
	if err != nil {
		return SessionInfo{}, spanError(span, fmt.Errorf("resolve seed: %w", err))
	}
	session, err := domain.NewSession(req.Bias, random.NewRand(seed))
	if err != nil {
		return SessionInfo{}, spanError(span, err)
	}
	sessionID, err := s.idGenerator()
	if err != nil {
		return SessionInfo{}, spanError(span, fmt.Errorf("generate session id: %w", err))
	}

	e := &entry{
		session:    session,
		seed:       seed,
		seedSource: seedSource,
		startedAt:  s.clock().UTC(),
	}
	s.mu.Lock()
	s.sessions[sessionID] = e
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("cardguess.session_id", sessionID),
		attribute.String("cardguess.seed_source", seedSource),
		attribute.Float64("cardguess.bias", req.Bias),
	)
	log.Printf("session started id=%s seed_source=%s bias=%g", sessionID, seedSource, req.Bias)
	return e.info(sessionID), nil
}

// Configure changes the bias of a session.
func (s *Service) Configure(ctx context.Context, sessionID string, bias float64) (SessionInfo, error) {
	_, span := s.tracer.Start(ctx, "cardguess.session_configure",
		trace.WithAttributes(attribute.String("cardguess.session_id", sessionID)))
	defer span.End()

	var info SessionInfo
	err := s.withSession(sessionID, func(e *entry) error {
		if err := e.session.Configure(bias); err != nil {
			return err
		}
		info = e.info(sessionID)
		return nil
	})
	if err != nil {
		return SessionInfo{}, spanError(span, err)
	}
	span.SetAttributes(attribute.Float64("cardguess.bias", bias))
	return info, nil
}

// Info describes a live session.
func (s *Service) Info(ctx context.Context, sessionID string) (SessionInfo, error) {
	var info SessionInfo
	err := s.withSession(sessionID, func(e *entry) error {
		info = e.info(sessionID)
		return nil
	})
	return info, err
}

// PlayRound plays one round of a session for the human's guess.
func (s *Service) PlayRound(ctx context.Context, sessionID string, guess domain.Outcome) (domain.RoundResult, error) {
	_, span := s.tracer.Start(ctx, "cardguess.play_round",
		trace.WithAttributes(attribute.String("cardguess.session_id", sessionID)))
	defer span.End()

	var result domain.RoundResult
	err := s.withSession(sessionID, func(e *entry) error {
		var err error
		result, err = e.session.PlayRound(guess)
		return err
	})
	if err != nil {
		return domain.RoundResult{}, spanError(span, err)
	}

	span.SetAttributes(
		attribute.Int("cardguess.round", result.Round),
		attribute.String("cardguess.draw", result.Record.Draw.String()),
		attribute.Int("cardguess.human_score", result.HumanScore),
		attribute.Int("cardguess.opponent_score", result.OpponentScore),
	)
	return result, nil
}

// Ledger returns a snapshot of a session's rounds.
func (s *Service) Ledger(ctx context.Context, sessionID string) ([]domain.RoundRecord, error) {
	var records []domain.RoundRecord
	err := s.withSession(sessionID, func(e *entry) error {
		records = e.session.Ledger()
		return nil
	})
	return records, err
}

// Scores returns both score histories and running accuracies. A window above
// zero also returns the trailing means of the histories over that window.
func (s *Service) Scores(ctx context.Context, sessionID string, window int) (Scores, error) {
	_, span := s.tracer.Start(ctx, "cardguess.scores",
		trace.WithAttributes(
			attribute.String("cardguess.session_id", sessionID),
			attribute.Int("cardguess.window", window),
		))
	defer span.End()

	var (
		human, opponent []int
		records         []domain.RoundRecord
	)
	err := s.withSession(sessionID, func(e *entry) error {
		human, opponent = e.session.ScoreHistories()
		records = e.session.Ledger()
		return nil
	})
	if err != nil {
		return Scores{}, spanError(span, err)
	}

	scores := Scores{
		Human:            human,
		Opponent:         opponent,
		HumanAccuracy:    domain.RunningAccuracy(domain.HumanResults(records)),
		OpponentAccuracy: domain.RunningAccuracy(domain.OpponentResults(records)),
	}
	if window == 0 {
		return scores, nil
	}
	scores.Window = window
	if scores.HumanSmoothed, err = domain.Smoothed(domain.IntSeries(human), window); err != nil {
		return Scores{}, spanError(span, err)
	}
	if scores.OpponentSmoothed, err = domain.Smoothed(domain.IntSeries(opponent), window); err != nil {
		return Scores{}, spanError(span, err)
	}
	return scores, nil
}

// Belief returns the opponent's current belief and its posterior summary at
// level. A zero level uses domain.DefaultCredibleLevel.
func (s *Service) Belief(ctx context.Context, sessionID string, level float64) (domain.BeliefState, domain.Posterior, error) {
	var belief domain.BeliefState
	err := s.withSession(sessionID, func(e *entry) error {
		belief = e.session.Belief()
		return nil
	})
	if err != nil {
		return domain.BeliefState{}, domain.Posterior{}, err
	}

	if level == 0 {
		level = domain.DefaultCredibleLevel
	}
	posterior, err := belief.Posterior(level)
	if err != nil {
		return domain.BeliefState{}, domain.Posterior{}, err
	}
	return belief, posterior, nil
}

// Summary aggregates a session's ledger.
func (s *Service) Summary(ctx context.Context, sessionID string) (domain.Summary, error) {
	var summary domain.Summary
	err := s.withSession(sessionID, func(e *entry) error {
		summary = e.session.Summary()
		return nil
	})
	return summary, err
}

// ExportCSV renders a session's ledger as CSV text.
func (s *Service) ExportCSV(ctx context.Context, sessionID string) (string, error) {
	_, span := s.tracer.Start(ctx, "cardguess.export_csv",
		trace.WithAttributes(attribute.String("cardguess.session_id", sessionID)))
	defer span.End()

	var text string
	err := s.withSession(sessionID, func(e *entry) error {
		var err error
		text, err = e.session.ExportCSV()
		return err
	})
	if err != nil {
		return "", spanError(span, err)
	}
	return text, nil
}

// End removes a session and returns its final summary. When an archiver is
// configured the session is archived first; if archiving fails the session
// stays live so the caller can retry.
func (s *Service) End(ctx context.Context, sessionID string) (domain.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "cardguess.session_end",
		trace.WithAttributes(attribute.String("cardguess.session_id", sessionID)))
	defer span.End()

	var summary domain.Summary
	err := s.withSession(sessionID, func(e *entry) error {
		summary = e.session.Summary()
		if err := s.archive(ctx, sessionID, e); err != nil {
			return err
		}
		e.ended = true
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return domain.Summary{}, spanError(span, err)
	}

	span.SetAttributes(attribute.Int("cardguess.rounds", summary.Rounds))
	log.Printf("session ended id=%s rounds=%d human=%d opponent=%d",
		sessionID, summary.Rounds, summary.Human.NetScore, summary.Opponent.NetScore)
	return summary, nil
}

func (s *Service) archive(ctx context.Context, sessionID string, e *entry) error {
	if s.archiver == nil {
		return nil
	}
	archive := storage.SessionArchive{
		SessionID:  sessionID,
		Seed:       e.seed,
		SeedSource: e.seedSource,
		Bias:       e.session.Bias(),
		Belief:     e.session.Belief(),
		StartedAt:  e.startedAt,
		EndedAt:    s.clock().UTC(),
		Rounds:     e.session.Ledger(),
	}
	if err := s.archiver.ArchiveSession(ctx, archive); err != nil {
		return fmt.Errorf("archive session: %w", err)
	}
	return nil
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// withSession runs fn while holding the session's lock. The registry lock is
// released before fn runs.
func (s *Service) withSession(sessionID string, fn func(e *entry) error) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return sessionNotFound(sessionID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return sessionNotFound(sessionID)
	}
	return fn(e)
}

func sessionNotFound(sessionID string) error {
	return apperrors.WithMetadata(apperrors.CodeSessionNotFound, ErrSessionNotFound.Message, map[string]string{
		"session_id": sessionID,
	})
}

func (e *entry) info(sessionID string) SessionInfo {
	return SessionInfo{
		ID:         sessionID,
		Seed:       e.seed,
		SeedSource: e.seedSource,
		RngAlgo:    random.RngAlgo,
		Bias:       e.session.Bias(),
		Rounds:     e.session.Rounds(),
		StartedAt:  e.startedAt,
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
