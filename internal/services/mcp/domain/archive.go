package domain

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
	"github.com/louisbranch/cardguess/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ArchiveSessionsListInput represents the MCP tool input for listing archived sessions.
type ArchiveSessionsListInput struct{}

// ArchivedSessionResult describes one archived session.
type ArchivedSessionResult struct {
	SessionID     string       `json:"session_id" jsonschema:"session identifier"`
	Seed          int64        `json:"seed" jsonschema:"seed of the session random source"`
	SeedSource    string       `json:"seed_source" jsonschema:"where the seed came from (CLIENT, SERVER)"`
	Bias          float64      `json:"bias" jsonschema:"bias in effect when the session ended"`
	Belief        BeliefResult `json:"belief" jsonschema:"final opponent belief"`
	Rounds        int          `json:"rounds" jsonschema:"number of rounds played"`
	HumanScore    int          `json:"human_score" jsonschema:"final human net score"`
	OpponentScore int          `json:"opponent_score" jsonschema:"final opponent net score"`
	StartedAt     string       `json:"started_at" jsonschema:"RFC3339 timestamp when the session started"`
	EndedAt       string       `json:"ended_at" jsonschema:"RFC3339 timestamp when the session ended"`
}

// ArchiveSessionsListResult represents the MCP tool output for listing archived sessions.
type ArchiveSessionsListResult struct {
	Sessions []ArchivedSessionResult `json:"sessions" jsonschema:"archived sessions, most recently ended first"`
}

// ArchiveSessionsListTool defines the MCP tool schema for listing archived sessions.
func ArchiveSessionsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "archive_sessions_list",
		Description: "Lists sessions written to the archive when they ended.",
	}
}

// ArchiveSessionsListHandler lists archived sessions.
func ArchiveSessionsListHandler(archive ArchiveReader) mcp.ToolHandlerFor[ArchiveSessionsListInput, ArchiveSessionsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ArchiveSessionsListInput) (*mcp.CallToolResult, ArchiveSessionsListResult, error) {
		sessions, err := archive.ListSessions(ctx)
		if err != nil {
			return nil, ArchiveSessionsListResult{}, toolError("archive sessions list", err)
		}
		result := ArchiveSessionsListResult{Sessions: make([]ArchivedSessionResult, 0, len(sessions))}
		for _, s := range sessions {
			result.Sessions = append(result.Sessions, archivedSessionResult(s))
		}
		return nil, result, nil
	}
}

// ArchiveSessionGetInput represents the MCP tool input for reading one archived session.
type ArchiveSessionGetInput struct {
	SessionID string `json:"session_id" jsonschema:"archived session identifier"`
}

// ArchiveSessionGetResult represents the MCP tool output for reading one archived session.
type ArchiveSessionGetResult struct {
	Session ArchivedSessionResult `json:"session" jsonschema:"the archived session"`
}

// ArchiveSessionGetTool defines the MCP tool schema for reading one archived session.
func ArchiveSessionGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "archive_session_get",
		Description: "Returns the final state of one archived session.",
	}
}

// ArchiveSessionGetHandler reads one archived session.
func ArchiveSessionGetHandler(archive ArchiveReader) mcp.ToolHandlerFor[ArchiveSessionGetInput, ArchiveSessionGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ArchiveSessionGetInput) (*mcp.CallToolResult, ArchiveSessionGetResult, error) {
		if err := sessionRequired(input.SessionID); err != nil {
			return nil, ArchiveSessionGetResult{}, toolError("archive session get", err)
		}
		summary, err := archive.GetSession(ctx, input.SessionID)
		if errors.Is(err, storage.ErrNotFound) {
			err = apperrors.WithMetadata(apperrors.CodeSessionNotFound, "archived session not found", map[string]string{
				"session_id": input.SessionID,
			})
		}
		if err != nil {
			return nil, ArchiveSessionGetResult{}, toolError("archive session get", err)
		}
		return nil, ArchiveSessionGetResult{Session: archivedSessionResult(summary)}, nil
	}
}

func archivedSessionResult(s storage.SessionSummary) ArchivedSessionResult {
	return ArchivedSessionResult{
		SessionID:     s.SessionID,
		Seed:          s.Seed,
		SeedSource:    s.SeedSource,
		Bias:          s.Bias,
		Belief:        beliefResult(s.Belief),
		Rounds:        s.RoundCount,
		HumanScore:    s.HumanScore,
		OpponentScore: s.OpponentScore,
		StartedAt:     s.StartedAt.Format(time.RFC3339),
		EndedAt:       s.EndedAt.Format(time.RFC3339),
	}
}

// ArchiveRoundsListInput represents the MCP tool input for listing archived rounds.
type ArchiveRoundsListInput struct {
	SessionID string `json:"session_id" jsonschema:"archived session identifier"`
	Filter    string `json:"filter,omitempty" jsonschema:"optional AIP-160 filter over round, human_guess, draw, human_result, opponent_guess, opponent_result, human_score, opponent_score"`
}

// ArchivedRoundResult is one archived round with cumulative scores.
type ArchivedRoundResult struct {
	Record        RoundEntry `json:"record" jsonschema:"the recorded round"`
	HumanScore    int        `json:"human_score" jsonschema:"human net score after this round"`
	OpponentScore int        `json:"opponent_score" jsonschema:"opponent net score after this round"`
}

// ArchiveRoundsListResult represents the MCP tool output for listing archived rounds.
type ArchiveRoundsListResult struct {
	Rounds []ArchivedRoundResult `json:"rounds" jsonschema:"matching rounds in play order"`
}

// ArchiveRoundsListTool defines the MCP tool schema for listing archived rounds.
func ArchiveRoundsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "archive_rounds_list",
		Description: "Lists the rounds of an archived session, optionally filtered, e.g. draw = \"Red\" AND round > 10.",
	}
}

// ArchiveRoundsListHandler lists archived rounds.
func ArchiveRoundsListHandler(archive ArchiveReader) mcp.ToolHandlerFor[ArchiveRoundsListInput, ArchiveRoundsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ArchiveRoundsListInput) (*mcp.CallToolResult, ArchiveRoundsListResult, error) {
		if err := sessionRequired(input.SessionID); err != nil {
			return nil, ArchiveRoundsListResult{}, toolError("archive rounds list", err)
		}
		rounds, err := archive.ListRounds(ctx, input.SessionID, input.Filter)
		if err != nil {
			return nil, ArchiveRoundsListResult{}, toolError("archive rounds list", err)
		}
		result := ArchiveRoundsListResult{Rounds: make([]ArchivedRoundResult, 0, len(rounds))}
		for _, r := range rounds {
			result.Rounds = append(result.Rounds, ArchivedRoundResult{
				Record:        roundEntry(r.Round, r.Record),
				HumanScore:    r.HumanScore,
				OpponentScore: r.OpponentScore,
			})
		}
		return nil, result, nil
	}
}
