package domain

import (
	"context"
	"time"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/louisbranch/cardguess/internal/guess/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionStartInput represents the MCP tool input for starting a session.
type SessionStartInput struct {
	Bias *float64 `json:"bias,omitempty" jsonschema:"probability in [0,1] that a draw is Red (default 0.5)"`
	Seed *int64   `json:"seed,omitempty" jsonschema:"optional seed to make the session reproducible"`
}

// SessionResult describes a live session.
type SessionResult struct {
	SessionID  string  `json:"session_id" jsonschema:"session identifier"`
	Seed       int64   `json:"seed" jsonschema:"seed of the session random source"`
	SeedSource string  `json:"seed_source" jsonschema:"where the seed came from (CLIENT, SERVER)"`
	RngAlgo    string  `json:"rng_algo" jsonschema:"random generator algorithm"`
	Bias       float64 `json:"bias" jsonschema:"probability that the next draw is Red"`
	Rounds     int     `json:"rounds" jsonschema:"number of recorded rounds"`
	StartedAt  string  `json:"started_at" jsonschema:"RFC3339 timestamp when the session started"`
}

func sessionResult(info service.SessionInfo) SessionResult {
	return SessionResult{
		SessionID:  info.ID,
		Seed:       info.Seed,
		SeedSource: info.SeedSource,
		RngAlgo:    info.RngAlgo,
		Bias:       info.Bias,
		Rounds:     info.Rounds,
		StartedAt:  info.StartedAt.Format(time.RFC3339),
	}
}

// SessionStartTool defines the MCP tool schema for starting a session.
func SessionStartTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_start",
		Description: "Starts a Red/Blue guessing session and makes it the current session for later tool calls.",
	}
}

// SessionStartHandler executes a session start request.
func SessionStartHandler(svc GameService, setContext ContextSetter) mcp.ToolHandlerFor[SessionStartInput, SessionResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionStartInput) (*mcp.CallToolResult, SessionResult, error) {
		bias := guessdomain.DefaultBias
		if input.Bias != nil {
			bias = *input.Bias
		}
		info, err := svc.Start(ctx, service.StartRequest{Bias: bias, Seed: input.Seed})
		if err != nil {
			return nil, SessionResult{}, toolError("session start", err)
		}
		if setContext != nil {
			setContext(req, Context{SessionID: info.ID})
		}
		return nil, sessionResult(info), nil
	}
}

// SessionConfigureInput represents the MCP tool input for changing the bias.
type SessionConfigureInput struct {
	SessionID string  `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
	Bias      float64 `json:"bias" jsonschema:"probability in [0,1] that a draw is Red"`
}

// SessionConfigureTool defines the MCP tool schema for changing the bias.
func SessionConfigureTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_configure",
		Description: "Changes the probability that subsequent draws are Red. The opponent is never told.",
	}
}

// SessionConfigureHandler executes a bias change.
func SessionConfigureHandler(svc GameService, getContext ContextGetter) mcp.ToolHandlerFor[SessionConfigureInput, SessionResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionConfigureInput) (*mcp.CallToolResult, SessionResult, error) {
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		info, err := svc.Configure(ctx, sessionID, input.Bias)
		if err != nil {
			return nil, SessionResult{}, toolError("session configure", err)
		}
		return nil, sessionResult(info), nil
	}
}

// SessionEndInput represents the MCP tool input for ending a session.
type SessionEndInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
}

// PartyResult aggregates one party's rounds.
type PartyResult struct {
	Correct  int     `json:"correct" jsonschema:"rounds guessed correctly"`
	Wrong    int     `json:"wrong" jsonschema:"rounds guessed wrong"`
	NetScore int     `json:"net_score" jsonschema:"correct minus wrong"`
	Accuracy float64 `json:"accuracy" jsonschema:"fraction of rounds guessed correctly"`
}

// SessionEndResult represents the MCP tool output for ending a session.
type SessionEndResult struct {
	SessionID    string      `json:"session_id" jsonschema:"session identifier"`
	Rounds       int         `json:"rounds" jsonschema:"number of rounds played"`
	Human        PartyResult `json:"human" jsonschema:"human totals"`
	Opponent     PartyResult `json:"opponent" jsonschema:"opponent totals"`
	RedFrequency float64     `json:"red_frequency" jsonschema:"observed fraction of Red draws"`
}

func partyResult(p guessdomain.PartySummary) PartyResult {
	return PartyResult{Correct: p.Correct, Wrong: p.Wrong, NetScore: p.NetScore, Accuracy: p.Accuracy}
}

// SessionEndTool defines the MCP tool schema for ending a session.
func SessionEndTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_end",
		Description: "Ends a session, archiving it when an archive is configured, and returns its totals.",
	}
}

// SessionEndHandler executes a session end request.
func SessionEndHandler(svc GameService, getContext ContextGetter, setContext ContextSetter) mcp.ToolHandlerFor[SessionEndInput, SessionEndResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionEndInput) (*mcp.CallToolResult, SessionEndResult, error) {
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		summary, err := svc.End(ctx, sessionID)
		if err != nil {
			return nil, SessionEndResult{}, toolError("session end", err)
		}
		if getContext != nil && setContext != nil && getContext(req).SessionID == sessionID {
			setContext(req, Context{})
		}
		return nil, SessionEndResult{
			SessionID:    sessionID,
			Rounds:       summary.Rounds,
			Human:        partyResult(summary.Human),
			Opponent:     partyResult(summary.Opponent),
			RedFrequency: summary.RedFrequency,
		}, nil
	}
}
