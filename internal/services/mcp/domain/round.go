package domain

import (
	"context"

	guessdomain "github.com/louisbranch/cardguess/internal/guess/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RoundPlayInput represents the MCP tool input for playing a round.
type RoundPlayInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
	Guess     string `json:"guess" jsonschema:"human guess: Red or Blue (r and b are accepted)"`
}

// RoundPlayResult represents the MCP tool output for a played round.
type RoundPlayResult struct {
	Record        RoundEntry   `json:"record" jsonschema:"the recorded round"`
	HumanScore    int          `json:"human_score" jsonschema:"human net score after this round"`
	OpponentScore int          `json:"opponent_score" jsonschema:"opponent net score after this round"`
	Belief        BeliefResult `json:"belief" jsonschema:"opponent belief after observing the draw"`
}

// RoundPlayTool defines the MCP tool schema for playing a round.
func RoundPlayTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "round_play",
		Description: "Plays one round: draws a card, lets the Bayesian opponent guess, scores both guesses and records the round.",
	}
}

// RoundPlayHandler executes one round.
func RoundPlayHandler(svc GameService, getContext ContextGetter) mcp.ToolHandlerFor[RoundPlayInput, RoundPlayResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RoundPlayInput) (*mcp.CallToolResult, RoundPlayResult, error) {
		guess, err := guessdomain.ParseOutcome(input.Guess)
		if err != nil {
			return nil, RoundPlayResult{}, toolError("round play", err)
		}
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		result, err := svc.PlayRound(ctx, sessionID, guess)
		if err != nil {
			return nil, RoundPlayResult{}, toolError("round play", err)
		}
		return nil, RoundPlayResult{
			Record:        roundEntry(result.Round, result.Record),
			HumanScore:    result.HumanScore,
			OpponentScore: result.OpponentScore,
			Belief:        beliefResult(result.Belief),
		}, nil
	}
}
