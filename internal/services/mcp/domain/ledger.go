package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LedgerGetInput represents the MCP tool input for reading the ledger.
type LedgerGetInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
}

// LedgerGetResult represents the MCP tool output for reading the ledger.
type LedgerGetResult struct {
	Rounds []RoundEntry `json:"rounds" jsonschema:"recorded rounds in play order"`
}

// LedgerGetTool defines the MCP tool schema for reading the ledger.
func LedgerGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ledger_get",
		Description: "Returns every recorded round of a session in play order.",
	}
}

// LedgerGetHandler returns the ledger.
func LedgerGetHandler(svc GameService, getContext ContextGetter) mcp.ToolHandlerFor[LedgerGetInput, LedgerGetResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LedgerGetInput) (*mcp.CallToolResult, LedgerGetResult, error) {
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		records, err := svc.Ledger(ctx, sessionID)
		if err != nil {
			return nil, LedgerGetResult{}, toolError("ledger get", err)
		}
		result := LedgerGetResult{Rounds: make([]RoundEntry, 0, len(records))}
		for i, r := range records {
			result.Rounds = append(result.Rounds, roundEntry(i+1, r))
		}
		return nil, result, nil
	}
}

// LedgerExportCSVInput represents the MCP tool input for exporting the ledger.
type LedgerExportCSVInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
}

// LedgerExportCSVResult represents the MCP tool output for exporting the ledger.
type LedgerExportCSVResult struct {
	CSV string `json:"csv" jsonschema:"CSV text with header human_guess,draw,human_result,opponent_guess,opponent_result"`
}

// LedgerExportCSVTool defines the MCP tool schema for exporting the ledger.
func LedgerExportCSVTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ledger_export_csv",
		Description: "Exports the ledger of a session as CSV text.",
	}
}

// LedgerExportCSVHandler exports the ledger.
func LedgerExportCSVHandler(svc GameService, getContext ContextGetter) mcp.ToolHandlerFor[LedgerExportCSVInput, LedgerExportCSVResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LedgerExportCSVInput) (*mcp.CallToolResult, LedgerExportCSVResult, error) {
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		text, err := svc.ExportCSV(ctx, sessionID)
		if err != nil {
			return nil, LedgerExportCSVResult{}, toolError("ledger export", err)
		}
		return nil, LedgerExportCSVResult{CSV: text}, nil
	}
}

// ScoresGetInput represents the MCP tool input for reading score histories.
type ScoresGetInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
	Window    int    `json:"window,omitempty" jsonschema:"trailing mean window; 0 returns raw histories only"`
}

// ScoresGetResult represents the MCP tool output for score histories.
type ScoresGetResult struct {
	Human            []int     `json:"human" jsonschema:"human cumulative net score after each round"`
	Opponent         []int     `json:"opponent" jsonschema:"opponent cumulative net score after each round"`
	Window           int       `json:"window,omitempty" jsonschema:"smoothing window used"`
	HumanSmoothed    []float64 `json:"human_smoothed,omitempty" jsonschema:"trailing mean of the human history"`
	OpponentSmoothed []float64 `json:"opponent_smoothed,omitempty" jsonschema:"trailing mean of the opponent history"`
	HumanAccuracy    []float64 `json:"human_accuracy" jsonschema:"running fraction of correct human guesses after each round"`
	OpponentAccuracy []float64 `json:"opponent_accuracy" jsonschema:"running fraction of correct opponent guesses after each round"`
}

// ScoresGetTool defines the MCP tool schema for score histories.
func ScoresGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scores_get",
		Description: "Returns both cumulative net score histories, optionally smoothed with a trailing mean, and both running accuracies.",
	}
}

// ScoresGetHandler returns score histories.
func ScoresGetHandler(svc GameService, getContext ContextGetter) mcp.ToolHandlerFor[ScoresGetInput, ScoresGetResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScoresGetInput) (*mcp.CallToolResult, ScoresGetResult, error) {
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		scores, err := svc.Scores(ctx, sessionID, input.Window)
		if err != nil {
			return nil, ScoresGetResult{}, toolError("scores get", err)
		}
		result := ScoresGetResult{
			Human:            nonNil(scores.Human),
			Opponent:         nonNil(scores.Opponent),
			Window:           scores.Window,
			HumanSmoothed:    scores.HumanSmoothed,
			OpponentSmoothed: scores.OpponentSmoothed,
			HumanAccuracy:    nonNil(scores.HumanAccuracy),
			OpponentAccuracy: nonNil(scores.OpponentAccuracy),
		}
		return nil, result, nil
	}
}

// BeliefGetInput represents the MCP tool input for reading the opponent belief.
type BeliefGetInput struct {
	SessionID string  `json:"session_id,omitempty" jsonschema:"session identifier (defaults to the current session)"`
	Level     float64 `json:"level,omitempty" jsonschema:"credible interval level in (0,1) (default 0.95)"`
}

// BeliefGetResult represents the MCP tool output for the opponent belief.
type BeliefGetResult struct {
	Belief    BeliefResult `json:"belief" jsonschema:"Beta pseudo-counts"`
	NextGuess string       `json:"next_guess" jsonschema:"what the opponent would guess next (Red, Blue)"`
	Mean      float64      `json:"mean" jsonschema:"posterior mean of the Red probability"`
	StdDev    float64      `json:"std_dev" jsonschema:"posterior standard deviation"`
	Level     float64      `json:"level" jsonschema:"credible interval level"`
	Lower     float64      `json:"lower" jsonschema:"lower bound of the central credible interval"`
	Upper     float64      `json:"upper" jsonschema:"upper bound of the central credible interval"`
}

// BeliefGetTool defines the MCP tool schema for the opponent belief.
func BeliefGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "belief_get",
		Description: "Returns the opponent's Beta belief about the Red probability with a credible interval.",
	}
}

// BeliefGetHandler returns the opponent belief.
func BeliefGetHandler(svc GameService, getContext ContextGetter) mcp.ToolHandlerFor[BeliefGetInput, BeliefGetResult] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input BeliefGetInput) (*mcp.CallToolResult, BeliefGetResult, error) {
		sessionID := resolveSessionID(input.SessionID, req, getContext)
		belief, posterior, err := svc.Belief(ctx, sessionID, input.Level)
		if err != nil {
			return nil, BeliefGetResult{}, toolError("belief get", err)
		}
		return nil, BeliefGetResult{
			Belief:    beliefResult(belief),
			NextGuess: belief.Decide().String(),
			Mean:      posterior.Mean,
			StdDev:    posterior.StdDev,
			Level:     posterior.Level,
			Lower:     posterior.Lower,
			Upper:     posterior.Upper,
		}, nil
	}
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
