package domain

import (
	"strings"

	"github.com/louisbranch/cardguess/internal/guess/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Context is the per-client state that lets tools omit session_id.
type Context struct {
	SessionID string
}

// ContextGetter returns the context of the MCP client that sent req.
type ContextGetter func(req *mcp.CallToolRequest) Context

// ContextSetter replaces the context of the MCP client that sent req.
type ContextSetter func(req *mcp.CallToolRequest, ctx Context)

// resolveSessionID prefers an explicit id and falls back to the caller's
// context. An empty result surfaces as SESSION_REQUIRED from the service.
func resolveSessionID(explicit string, req *mcp.CallToolRequest, getContext ContextGetter) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if getContext == nil {
		return ""
	}
	return getContext(req).SessionID
}

func sessionRequired(sessionID string) error {
	if sessionID == "" {
		return service.ErrSessionRequired
	}
	return nil
}
