// Package domain translates MCP tool calls into guessing-session operations.
//
// Each tool has an input type, a result type, a tool definition and a
// handler constructor. Handlers depend on small interfaces so they can be
// exercised without a transport.
package domain
