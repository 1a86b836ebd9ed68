// Package service wires MCP transports to the guessing tools.
//
// It knows how to run the MCP server over stdio or streamable HTTP and
// delegates tool behavior to handlers in the MCP domain package.
package service
