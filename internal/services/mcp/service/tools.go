package service

import (
	"fmt"

	"github.com/louisbranch/cardguess/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mcpRegistrationTarget interface {
	AddTool(*mcp.Tool, any) error
}

type mcpServerRegistrationAdapter struct {
	server *mcp.Server
}

func (r mcpServerRegistrationAdapter) AddTool(tool *mcp.Tool, handler any) error {
	return addMCPTool(r.server, tool, handler)
}

type mcpToolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newMCPToolRegistrar[I any, O any]() mcpToolRegistrar {
	return mcpToolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var mcpToolRegistrars = []mcpToolRegistrar{
	newMCPToolRegistrar[domain.SessionStartInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.SessionConfigureInput, domain.SessionResult](),
	newMCPToolRegistrar[domain.SessionEndInput, domain.SessionEndResult](),
	newMCPToolRegistrar[domain.RoundPlayInput, domain.RoundPlayResult](),
	newMCPToolRegistrar[domain.LedgerGetInput, domain.LedgerGetResult](),
	newMCPToolRegistrar[domain.LedgerExportCSVInput, domain.LedgerExportCSVResult](),
	newMCPToolRegistrar[domain.ScoresGetInput, domain.ScoresGetResult](),
	newMCPToolRegistrar[domain.BeliefGetInput, domain.BeliefGetResult](),
	newMCPToolRegistrar[domain.ArchiveSessionsListInput, domain.ArchiveSessionsListResult](),
	newMCPToolRegistrar[domain.ArchiveSessionGetInput, domain.ArchiveSessionGetResult](),
	newMCPToolRegistrar[domain.ArchiveRoundsListInput, domain.ArchiveRoundsListResult](),
}

func addMCPTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range mcpToolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration adapter does not support handler type %T for tool %q", handler, toolName)
}

type toolRegistration struct {
	tool    *mcp.Tool
	handler any
}

func registerTools(registrar mcpRegistrationTarget, registrations []toolRegistration) error {
	for _, registration := range registrations {
		if err := registrar.AddTool(registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerSessionTools(registrar mcpRegistrationTarget, svc domain.GameService, server *Server) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.SessionStartTool(), handler: domain.SessionStartHandler(svc, server.setContext)},
		{tool: domain.SessionConfigureTool(), handler: domain.SessionConfigureHandler(svc, server.getContext)},
		{tool: domain.SessionEndTool(), handler: domain.SessionEndHandler(svc, server.getContext, server.setContext)},
	})
}

func registerRoundTools(registrar mcpRegistrationTarget, svc domain.GameService, server *Server) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.RoundPlayTool(), handler: domain.RoundPlayHandler(svc, server.getContext)},
		{tool: domain.LedgerGetTool(), handler: domain.LedgerGetHandler(svc, server.getContext)},
		{tool: domain.LedgerExportCSVTool(), handler: domain.LedgerExportCSVHandler(svc, server.getContext)},
		{tool: domain.ScoresGetTool(), handler: domain.ScoresGetHandler(svc, server.getContext)},
		{tool: domain.BeliefGetTool(), handler: domain.BeliefGetHandler(svc, server.getContext)},
	})
}

func registerArchiveTools(registrar mcpRegistrationTarget, archive domain.ArchiveReader) error {
	if archive == nil {
		return nil
	}
	return registerTools(registrar, []toolRegistration{
		{tool: domain.ArchiveSessionsListTool(), handler: domain.ArchiveSessionsListHandler(archive)},
		{tool: domain.ArchiveSessionGetTool(), handler: domain.ArchiveSessionGetHandler(archive)},
		{tool: domain.ArchiveRoundsListTool(), handler: domain.ArchiveRoundsListHandler(archive)},
	})
}
