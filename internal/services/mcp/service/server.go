package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/louisbranch/cardguess/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "cardguess MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
	// defaultHTTPAddr binds to loopback unless configured otherwise.
	defaultHTTPAddr = "localhost:8081"
	// defaultShutdownTimeout bounds graceful HTTP shutdown.
	defaultShutdownTimeout = 10 * time.Second
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	HTTPAddr  string
}

type registrationModule struct {
	name     string
	register func(mcpRegistrationTarget) error
}

// Server hosts the MCP server for one session registry.
type Server struct {
	mcpServer *mcp.Server
	// contexts is keyed by MCP client session so HTTP clients sharing this
	// server never fall back to each other's game session.
	contexts map[*mcp.ServerSession]domain.Context
	ctxMu    sync.RWMutex
}

// New creates an MCP server exposing svc. archive may be nil, in which case
// the archive tools are not registered.
func New(svc domain.GameService, archive domain.ArchiveReader) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("game service is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	server := &Server{
		mcpServer: mcpServer,
		contexts:  make(map[*mcp.ServerSession]domain.Context),
	}

	modules := []registrationModule{
		{name: "session-tools", register: func(r mcpRegistrationTarget) error { return registerSessionTools(r, svc, server) }},
		{name: "round-tools", register: func(r mcpRegistrationTarget) error { return registerRoundTools(r, svc, server) }},
		{name: "archive-tools", register: func(r mcpRegistrationTarget) error { return registerArchiveTools(r, archive) }},
	}
	for _, module := range modules {
		if err := module.register(mcpServerRegistrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}
	return server, nil
}

// setContext updates the context of the client that sent req. An empty
// context forgets the client.
func (s *Server) setContext(req *mcp.CallToolRequest, ctx domain.Context) {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()
	s.pruneContexts()
	key := clientSession(req)
	if ctx == (domain.Context{}) {
		delete(s.contexts, key)
		return
	}
	s.contexts[key] = ctx
}

// pruneContexts drops contexts of clients that have disconnected. Callers
// hold ctxMu.
func (s *Server) pruneContexts() {
	live := make(map[*mcp.ServerSession]bool, len(s.contexts))
	for ss := range s.mcpServer.Sessions() {
		live[ss] = true
	}
	for key := range s.contexts {
		if key != nil && !live[key] {
			delete(s.contexts, key)
		}
	}
}

// getContext returns the context of the client that sent req.
func (s *Server) getContext(req *mcp.CallToolRequest) domain.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.contexts[clientSession(req)]
}

func clientSession(req *mcp.CallToolRequest) *mcp.ServerSession {
	if req == nil {
		return nil
	}
	return req.Session
}

// Run serves the MCP server over the configured transport and blocks until
// ctx is cancelled or the transport fails.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	switch cfg.Transport {
	case TransportStdio:
		return s.serveWithTransport(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		addr := cfg.HTTPAddr
		if addr == "" {
			addr = defaultHTTPAddr
		}
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return s.serveHTTP(ctx, listener)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// serveWithTransport runs the server over one transport. Cancellation is a
// clean exit.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil))
	mux.HandleFunc("/mcp/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) serveHTTP(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Starting MCP HTTP server on %s", listener.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	}
}
