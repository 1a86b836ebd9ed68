// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/cardguess/internal/guess/service"
	"github.com/louisbranch/cardguess/internal/platform/config"
	"github.com/louisbranch/cardguess/internal/platform/otel"
	"github.com/louisbranch/cardguess/internal/services/mcp/domain"
	mcpservice "github.com/louisbranch/cardguess/internal/services/mcp/service"
	"github.com/louisbranch/cardguess/internal/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	HTTPAddr    string `env:"MCP_HTTP_ADDR" envDefault:"localhost:8081"`
	Transport   string `env:"MCP_TRANSPORT" envDefault:"stdio"`
	ArchivePath string `env:"ARCHIVE_PATH"`
	otel.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, environ []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvFrom(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "SQLite file that receives ended sessions")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP server over the configured transport.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "mcp", cfg.Config)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// Interfaces stay nil without an archive so the archive tools are not
	// registered.
	var (
		archiver service.Archiver
		reader   domain.ArchiveReader
	)
	if cfg.ArchivePath != "" {
		store, err := sqlite.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
		archiver, reader = store, store
	}

	server, err := mcpservice.New(service.New(archiver), reader)
	if err != nil {
		return err
	}
	return server.Run(ctx, mcpservice.Config{
		Transport: mcpservice.TransportKind(cfg.Transport),
		HTTPAddr:  cfg.HTTPAddr,
	})
}
