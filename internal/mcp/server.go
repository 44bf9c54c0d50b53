package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/logging"
	"github.com/nvandessel/coopindex/internal/markov"
	"github.com/nvandessel/coopindex/internal/ratelimit"
	"github.com/nvandessel/coopindex/internal/store"
)

// Server wraps the MCP SDK server and exposes the cooperation engine as tools.
type Server struct {
	server       *sdk.Server
	engine       *cooperation.Engine
	base         game.Params
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "coopindex")
	Version string // Server version

	// Params are the defaults every tool call starts from.
	Params game.Params
	Solver markov.SolverConfig
	Workers int

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
	Events *logging.EventLogger

	// Results caches computed indices across calls and sessions. Optional.
	Results store.ResultStore
}

// NewServer creates a new MCP server with coopindex tools.
func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default params: %w", err)
	}
	if err := cfg.Solver.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	engine := cooperation.NewEngine(cfg.Solver, cfg.Workers)
	engine.SetLogger(logger, cfg.Events)
	if cfg.Results != nil {
		engine.SetStore(cfg.Results)
	}

	// Create MCP server
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		engine:       engine,
		base:         cfg.Params,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		s.auditLogger.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	// Register resources for auto-loading into context
	if err := s.registerResources(); err != nil {
		s.auditLogger.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run server (blocks)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	// Clean up
	s.auditLogger.Close()

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
