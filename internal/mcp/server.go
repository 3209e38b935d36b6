// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes the .NET debugging pipeline through MCP tools:
//
// Solutions (always available):
//   - solution_load: Find and load a .sln/.slnx with per-project packages
//   - solution_parse: Parse solution text without touching the filesystem
//   - project_packages: List PackageReferences of a project file
//
// Tasks (always available):
//   - task_templates: Default dotnet task templates
//   - task_create_scenario: Turn a dotnet task into a stored debug scenario
//
// Adapters (always available):
//   - adapter_schema: Configuration schema of an adapter
//   - adapter_resolve_binary: Locate an adapter's debugger executable
//   - launch_assemble: Build the payload that starts a debugger
//   - debug_list_sessions: List active sessions
//
// Execution (full mode only):
//   - task_run_scenario: Build a scenario and locate the produced assembly
//   - debug_start: Start a debug session from a configuration
//   - debug_stop: Disconnect and stop a session
package mcp

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ctagard/dotnet-dap/internal/adapters"
	"github.com/ctagard/dotnet-dap/internal/config"
	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/dap"
	"github.com/ctagard/dotnet-dap/internal/locator"
	"github.com/ctagard/dotnet-dap/internal/version"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// Server wraps the MCP server with the dotnet debugging pipeline
type Server struct {
	mcpServer      *server.MCPServer
	sessionManager *dap.SessionManager
	adapterReg     *adapters.Registry
	locator        *locator.Locator
	scenarios      *lru.Cache[string, *types.DebugScenario]
	config         *config.Config
	logger         *slog.Logger
}

// Option customizes a Server
type Option func(*serverOptions)

type serverOptions struct {
	probe adapters.Probe
}

// WithProbe replaces the PATH lookup used to resolve debugger binaries
func WithProbe(probe adapters.Probe) Option {
	return func(o *serverOptions) {
		o.probe = probe
	}
}

// NewServer creates a new dotnet-dap server. The logger carried by ctx is
// handed to every tool invocation.
func NewServer(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := ctxlog.FromContext(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scenarios, err := lru.New[string, *types.DebugScenario](cfg.MaxScenarios)
	if err != nil {
		return nil, err
	}

	s := &Server{
		sessionManager: dap.NewSessionManager(ctx, cfg.MaxSessions, 0),
		adapterReg:     adapters.NewRegistry(cfg, o.probe),
		locator:        locator.New(cfg.Dotnet.Path),
		scenarios:      scenarios,
		config:         cfg,
		logger:         logger,
	}

	s.mcpServer = server.NewMCPServer(
		"dotnet-dap",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.withLogger),
	)

	s.registerTools()

	return s, nil
}

// withLogger threads the server logger into each tool call's context
func (s *Server) withLogger(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = ctxlog.WithLogger(ctx, s.logger.With("tool", request.Params.Name))
		return next(ctx, request)
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the server
func (s *Server) Close() {
	s.sessionManager.Close()
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// GetSessionManager returns the session manager
func (s *Server) GetSessionManager() *dap.SessionManager {
	return s.sessionManager
}

// GetAdapterRegistry returns the adapter registry
func (s *Server) GetAdapterRegistry() *adapters.Registry {
	return s.adapterReg
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}
