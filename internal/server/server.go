// Package server exposes the consultation workflows as MCP tools.
package server

import (
	"context"
	"log/slog"

	"codebase-consultant/internal/config"
	"codebase-consultant/internal/storage"
	"codebase-consultant/internal/workflow"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Consulter runs a workflow through both phases and returns the deliverable.
type Consulter interface {
	Run(ctx context.Context, wf workflow.Workflow, input string, report workflow.Report) (string, error)
}

// ReportSource produces the codebase report for a directory.
type ReportSource interface {
	Generate(ctx context.Context, directory string) (workflow.Report, error)
}

// Server wires the report source and the orchestrator into MCP tools.
type Server struct {
	cfg     *config.Config
	consult Consulter
	reports ReportSource
	store   storage.Repository // nil disables persistence
	sem     chan struct{}
}

// New creates a Server. store may be nil to disable persistence.
func New(cfg *config.Config, consult Consulter, reports ReportSource, store storage.Repository) *Server {
	var sem chan struct{}
	if cfg.Server.MaxConcurrent > 0 {
		sem = make(chan struct{}, cfg.Server.MaxConcurrent)
	}

	return &Server{
		cfg:     cfg,
		consult: consult,
		reports: reports,
		store:   store,
		sem:     sem,
	}
}

// Run serves MCP over stdio until the context is canceled. Logs must stay off
// stdout, which belongs to the protocol stream.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the MCP server over the given transport.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    config.ServerName,
		Version: config.ServerVersion,
	}, nil)

	s.registerTools(srv)

	slog.Info("mcp server started", "name", config.ServerName, "version", config.ServerVersion)
	return srv.Run(ctx, transport)
}
