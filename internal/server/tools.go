package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codebase-consultant/internal/config"
	"codebase-consultant/internal/domain"
	"codebase-consultant/internal/metrics"
	"codebase-consultant/internal/workflow"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool descriptions surfaced to MCP clients
const (
	featureToolDescription = "Generates a comprehensive, two-step feature implementation plan using Gemini 2.5 Pro. Analyzes codebase structure, creates high-level architecture plan, then produces detailed implementation guide with file references and code snippets. For large projects, split requests by concern (e.g., separate frontend/backend or by module) to stay within 200k token limit. Best for small-medium codebases or focused subdirectories."
	bugFixToolDescription  = "Analyzes bugs and generates detailed fix implementation plans using Gemini 2.5 Pro. Performs root cause analysis, identifies affected files, and provides step-by-step remediation with code examples. For large projects, narrow scope to relevant subsystem (e.g., just authentication module or API layer) to stay within 200k token limit. Include error messages, stack traces, or reproduction steps in bug_description for best results."
	explainToolDescription = "Provides detailed technical explanations of codebase components using Gemini 2.5 Pro. Identifies key files, explains architecture patterns, data flow, and inter-component relationships with code examples. For large projects, target specific subsystems (e.g., 'explain the authentication system' vs 'explain the entire backend') to stay within 200k token limit. Best for onboarding, documentation, or understanding complex logic."
)

// Tool arguments. The jsonschema tag is surfaced to callers as the field
// description.
type featureArgs struct {
	Directory     string `json:"directory" jsonschema:"Full absolute path to the codebase directory (e.g., /workspace/myapp or C:/projects/myapp). Must NOT be a relative path."`
	FeaturePrompt string `json:"feature_prompt"`
}

type bugFixArgs struct {
	Directory      string `json:"directory" jsonschema:"Full absolute path to the codebase directory (e.g., /workspace/myapp or C:/projects/myapp). Must NOT be a relative path."`
	BugDescription string `json:"bug_description"`
}

type explanationArgs struct {
	Directory        string `json:"directory" jsonschema:"Full absolute path to the codebase directory (e.g., /workspace/myapp or C:/projects/myapp). Must NOT be a relative path."`
	ExplanationQuery string `json:"explanation_query"`
}

func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        config.ToolPlanFeature,
		Description: featureToolDescription,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args featureArgs) (*mcp.CallToolResult, any, error) {
		return s.consultTool(ctx, config.ToolPlanFeature, workflow.FeaturePlanning,
			args.Directory, args.FeaturePrompt, "Failed to generate feature plan")
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        config.ToolPlanBugFix,
		Description: bugFixToolDescription,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args bugFixArgs) (*mcp.CallToolResult, any, error) {
		return s.consultTool(ctx, config.ToolPlanBugFix, workflow.BugFixPlanning,
			args.Directory, args.BugDescription, "Failed to generate bug fix plan")
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        config.ToolExplainCode,
		Description: explainToolDescription,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args explanationArgs) (*mcp.CallToolResult, any, error) {
		return s.consultTool(ctx, config.ToolExplainCode, workflow.CodeExplanation,
			args.Directory, args.ExplanationQuery, "Failed to generate explanation")
	})
}

// consultTool serves one tool call: report, two model phases, result. A
// returned error reaches the caller as a tool error, so the messages stay
// readable rather than wrapped.
func (s *Server) consultTool(ctx context.Context, tool string, wf workflow.Workflow, directory, input, failure string) (result *mcp.CallToolResult, _ any, err error) {
	slog.Info("received tool request", "tool", tool, "directory", directory)

	start := time.Now()
	record := &domain.Consultation{
		ID:        uuid.NewString(),
		Tool:      tool,
		Directory: directory,
		Input:     input,
		CreatedAt: start.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panic", "tool", tool, "panic", r)
			err = fmt.Errorf("internal error serving %s", tool)
			result = nil
		}
		status := "success"
		if err != nil {
			status = "error"
			record.Error = err.Error()
		}
		record.Status = status
		record.DurationMs = time.Since(start).Milliseconds()
		metrics.ConsultationsTotal.WithLabelValues(tool, status).Inc()
		metrics.ConsultationDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
		s.persist(record)

		slog.Info("tool request finished",
			"tool", tool,
			"status", status,
			"duration", time.Since(start))
	}()

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if s.cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Server.RequestTimeout)
		defer cancel()
	}

	report, err := s.reports.Generate(ctx, directory)
	if err != nil {
		return nil, nil, fmt.Errorf("Failed to generate codebase report: %v", err)
	}
	record.Truncated = report.Truncated

	out, err := s.consult.Run(ctx, wf, input, report)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", failure, err)
	}
	record.Result = out

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: out}},
	}, nil, nil
}

// persist saves the record without blocking the tool response.
func (s *Server) persist(record *domain.Consultation) {
	if s.store == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("storage panic", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Storage.Timeout)
		defer cancel()

		if err := s.store.SaveConsultation(ctx, record); err != nil {
			slog.Warn("save consultation failed", "id", record.ID, "error", err)
		}
	}()
}
