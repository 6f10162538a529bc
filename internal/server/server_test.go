package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"codebase-consultant/internal/config"
	"codebase-consultant/internal/domain"
	"codebase-consultant/internal/workflow"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type consultCall struct {
	workflow string
	input    string
	report   workflow.Report
}

type stubConsulter struct {
	mu     sync.Mutex
	runs   []consultCall
	output string
	err    error
}

func (s *stubConsulter) Run(ctx context.Context, wf workflow.Workflow, input string, report workflow.Report) (string, error) {
	s.mu.Lock()
	s.runs = append(s.runs, consultCall{wf.Name(), input, report})
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

type stubReports struct {
	mu     sync.Mutex
	dirs   []string
	report workflow.Report
	err    error
}

func (s *stubReports) Generate(ctx context.Context, directory string) (workflow.Report, error) {
	s.mu.Lock()
	s.dirs = append(s.dirs, directory)
	s.mu.Unlock()
	if s.err != nil {
		return workflow.Report{}, s.err
	}
	return s.report, nil
}

type captureStore struct {
	mu      sync.Mutex
	records []*domain.Consultation
	saved   chan struct{}
}

func newCaptureStore() *captureStore {
	return &captureStore{saved: make(chan struct{}, 16)}
}

func (c *captureStore) SaveConsultation(ctx context.Context, record *domain.Consultation) error {
	c.mu.Lock()
	c.records = append(c.records, record)
	c.mu.Unlock()
	c.saved <- struct{}{}
	return nil
}

func (c *captureStore) GetConsultation(ctx context.Context, id string) (*domain.Consultation, error) {
	return nil, errors.New("not implemented")
}

func (c *captureStore) ListRecentConsultations(ctx context.Context, limit int) ([]*domain.Consultation, error) {
	return nil, nil
}

func (c *captureStore) Close() error { return nil }

func (c *captureStore) waitForSave(t *testing.T) *domain.Consultation {
	t.Helper()
	select {
	case <-c.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the async save")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[len(c.records)-1]
}

func testServerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.MaxConcurrent = 2
	cfg.Storage.Timeout = 2 * time.Second
	return cfg
}

// startSession serves the Server over an in-memory transport and returns a
// connected client session.
func startSession(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	go func() {
		_ = s.Serve(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
		cancel()
	})
	return session
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("expected content in tool result")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestListTools(t *testing.T) {
	srv := New(testServerConfig(), &stubConsulter{output: "ok"}, &stubReports{}, nil)
	session := startSession(t, srv)

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	names := make(map[string]string)
	for _, tool := range res.Tools {
		names[tool.Name] = tool.Description
	}
	for _, want := range []string{"plan_feature", "plan_bug_fix", "explain_code"} {
		if _, ok := names[want]; !ok {
			t.Errorf("expected tool %s registered, got %v", want, names)
		}
	}
	if !strings.Contains(names["plan_feature"], "two-step feature implementation plan") {
		t.Errorf("unexpected plan_feature description: %s", names["plan_feature"])
	}
	if !strings.Contains(names["plan_bug_fix"], "root cause analysis") {
		t.Errorf("unexpected plan_bug_fix description: %s", names["plan_bug_fix"])
	}
}

func TestCallTool_PlanFeature(t *testing.T) {
	consulter := &stubConsulter{output: "THE PLAN"}
	reports := &stubReports{report: workflow.Report{Text: "REPORT"}}
	srv := New(testServerConfig(), consulter, reports, nil)
	session := startSession(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "plan_feature",
		Arguments: map[string]any{
			"directory":      "/workspace/myapp",
			"feature_prompt": "Add OAuth login",
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected success, got tool error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "THE PLAN" {
		t.Errorf("expected the deliverable verbatim, got %q", got)
	}

	if len(reports.dirs) != 1 || reports.dirs[0] != "/workspace/myapp" {
		t.Errorf("expected report generated for the request directory, got %v", reports.dirs)
	}
	if len(consulter.runs) != 1 {
		t.Fatalf("expected one workflow run, got %d", len(consulter.runs))
	}
	run := consulter.runs[0]
	if run.workflow != "feature_planning" {
		t.Errorf("expected feature_planning workflow, got %s", run.workflow)
	}
	if run.input != "Add OAuth login" {
		t.Errorf("expected the feature prompt passed through, got %q", run.input)
	}
	if run.report.Text != "REPORT" {
		t.Errorf("expected the generated report passed through, got %q", run.report.Text)
	}
}

func TestCallTool_RoutesWorkflows(t *testing.T) {
	consulter := &stubConsulter{output: "ok"}
	srv := New(testServerConfig(), consulter, &stubReports{report: workflow.Report{Text: "r"}}, nil)
	session := startSession(t, srv)

	calls := []struct {
		tool     string
		args     map[string]any
		workflow string
		input    string
	}{
		{"plan_feature", map[string]any{"directory": "/p", "feature_prompt": "f"}, "feature_planning", "f"},
		{"plan_bug_fix", map[string]any{"directory": "/p", "bug_description": "b"}, "bug_fix_planning", "b"},
		{"explain_code", map[string]any{"directory": "/p", "explanation_query": "q"}, "code_explanation", "q"},
	}
	for _, call := range calls {
		res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      call.tool,
			Arguments: call.args,
		})
		if err != nil {
			t.Fatalf("CallTool %s failed: %v", call.tool, err)
		}
		if res.IsError {
			t.Fatalf("tool %s returned error: %s", call.tool, resultText(t, res))
		}
	}

	if len(consulter.runs) != len(calls) {
		t.Fatalf("expected %d runs, got %d", len(calls), len(consulter.runs))
	}
	for i, call := range calls {
		if consulter.runs[i].workflow != call.workflow {
			t.Errorf("call %s: expected workflow %s, got %s", call.tool, call.workflow, consulter.runs[i].workflow)
		}
		if consulter.runs[i].input != call.input {
			t.Errorf("call %s: expected input %q, got %q", call.tool, call.input, consulter.runs[i].input)
		}
	}
}

func TestCallTool_ReportFailure(t *testing.T) {
	consulter := &stubConsulter{output: "unused"}
	reports := &stubReports{err: errors.New("viewer exploded")}
	srv := New(testServerConfig(), consulter, reports, nil)
	session := startSession(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "plan_feature",
		Arguments: map[string]any{
			"directory":      "/workspace/myapp",
			"feature_prompt": "Add OAuth login",
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error when the report fails")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Failed to generate codebase report") {
		t.Errorf("expected report failure message, got %q", text)
	}
	if !strings.Contains(text, "viewer exploded") {
		t.Errorf("expected the underlying cause, got %q", text)
	}
	if len(consulter.runs) != 0 {
		t.Error("no workflow should run when the report fails")
	}
}

func TestCallTool_ConsultFailure(t *testing.T) {
	consulter := &stubConsulter{err: errors.New("all 4 attempts failed: upstream down")}
	srv := New(testServerConfig(), consulter, &stubReports{report: workflow.Report{Text: "r"}}, nil)
	session := startSession(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "plan_bug_fix",
		Arguments: map[string]any{
			"directory":       "/workspace/myapp",
			"bug_description": "crash on save",
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error when the consultation fails")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Failed to generate bug fix plan") {
		t.Errorf("expected the bug fix failure prefix, got %q", text)
	}
	if !strings.Contains(text, "all 4 attempts failed") {
		t.Errorf("expected the underlying cause, got %q", text)
	}
}

func TestCallTool_PersistsConsultation(t *testing.T) {
	store := newCaptureStore()
	consulter := &stubConsulter{output: "THE PLAN"}
	reports := &stubReports{report: workflow.Report{Text: "REPORT", Truncated: true}}
	srv := New(testServerConfig(), consulter, reports, store)
	session := startSession(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "plan_feature",
		Arguments: map[string]any{
			"directory":      "/workspace/myapp",
			"feature_prompt": "Add OAuth login",
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected success, got tool error: %s", resultText(t, res))
	}

	record := store.waitForSave(t)
	if record.Tool != "plan_feature" {
		t.Errorf("expected tool recorded, got %s", record.Tool)
	}
	if record.Status != "success" {
		t.Errorf("expected success status, got %s", record.Status)
	}
	if record.Result != "THE PLAN" {
		t.Errorf("expected deliverable recorded, got %q", record.Result)
	}
	if !record.Truncated {
		t.Error("expected the truncation flag recorded")
	}
	if record.DurationMs < 0 {
		t.Errorf("expected non-negative duration, got %d", record.DurationMs)
	}
}

func TestCallTool_PersistsFailure(t *testing.T) {
	store := newCaptureStore()
	reports := &stubReports{err: errors.New("viewer exploded")}
	srv := New(testServerConfig(), &stubConsulter{}, reports, store)
	session := startSession(t, srv)

	if _, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "explain_code",
		Arguments: map[string]any{
			"directory":         "/workspace/myapp",
			"explanation_query": "how does startup work",
		},
	}); err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}

	record := store.waitForSave(t)
	if record.Status != "error" {
		t.Errorf("expected error status, got %s", record.Status)
	}
	if !strings.Contains(record.Error, "viewer exploded") {
		t.Errorf("expected the failure recorded, got %q", record.Error)
	}
	if record.Result != "" {
		t.Errorf("expected no result on failure, got %q", record.Result)
	}
}
