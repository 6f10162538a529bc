// Package consult runs the two-phase consultation protocol: an analysis pass
// over the codebase report followed by a deliverable pass conditioned on the
// analysis.
package consult

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"codebase-consultant/internal/keypool"
	"codebase-consultant/internal/llm"
	"codebase-consultant/internal/metrics"
	"codebase-consultant/internal/types"
	"codebase-consultant/internal/workflow"
)

// Transport delivers one instruction to the model endpoint. Implementations
// own fault tolerance; the orchestrator treats a returned error as terminal
// for the phase.
type Transport interface {
	Send(ctx context.Context, inst llm.Instruction, apiKey string) (string, error)
}

// Orchestrator drives workflows through both phases, drawing a fresh
// credential from the pool once per phase.
type Orchestrator struct {
	pool      *keypool.Pool
	transport Transport
}

// New returns an Orchestrator over the given pool and transport.
func New(pool *keypool.Pool, transport Transport) *Orchestrator {
	return &Orchestrator{pool: pool, transport: transport}
}

// Run executes wf end to end and returns the phase-two deliverable verbatim.
// Phase one must complete before phase two is built, because the second
// instruction embeds the first phase's output. A failed phase aborts the run;
// phase two is never attempted after a phase-one failure.
func (o *Orchestrator) Run(ctx context.Context, wf workflow.Workflow, input string, report workflow.Report) (string, error) {
	analysis, err := o.send(ctx, wf, 1, wf.Phase1(input, report))
	if err != nil {
		return "", err
	}

	result, err := o.send(ctx, wf, 2, wf.Phase2(input, report, analysis))
	if err != nil {
		return "", err
	}
	return result, nil
}

func (o *Orchestrator) send(ctx context.Context, wf workflow.Workflow, phase int, inst llm.Instruction) (string, error) {
	key := o.pool.Next()
	metrics.KeyRotations.Inc()

	slog.Info("running workflow phase", "workflow", wf.Name(), "phase", phase)
	start := time.Now()
	out, err := o.transport.Send(ctx, inst, key)
	metrics.PhaseDuration.WithLabelValues(wf.Name(), strconv.Itoa(phase)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &types.PhaseError{Workflow: wf.Name(), Phase: phase, Err: err}
	}

	slog.Debug("workflow phase complete",
		"workflow", wf.Name(),
		"phase", phase,
		"duration", time.Since(start),
		"output_chars", len(out))
	return out, nil
}
