// Package retry wraps a provider client with the fixed-schedule retry policy
// applied to every model request.
package retry

import (
	"context"
	"log/slog"
	"time"

	"codebase-consultant/internal/llm"
	"codebase-consultant/internal/metrics"
	"codebase-consultant/internal/types"
)

// DefaultSchedule holds the waits applied between attempts. Total attempts are
// len(schedule)+1: one initial call plus one retry per entry.
var DefaultSchedule = []time.Duration{10 * time.Second, 30 * time.Second, 65 * time.Second}

// Sleeper blocks for the given duration or until the context is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Transport.
type Option func(*Transport)

// WithSchedule replaces the default backoff schedule.
func WithSchedule(schedule []time.Duration) Option {
	return func(t *Transport) {
		t.schedule = schedule
	}
}

// WithSleeper replaces the context-aware sleep, letting tests run without
// wall-clock waits.
func WithSleeper(sleep Sleeper) Option {
	return func(t *Transport) {
		t.sleep = sleep
	}
}

// Transport sends instructions to the model endpoint and retries failures on
// a fixed schedule. The upstream service reports overload and transient
// faults inconsistently, so every failure is retried the same way, without
// classification. One Send uses one credential for all of its attempts.
type Transport struct {
	client   llm.Client
	schedule []time.Duration
	sleep    Sleeper
}

// NewTransport wraps client with the retry policy.
func NewTransport(client llm.Client, opts ...Option) *Transport {
	t := &Transport{
		client:   client,
		schedule: DefaultSchedule,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send executes the instruction, retrying per the schedule. It returns the
// completion text on the first success. Once every attempt has failed it
// returns the last failure wrapped in a types.ExhaustedError. Cancelling the
// context aborts pending backoff waits as well as in-flight calls.
func (t *Transport) Send(ctx context.Context, inst llm.Instruction, apiKey string) (string, error) {
	attempts := len(t.schedule) + 1

	var lastErr error
	for i := 0; i < attempts; i++ {
		out, err := t.client.Complete(ctx, inst, apiKey)
		if err == nil {
			metrics.TransportAttempts.WithLabelValues("success").Inc()
			return out, nil
		}
		metrics.TransportAttempts.WithLabelValues("failure").Inc()
		lastErr = err

		if i == attempts-1 {
			break
		}
		wait := t.schedule[i]
		slog.Warn("model request failed, retrying",
			"provider", t.client.Name(),
			"attempt", i+1,
			"wait", wait,
			"error", err)
		if err := t.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	slog.Error("model request failed on every attempt",
		"provider", t.client.Name(),
		"attempts", attempts,
		"error", lastErr)
	return "", &types.ExhaustedError{Attempts: attempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
