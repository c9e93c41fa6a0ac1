// Package agents ships thin, deterministic reference agents for every
// canonical pipeline role. They exist so the engine can run end to end
// without external model backends; the statistical content of real
// analysis agents is intentionally not reproduced here.
package agents

import (
	"context"
	"log/slog"

	"insightpipe/internal/workflow"
)

// base carries the pieces every built-in agent shares.
type base struct {
	name   string
	retry  workflow.RetryPolicy
	logger *slog.Logger
}

func newBase(name string, retry workflow.RetryPolicy, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{name: name, retry: retry, logger: logger}
}

// Name returns the agent name.
func (b base) Name() string { return b.name }

// run executes compute under the agent-local retry policy. Transient
// failures inside compute must be marked retryable to be retried; the
// orchestrator above never retries.
func (b base) run(ctx context.Context, compute func(ctx context.Context) (*workflow.Result, error)) (*workflow.Result, error) {
	var result *workflow.Result
	err := workflow.WithRetry(ctx, b.retry, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = compute(ctx)
		return innerErr
	})
	return result, err
}

// dataset pulls the resolved input dataset the router injected.
func dataset(params workflow.Parameters) (*workflow.Dataset, bool) {
	ds, ok := params[workflow.ParamData].(*workflow.Dataset)
	return ds, ok
}

// failure builds a failed envelope with a single error detail.
func failure(errType workflow.ErrorType, message string) *workflow.Result {
	return &workflow.Result{
		Success: false,
		Errors:  []workflow.ErrorDetail{{Type: string(errType), Message: message}},
	}
}

// RegisterBuiltins registers a built-in agent under every canonical
// name. Used by the binaries and integration tests.
func RegisterBuiltins(registry *workflow.Registry, retry workflow.RetryPolicy, logger *slog.Logger) error {
	builtins := []workflow.Agent{
		NewLoader(retry, logger),
		NewExplorer(retry, logger),
		NewAggregator(retry, logger),
		NewAnomalyDetector(retry, logger),
		NewStub(workflow.AgentNamePredictor, retry, logger),
		NewStub(workflow.AgentNameRecommender, retry, logger),
		NewStub(workflow.AgentNameNarrativeGenerator, retry, logger),
		NewStub(workflow.AgentNameVisualizer, retry, logger),
		NewStub(workflow.AgentNameReporter, retry, logger),
	}
	for _, agent := range builtins {
		if err := registry.Register(agent.Name(), agent); err != nil {
			return err
		}
	}
	return nil
}
