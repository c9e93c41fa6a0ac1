package agents

import (
	"context"
	"log/slog"

	"insightpipe/internal/workflow"
)

// Stub is the built-in stand-in for the model-backed roles (predictor,
// recommender, narrative generator, visualizer, reporter). It returns
// an honest envelope describing what a real backend would have done,
// so pipelines wired against the canonical routing table run end to
// end without one.
type Stub struct {
	base
}

// NewStub creates a stub agent answering to the given canonical name.
func NewStub(name string, retry workflow.RetryPolicy, logger *slog.Logger) *Stub {
	return &Stub{base: newBase(name, retry, logger)}
}

// Execute acknowledges the task with a summary of its input.
func (s *Stub) Execute(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
	return s.run(ctx, func(ctx context.Context) (*workflow.Result, error) {
		ds, ok := dataset(params)
		if !ok {
			return failure(workflow.ErrorTypeNoData, s.name+" received no dataset"), nil
		}

		s.logger.Debug("stub_agent_executed",
			slog.String("agent", s.name),
			slog.String("task_type", string(taskType)),
			slog.Int("input_rows", ds.NumRows()))

		return &workflow.Result{
			Success:      true,
			Data:         ds,
			QualityScore: 1.0,
			Warnings:     []string{s.name + " is a built-in stub; register a real backend for production output"},
			Metadata: map[string]any{
				"stub":       true,
				"input_rows": ds.NumRows(),
			},
			RowsProcessed: ds.NumRows(),
		}, nil
	})
}
