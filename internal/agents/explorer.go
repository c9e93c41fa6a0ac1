package agents

import (
	"context"
	"fmt"
	"log/slog"

	"insightpipe/internal/workflow"
)

// Explorer profiles the active dataset: row/column counts and per
// column null tallies. Nulls lower the reported quality score.
type Explorer struct {
	base
}

// NewExplorer creates the built-in explorer agent.
func NewExplorer(retry workflow.RetryPolicy, logger *slog.Logger) *Explorer {
	return &Explorer{base: newBase(workflow.AgentNameExplorer, retry, logger)}
}

// Execute profiles the resolved input dataset.
func (e *Explorer) Execute(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
	return e.run(ctx, func(ctx context.Context) (*workflow.Result, error) {
		ds, ok := dataset(params)
		if !ok {
			return failure(workflow.ErrorTypeNoData, "explorer received no dataset"), nil
		}

		profile := workflow.NewDataset("column", "nulls")
		totalNulls := 0
		var warnings []string
		for i, col := range ds.Columns {
			nulls := 0
			for _, row := range ds.Rows {
				if i >= len(row) || row[i] == nil {
					nulls++
				}
			}
			totalNulls += nulls
			profile.Append([]any{col, float64(nulls)})
			if nulls > 0 {
				warnings = append(warnings, fmt.Sprintf("%d null values in column %s", nulls, col))
			}
		}

		quality := 1.0
		if ds.NumRows() > 0 && totalNulls > 0 {
			cells := ds.NumRows() * ds.NumColumns()
			quality = 1.0 - float64(totalNulls)/float64(cells)
		}

		e.logger.Debug("dataset_explored",
			slog.Int("rows", ds.NumRows()),
			slog.Int("columns", ds.NumColumns()),
			slog.Int("nulls", totalNulls))

		return &workflow.Result{
			Success:      true,
			Data:         profile,
			QualityScore: quality,
			Warnings:     warnings,
			Metadata: map[string]any{
				"rows":    ds.NumRows(),
				"columns": ds.NumColumns(),
				"nulls":   totalNulls,
			},
			RowsProcessed: ds.NumRows(),
		}, nil
	})
}
