package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"insightpipe/internal/workflow"
)

// Aggregator groups the active dataset by a column and reports per
// group row counts, plus the sum of an optional numeric column.
type Aggregator struct {
	base
}

// NewAggregator creates the built-in aggregator agent.
func NewAggregator(retry workflow.RetryPolicy, logger *slog.Logger) *Aggregator {
	return &Aggregator{base: newBase(workflow.AgentNameAggregator, retry, logger)}
}

// Execute groups the dataset by the "group_by" parameter.
func (a *Aggregator) Execute(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
	return a.run(ctx, func(ctx context.Context) (*workflow.Result, error) {
		ds, ok := dataset(params)
		if !ok {
			return failure(workflow.ErrorTypeNoData, "aggregator received no dataset"), nil
		}

		groupBy, _ := params["group_by"].(string)
		groupIdx, err := ds.ColumnIndex(groupBy)
		if err != nil {
			return failure(workflow.ErrorTypeExecution, err.Error()), nil
		}

		sumColumn, _ := params["sum"].(string)
		sumIdx := -1
		if sumColumn != "" {
			if sumIdx, err = ds.ColumnIndex(sumColumn); err != nil {
				return failure(workflow.ErrorTypeExecution, err.Error()), nil
			}
		}

		counts := make(map[string]int)
		sums := make(map[string]float64)
		skipped := 0
		for _, row := range ds.Rows {
			if groupIdx >= len(row) || row[groupIdx] == nil {
				skipped++
				continue
			}
			key := fmt.Sprintf("%v", row[groupIdx])
			counts[key]++
			if sumIdx >= 0 && sumIdx < len(row) {
				if v, ok := row[sumIdx].(float64); ok {
					sums[key] += v
				}
			}
		}

		keys := make([]string, 0, len(counts))
		for key := range counts {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		columns := []string{groupBy, "count"}
		if sumIdx >= 0 {
			columns = append(columns, "sum_"+sumColumn)
		}
		out := workflow.NewDataset(columns...)
		for _, key := range keys {
			row := []any{key, float64(counts[key])}
			if sumIdx >= 0 {
				row = append(row, sums[key])
			}
			out.Append(row)
		}

		quality := 1.0
		var warnings []string
		if skipped > 0 {
			quality = 1.0 - float64(skipped)/float64(ds.NumRows())
			warnings = append(warnings, fmt.Sprintf("%d rows skipped: missing %s", skipped, groupBy))
		}

		return &workflow.Result{
			Success:       true,
			Data:          out,
			QualityScore:  quality,
			Warnings:      warnings,
			Metadata:      map[string]any{"groups": len(keys), "skipped_rows": skipped},
			RowsProcessed: ds.NumRows() - skipped,
			RowsFailed:    skipped,
		}, nil
	})
}
