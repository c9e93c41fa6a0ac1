package agents

import (
	"context"
	"log/slog"
	"math"

	"insightpipe/internal/workflow"
)

// Default z-score cutoff for the built-in detector.
const defaultZThreshold = 3.0

// AnomalyDetector flags rows whose value in a numeric column deviates
// from the mean by more than a z-score threshold. It is a deterministic
// stand-in for a real model backend (isolation forest and friends live
// behind externally registered agents).
type AnomalyDetector struct {
	base
}

// NewAnomalyDetector creates the built-in anomaly detector agent.
func NewAnomalyDetector(retry workflow.RetryPolicy, logger *slog.Logger) *AnomalyDetector {
	return &AnomalyDetector{base: newBase(workflow.AgentNameAnomalyDetector, retry, logger)}
}

// Execute scans the "column" parameter (or the first numeric column).
func (d *AnomalyDetector) Execute(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
	return d.run(ctx, func(ctx context.Context) (*workflow.Result, error) {
		ds, ok := dataset(params)
		if !ok {
			return failure(workflow.ErrorTypeNoData, "anomaly detector received no dataset"), nil
		}

		column, _ := params["column"].(string)
		idx := -1
		if column != "" {
			var err error
			if idx, err = ds.ColumnIndex(column); err != nil {
				return failure(workflow.ErrorTypeExecution, err.Error()), nil
			}
		} else {
			idx, column = firstNumericColumn(ds)
			if idx < 0 {
				return failure(workflow.ErrorTypeExecution, "no numeric column to scan"), nil
			}
		}

		threshold := defaultZThreshold
		if t, ok := params["threshold"].(float64); ok && t > 0 {
			threshold = t
		}

		values := make([]float64, 0, ds.NumRows())
		for _, row := range ds.Rows {
			if idx < len(row) {
				if v, ok := row[idx].(float64); ok {
					values = append(values, v)
				}
			}
		}
		mean, stddev := meanStddev(values)

		out := workflow.NewDataset("row", column, "zscore")
		for i, row := range ds.Rows {
			if idx >= len(row) {
				continue
			}
			v, ok := row[idx].(float64)
			if !ok || stddev == 0 {
				continue
			}
			z := (v - mean) / stddev
			if math.Abs(z) > threshold {
				out.Append([]any{float64(i), v, z})
			}
		}

		d.logger.Debug("anomalies_detected",
			slog.String("column", column),
			slog.Int("anomalies", out.NumRows()),
			slog.Float64("threshold", threshold))

		return &workflow.Result{
			Success:      true,
			Data:         out,
			QualityScore: 1.0,
			Metadata: map[string]any{
				"column":    column,
				"anomalies": out.NumRows(),
				"mean":      mean,
				"stddev":    stddev,
			},
			RowsProcessed: ds.NumRows(),
		}, nil
	})
}

func firstNumericColumn(ds *workflow.Dataset) (int, string) {
	for _, row := range ds.Rows {
		for i, cell := range row {
			if _, ok := cell.(float64); ok {
				return i, ds.Columns[i]
			}
		}
	}
	return -1, ""
}

func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
