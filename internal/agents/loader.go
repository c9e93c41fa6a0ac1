package agents

import (
	"context"
	"encoding/csv"
	"log/slog"
	"strconv"
	"strings"

	"insightpipe/internal/workflow"
)

// Loader materializes a dataset from the task parameters: either an
// inline rows/columns pair or raw CSV text. Real deployments register
// their own loader agent for files and databases; parsing those
// formats is that agent's business, not the engine's.
type Loader struct {
	base
}

// NewLoader creates the built-in loader agent.
func NewLoader(retry workflow.RetryPolicy, logger *slog.Logger) *Loader {
	return &Loader{base: newBase(workflow.AgentNameLoader, retry, logger)}
}

// Execute builds the dataset named by the "source" parameter.
func (l *Loader) Execute(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
	return l.run(ctx, func(ctx context.Context) (*workflow.Result, error) {
		source, _ := params[workflow.ParamSource].(string)

		if csvText, ok := params["csv"].(string); ok {
			return l.fromCSV(source, csvText)
		}
		if ds, ok := params["rows"].(*workflow.Dataset); ok {
			return l.done(source, ds, 1.0), nil
		}
		return failure(workflow.ErrorTypeNoData,
			"loader needs inline rows or csv text; register a custom loader for external sources"), nil
	})
}

func (l *Loader) fromCSV(source, text string) (*workflow.Result, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return failure(workflow.ErrorTypeExecution, "csv parse failed: "+err.Error()), nil
	}
	if len(records) == 0 {
		return failure(workflow.ErrorTypeNoData, "csv source is empty"), nil
	}

	ds := workflow.NewDataset(records[0]...)
	for _, record := range records[1:] {
		row := make([]any, len(record))
		for i, cell := range record {
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				row[i] = f
			} else {
				row[i] = cell
			}
		}
		ds.Append(row)
	}
	return l.done(source, ds, 1.0), nil
}

func (l *Loader) done(source string, ds *workflow.Dataset, quality float64) *workflow.Result {
	l.logger.Debug("dataset_loaded",
		slog.String("source", source),
		slog.Int("rows", ds.NumRows()),
		slog.Int("columns", ds.NumColumns()))
	return &workflow.Result{
		Success:      true,
		Data:         ds,
		QualityScore: quality,
		Metadata: map[string]any{
			"source": source,
			"rows":   ds.NumRows(),
		},
		RowsProcessed: ds.NumRows(),
	}
}
