package agents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightpipe/internal/agents"
	"insightpipe/internal/workflow"
)

func salesDataset() *workflow.Dataset {
	ds := workflow.NewDataset("region", "revenue")
	ds.Append([]any{"north", 100.0})
	ds.Append([]any{"south", 250.0})
	ds.Append([]any{"north", 50.0})
	return ds
}

func dataParams(ds *workflow.Dataset) workflow.Parameters {
	return workflow.Parameters{workflow.ParamData: ds}
}

// resultDataset asserts the result payload is a dataset and returns it.
func resultDataset(t *testing.T, result *workflow.Result) *workflow.Dataset {
	t.Helper()
	ds, ok := result.Data.(*workflow.Dataset)
	require.True(t, ok, "result data is %T, want *workflow.Dataset", result.Data)
	return ds
}

func TestLoaderParsesCSV(t *testing.T) {
	loader := agents.NewLoader(workflow.DefaultRetryPolicy(), nil)

	result, err := loader.Execute(context.Background(), workflow.TaskTypeLoadData, workflow.Parameters{
		workflow.ParamSource: "inline",
		"csv":                "region,revenue\nnorth,100\nsouth,250\n",
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	ds := resultDataset(t, result)
	assert.Equal(t, []string{"region", "revenue"}, ds.Columns)
	assert.Equal(t, 2, ds.NumRows())
	// Numeric cells come back as floats, not strings.
	assert.Equal(t, 100.0, ds.Rows[0][1])
	assert.Equal(t, "north", ds.Rows[0][0])
	assert.Equal(t, "inline", result.Metadata["source"])
	assert.Equal(t, 2, result.RowsProcessed)
}

func TestLoaderAcceptsInlineRows(t *testing.T) {
	loader := agents.NewLoader(workflow.DefaultRetryPolicy(), nil)

	result, err := loader.Execute(context.Background(), workflow.TaskTypeLoadData, workflow.Parameters{
		workflow.ParamSource: "memory",
		"rows":               salesDataset(),
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 3, resultDataset(t, result).NumRows())
	assert.Equal(t, 1.0, result.QualityScore)
}

func TestLoaderFailsWithoutInput(t *testing.T) {
	loader := agents.NewLoader(workflow.DefaultRetryPolicy(), nil)

	result, err := loader.Execute(context.Background(), workflow.TaskTypeLoadData, workflow.Parameters{
		workflow.ParamSource: "nowhere",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, string(workflow.ErrorTypeNoData), result.Errors[0].Type)
}

func TestLoaderReportsMalformedCSV(t *testing.T) {
	loader := agents.NewLoader(workflow.DefaultRetryPolicy(), nil)

	result, err := loader.Execute(context.Background(), workflow.TaskTypeLoadData, workflow.Parameters{
		"csv": "a,b\n1,2,3,4,5\n",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, string(workflow.ErrorTypeExecution), result.Errors[0].Type)
}

func TestExplorerProfilesNulls(t *testing.T) {
	ds := workflow.NewDataset("region", "revenue")
	ds.Append([]any{"north", 100.0})
	ds.Append([]any{"south", nil})
	ds.Append([]any{nil, 50.0})

	explorer := agents.NewExplorer(workflow.DefaultRetryPolicy(), nil)
	result, err := explorer.Execute(context.Background(), workflow.TaskTypeExplore, dataParams(ds))

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, []string{"column", "nulls"}, resultDataset(t, result).Columns)
	// 2 nulls across 6 cells.
	assert.InDelta(t, 1.0-2.0/6.0, result.QualityScore, 1e-9)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 2, result.Metadata["nulls"])
}

func TestExplorerCleanDatasetScoresPerfect(t *testing.T) {
	explorer := agents.NewExplorer(workflow.DefaultRetryPolicy(), nil)
	result, err := explorer.Execute(context.Background(), workflow.TaskTypeExplore, dataParams(salesDataset()))

	require.NoError(t, err)
	assert.Equal(t, 1.0, result.QualityScore)
	assert.Empty(t, result.Warnings)
}

func TestAggregatorGroupsAndSums(t *testing.T) {
	aggregator := agents.NewAggregator(workflow.DefaultRetryPolicy(), nil)

	params := dataParams(salesDataset())
	params["group_by"] = "region"
	params["sum"] = "revenue"
	result, err := aggregator.Execute(context.Background(), workflow.TaskTypeAggregate, params)

	require.NoError(t, err)
	require.True(t, result.Success)
	ds := resultDataset(t, result)
	assert.Equal(t, []string{"region", "count", "sum_revenue"}, ds.Columns)
	require.Equal(t, 2, ds.NumRows())
	// Groups come back sorted.
	assert.Equal(t, []any{"north", 2.0, 150.0}, ds.Rows[0])
	assert.Equal(t, []any{"south", 1.0, 250.0}, ds.Rows[1])
}

func TestAggregatorSkipsRowsMissingGroupKey(t *testing.T) {
	ds := salesDataset()
	ds.Append([]any{nil, 75.0})

	aggregator := agents.NewAggregator(workflow.DefaultRetryPolicy(), nil)
	params := dataParams(ds)
	params["group_by"] = "region"
	result, err := aggregator.Execute(context.Background(), workflow.TaskTypeAggregate, params)

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.InDelta(t, 0.75, result.QualityScore, 1e-9)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, 1, result.Metadata["skipped_rows"])
	assert.Equal(t, 3, result.RowsProcessed)
	assert.Equal(t, 1, result.RowsFailed)
}

func TestAggregatorRejectsUnknownColumn(t *testing.T) {
	aggregator := agents.NewAggregator(workflow.DefaultRetryPolicy(), nil)
	params := dataParams(salesDataset())
	params["group_by"] = "nonexistent"
	result, err := aggregator.Execute(context.Background(), workflow.TaskTypeAggregate, params)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, string(workflow.ErrorTypeExecution), result.Errors[0].Type)
}

func TestAnomalyDetectorFlagsOutliers(t *testing.T) {
	ds := workflow.NewDataset("value")
	for i := 0; i < 20; i++ {
		ds.Append([]any{10.0})
	}
	ds.Append([]any{1000.0})

	detector := agents.NewAnomalyDetector(workflow.DefaultRetryPolicy(), nil)
	params := dataParams(ds)
	params["threshold"] = 2.0
	result, err := detector.Execute(context.Background(), workflow.TaskTypeDetectAnomalies, params)

	require.NoError(t, err)
	require.True(t, result.Success)
	ds = resultDataset(t, result)
	require.Equal(t, 1, ds.NumRows())
	assert.Equal(t, 20.0, ds.Rows[0][0])
	assert.Equal(t, 1000.0, ds.Rows[0][1])
	assert.Equal(t, "value", result.Metadata["column"])
}

func TestAnomalyDetectorPicksFirstNumericColumn(t *testing.T) {
	detector := agents.NewAnomalyDetector(workflow.DefaultRetryPolicy(), nil)
	result, err := detector.Execute(context.Background(), workflow.TaskTypeDetectAnomalies, dataParams(salesDataset()))

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "revenue", result.Metadata["column"])
	// No row deviates past three sigma in this small set.
	assert.Equal(t, 0, resultDataset(t, result).NumRows())
}

func TestAnomalyDetectorNeedsNumericColumn(t *testing.T) {
	ds := workflow.NewDataset("name")
	ds.Append([]any{"only strings"})

	detector := agents.NewAnomalyDetector(workflow.DefaultRetryPolicy(), nil)
	result, err := detector.Execute(context.Background(), workflow.TaskTypeDetectAnomalies, dataParams(ds))

	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestStubPassesDatasetThrough(t *testing.T) {
	stub := agents.NewStub(workflow.AgentNamePredictor, workflow.DefaultRetryPolicy(), nil)

	result, err := stub.Execute(context.Background(), workflow.TaskTypePredict, dataParams(salesDataset()))

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 3, resultDataset(t, result).NumRows())
	assert.Equal(t, true, result.Metadata["stub"])
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "stub")
}

func TestStubFailsWithoutDataset(t *testing.T) {
	stub := agents.NewStub(workflow.AgentNameReporter, workflow.DefaultRetryPolicy(), nil)

	result, err := stub.Execute(context.Background(), workflow.TaskTypeReport, workflow.Parameters{})

	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestRegisterBuiltinsCoversEveryRole(t *testing.T) {
	registry := workflow.NewRegistry()
	require.NoError(t, agents.RegisterBuiltins(registry, workflow.DefaultRetryPolicy(), nil))

	assert.Equal(t, len(workflow.TaskTypes()), registry.Count())
	for _, taskType := range workflow.TaskTypes() {
		name, ok := workflow.AgentFor(taskType)
		require.True(t, ok)
		agent, err := registry.MustGet(name)
		require.NoError(t, err)
		assert.Equal(t, name, agent.Name())
	}
}
