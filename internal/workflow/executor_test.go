package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightpipe/internal/workflow"
	"insightpipe/internal/workflow/testutil"
)

// recordingObserver captures TrackSuccess/TrackError calls.
type recordingObserver struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (o *recordingObserver) TrackSuccess(agent, worker, operation string, _ map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes = append(o.successes, agent+"/"+worker+"/"+operation)
}

func (o *recordingObserver) TrackError(agent, worker, errType, _ string, _ map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, agent+"/"+worker+"/"+errType)
}

func threeTaskRequest(critical bool) workflow.Request {
	return workflow.Request{
		ID: "wf-test",
		Tasks: []workflow.Task{
			{Type: workflow.TaskTypeLoadData, Critical: true, Parameters: workflow.Parameters{"source": "s"}},
			{Type: workflow.TaskTypeExplore, Critical: critical},
			{Type: workflow.TaskTypeVisualize},
		},
	}
}

func TestExecuteAllTasksSucceed(t *testing.T) {
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	exec := workflow.NewExecutor(registry, nil)

	result, err := exec.Execute(context.Background(), threeTaskRequest(true))
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, result.Status)
	assert.Equal(t, 3, result.TotalTasks)
	assert.Equal(t, 3, result.CompletedTasks)
	assert.Equal(t, 0, result.FailedTasks)
	assert.Equal(t, 1.0, result.QualityScore)
	assert.Len(t, result.TaskResults, 3)
}

func TestExecuteCriticalFailureFailsFast(t *testing.T) {
	registry := workflow.NewRegistry()
	agents := testutil.RegisterPipelineAgents(registry)
	require.NoError(t, registry.Unregister("explorer"))
	require.NoError(t, registry.Register("explorer", testutil.NewFailingAgent("explorer", "exploration broke")))

	exec := workflow.NewExecutor(registry, nil)
	result, err := exec.Execute(context.Background(), threeTaskRequest(true))

	require.Error(t, err)
	assert.Equal(t, workflow.StatusFailed, result.Status)
	assert.Equal(t, 1, result.CompletedTasks)
	assert.Equal(t, 1, result.FailedTasks)
	// Task 3 never executes.
	assert.Equal(t, 0, agents["visualizer"].Calls())
	assert.NotContains(t, result.TaskResults, "visualize[2]")
	// The error names the failing task and agent.
	assert.Contains(t, result.Error, "explore[1]")
	assert.Contains(t, err.Error(), "critical task failed")

	// A mid-run failure is not a structural rejection: callers still
	// get the full result document to report.
	var wfErr *workflow.Error
	require.True(t, errors.As(err, &wfErr))
	assert.False(t, wfErr.Structural())
}

func TestExecuteNonCriticalFailureContinues(t *testing.T) {
	registry := workflow.NewRegistry()
	agents := testutil.RegisterPipelineAgents(registry)
	require.NoError(t, registry.Unregister("explorer"))
	require.NoError(t, registry.Register("explorer", testutil.NewFailingAgent("explorer", "exploration broke")))

	exec := workflow.NewExecutor(registry, nil)
	result, err := exec.Execute(context.Background(), threeTaskRequest(false))

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPartiallyCompleted, result.Status)
	assert.Equal(t, 2, result.CompletedTasks)
	assert.Equal(t, 1, result.FailedTasks)
	// All 3 tasks attempted; the last one has a recorded result.
	assert.Equal(t, 1, agents["visualizer"].Calls())
	assert.Contains(t, result.TaskResults, "visualize[2]")
}

func TestExecuteVisualizeFailureScenario(t *testing.T) {
	// load_data(critical) + explore(critical) succeed, visualize fails.
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	require.NoError(t, registry.Unregister("visualizer"))
	require.NoError(t, registry.Register("visualizer", testutil.NewFailingAgent("visualizer", "chart backend down")))

	exec := workflow.NewExecutor(registry, nil)
	req := workflow.Request{
		Tasks: []workflow.Task{
			{Type: workflow.TaskTypeLoadData, Critical: true, Parameters: workflow.Parameters{"source": "s"}},
			{Type: workflow.TaskTypeExplore, Critical: true},
			{Type: workflow.TaskTypeVisualize, Critical: false},
		},
	}

	result, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPartiallyCompleted, result.Status)
	assert.Equal(t, 2, result.CompletedTasks)
	assert.Equal(t, 1, result.FailedTasks)
	assert.InDelta(t, 0.67, result.QualityScore, 0.005)
	assert.NotEmpty(t, result.WorkflowID) // generated UUID
}

func TestExecuteOutOfOrderRejected(t *testing.T) {
	registry := workflow.NewRegistry()
	agents := testutil.RegisterPipelineAgents(registry)
	exec := workflow.NewExecutor(registry, nil)

	req := workflow.Request{
		Tasks: []workflow.Task{
			{Type: workflow.TaskTypePredict},
			{Type: workflow.TaskTypeLoadData, Parameters: workflow.Parameters{"source": "s"}},
		},
	}
	result, err := exec.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrorTypeOutOfOrder, workflow.TypeOf(err))
	var wfErr *workflow.Error
	require.True(t, errors.As(err, &wfErr))
	assert.True(t, wfErr.Structural())
	assert.Equal(t, workflow.StatusFailed, result.Status)
	for _, agent := range agents {
		assert.Equal(t, 0, agent.Calls())
	}
}

func TestExecutePartialThreshold(t *testing.T) {
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	require.NoError(t, registry.Unregister("explorer"))
	// Succeeds, but below the 0.8 partial threshold.
	require.NoError(t, registry.Register("explorer", testutil.NewQualityAgent("explorer", 0.6)))

	exec := workflow.NewExecutor(registry, nil)
	req := workflow.Request{
		Tasks: []workflow.Task{
			{Type: workflow.TaskTypeLoadData, Critical: true, Parameters: workflow.Parameters{"source": "s"}},
			{Type: workflow.TaskTypeExplore},
		},
	}
	result, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)

	// Low-quality success is still a completion, scored 0.5.
	assert.Equal(t, workflow.StatusCompleted, result.Status)
	assert.Equal(t, 2, result.CompletedTasks)
	assert.Equal(t, 0.75, result.QualityScore)
	assert.True(t, result.Outcomes[1].Partial)
}

func TestExecuteReportsToObserver(t *testing.T) {
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	require.NoError(t, registry.Unregister("visualizer"))
	require.NoError(t, registry.Register("visualizer", testutil.NewFailingAgent("visualizer", "down")))

	observer := &recordingObserver{}
	exec := workflow.NewExecutor(registry, nil, workflow.WithObserver(observer))

	_, err := exec.Execute(context.Background(), threeTaskRequest(false))
	require.NoError(t, err)

	assert.Len(t, observer.successes, 2)
	assert.Contains(t, observer.successes, "loader/default/load_data")
	require.Len(t, observer.failures, 1)
	assert.Contains(t, observer.failures[0], "visualizer/default/")
}

func TestExecuteAggregatesRowCounts(t *testing.T) {
	registry := workflow.NewRegistry()
	require.NoError(t, registry.Register("loader", workflow.AgentFunc{
		AgentName: "loader",
		Fn: func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
			return &workflow.Result{
				Success:       true,
				Data:          testutil.SampleDataset(),
				QualityScore:  1.0,
				RowsProcessed: 3,
			}, nil
		},
	}))
	require.NoError(t, registry.Register("explorer", workflow.AgentFunc{
		AgentName: "explorer",
		Fn: func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
			return &workflow.Result{
				Success:       true,
				QualityScore:  1.0,
				RowsProcessed: 2,
				RowsFailed:    1,
			}, nil
		},
	}))

	exec := workflow.NewExecutor(registry, nil)
	req := workflow.Request{
		Tasks: []workflow.Task{
			{Type: workflow.TaskTypeLoadData, Parameters: workflow.Parameters{"source": "s"}},
			{Type: workflow.TaskTypeExplore},
		},
	}
	_, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)

	summary := exec.Quality().Summary()
	assert.Equal(t, 5, summary.RowsProcessed)
	assert.Equal(t, 1, summary.RowsFailed)
}

func TestExecuteCancelledContext(t *testing.T) {
	registry := workflow.NewRegistry()
	agents := testutil.RegisterPipelineAgents(registry)
	exec := workflow.NewExecutor(registry, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := exec.Execute(ctx, threeTaskRequest(false))
	require.Error(t, err)
	assert.Equal(t, workflow.ErrorTypeCancellation, workflow.TypeOf(err))
	assert.Equal(t, workflow.StatusFailed, result.Status)
	assert.Equal(t, 0, agents["loader"].Calls())
}

func TestExecutorResetKeepsAgents(t *testing.T) {
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	exec := workflow.NewExecutor(registry, nil)

	result, err := exec.Execute(context.Background(), threeTaskRequest(true))
	require.NoError(t, err)
	assert.True(t, exec.Cache().Exists(workflow.DefaultDataKey))

	exec.Reset()
	assert.Equal(t, 0, exec.Cache().Len())
	assert.Equal(t, 1.0, exec.Quality().Score())
	_, ok := exec.Result(result.WorkflowID)
	assert.False(t, ok)
	assert.Equal(t, 9, exec.Registry().Count())
}

func TestExecutorShutdownDiscardsAgents(t *testing.T) {
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	exec := workflow.NewExecutor(registry, nil)

	exec.Shutdown()
	assert.Equal(t, 0, exec.Registry().Count())
}

func TestExecutorKeepsHistory(t *testing.T) {
	registry := workflow.NewRegistry()
	testutil.RegisterPipelineAgents(registry)
	exec := workflow.NewExecutor(registry, nil)

	result, err := exec.Execute(context.Background(), threeTaskRequest(true))
	require.NoError(t, err)

	stored, ok := exec.Result(result.WorkflowID)
	require.True(t, ok)
	assert.Equal(t, result.Status, stored.Status)
	assert.Len(t, exec.Results(), 1)
}
