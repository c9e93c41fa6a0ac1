package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"insightpipe/internal/workflow"
)

func TestQualityScoreEmptyIsOne(t *testing.T) {
	q := workflow.NewQualityTracker()
	assert.Equal(t, 1.0, q.Score())
	assert.Equal(t, 0, q.TotalTasks())
}

func TestQualityScoreAllSuccess(t *testing.T) {
	q := workflow.NewQualityTracker()
	for i := 0; i < 5; i++ {
		q.AddSuccess()
	}
	assert.Equal(t, 1.0, q.Score())
}

func TestQualityScoreAllFailure(t *testing.T) {
	q := workflow.NewQualityTracker()
	for i := 0; i < 4; i++ {
		q.AddFailure()
	}
	assert.Equal(t, 0.0, q.Score())
}

func TestQualityScoreMixed(t *testing.T) {
	q := workflow.NewQualityTracker()
	q.AddSuccess()
	q.AddSuccess()
	q.AddFailure()
	// 2/3 rounded to 3 decimals
	assert.Equal(t, 0.667, q.Score())

	q.AddPartial()
	// (1 + 1 + 0 + 0.5) / 4
	assert.Equal(t, 0.625, q.Score())
}

func TestQualityScoreBounds(t *testing.T) {
	q := workflow.NewQualityTracker()
	q.AddSuccess()
	q.AddPartial()
	q.AddFailure()
	score := q.Score()
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestQualitySummary(t *testing.T) {
	q := workflow.NewQualityTracker()
	q.AddSuccess()
	q.AddFailure()
	q.AddErrorType(workflow.ErrorTypeTimeout)
	q.AddErrorType(workflow.ErrorTypeTimeout)
	q.AddRows(100, 3)

	summary := q.Summary()
	assert.Equal(t, 1, summary.TasksSuccessful)
	assert.Equal(t, 1, summary.TasksFailed)
	assert.Equal(t, 0, summary.TasksPartial)
	assert.Equal(t, 100, summary.RowsProcessed)
	assert.Equal(t, 3, summary.RowsFailed)
	assert.Equal(t, 2, summary.ErrorsByType[workflow.ErrorTypeTimeout])
	assert.Equal(t, 0.5, summary.Score)
}

func TestQualityReset(t *testing.T) {
	q := workflow.NewQualityTracker()
	q.AddFailure()
	q.Reset()
	assert.Equal(t, 1.0, q.Score())
	assert.Equal(t, 0, q.TotalTasks())
}
