package workflow

import (
	"math"
	"sync"
)

// Contribution of each task outcome to the running quality mean.
const (
	contributionSuccess = 1.0
	contributionPartial = 0.5
	contributionFailure = 0.0
)

// QualityTracker aggregates task outcomes into a single 0-1 score.
// Counts only ever grow; Reset starts a fresh aggregate.
type QualityTracker struct {
	mu sync.Mutex

	tasksSuccessful int
	tasksPartial    int
	tasksFailed     int
	rowsProcessed   int
	rowsFailed      int
	errorsByType    map[ErrorType]int
}

// QualitySummary is the structured form of the aggregate for reporting.
type QualitySummary struct {
	TasksSuccessful int               `json:"tasks_successful"`
	TasksPartial    int               `json:"tasks_partial"`
	TasksFailed     int               `json:"tasks_failed"`
	RowsProcessed   int               `json:"rows_processed"`
	RowsFailed      int               `json:"rows_failed"`
	ErrorsByType    map[ErrorType]int `json:"errors_by_type"`
	Score           float64           `json:"score"`
}

// NewQualityTracker creates an empty quality aggregate.
func NewQualityTracker() *QualityTracker {
	return &QualityTracker{errorsByType: make(map[ErrorType]int)}
}

// AddSuccess records a fully successful task.
func (q *QualityTracker) AddSuccess() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasksSuccessful++
}

// AddPartial records a task that succeeded below the quality threshold.
func (q *QualityTracker) AddPartial() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasksPartial++
}

// AddFailure records a failed task.
func (q *QualityTracker) AddFailure() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasksFailed++
}

// AddErrorType increments the per-type error counter used by the
// recommendation lookup.
func (q *QualityTracker) AddErrorType(errType ErrorType) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errorsByType[errType]++
}

// AddRows records row-level throughput reported by agents.
func (q *QualityTracker) AddRows(processed, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rowsProcessed += processed
	q.rowsFailed += failed
}

// Score returns the running mean contribution rounded to 3 decimals.
// With nothing recorded the score is 1.0.
func (q *QualityTracker) Score() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scoreLocked()
}

func (q *QualityTracker) scoreLocked() float64 {
	total := q.tasksSuccessful + q.tasksPartial + q.tasksFailed
	if total == 0 {
		return 1.0
	}
	sum := float64(q.tasksSuccessful)*contributionSuccess +
		float64(q.tasksPartial)*contributionPartial +
		float64(q.tasksFailed)*contributionFailure
	return math.Round(sum/float64(total)*1000) / 1000
}

// TotalTasks returns the number of recorded task outcomes.
func (q *QualityTracker) TotalTasks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasksSuccessful + q.tasksPartial + q.tasksFailed
}

// Summary returns the full aggregate.
func (q *QualityTracker) Summary() QualitySummary {
	q.mu.Lock()
	defer q.mu.Unlock()

	byType := make(map[ErrorType]int, len(q.errorsByType))
	for k, v := range q.errorsByType {
		byType[k] = v
	}
	return QualitySummary{
		TasksSuccessful: q.tasksSuccessful,
		TasksPartial:    q.tasksPartial,
		TasksFailed:     q.tasksFailed,
		RowsProcessed:   q.rowsProcessed,
		RowsFailed:      q.rowsFailed,
		ErrorsByType:    byType,
		Score:           q.scoreLocked(),
	}
}

// Reset starts a fresh aggregate.
func (q *QualityTracker) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasksSuccessful = 0
	q.tasksPartial = 0
	q.tasksFailed = 0
	q.rowsProcessed = 0
	q.rowsFailed = 0
	q.errorsByType = make(map[ErrorType]int)
}
