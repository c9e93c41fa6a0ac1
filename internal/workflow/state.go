package workflow

import (
	"sync"
	"time"
)

// Status is the workflow execution status enum.
type Status string

const (
	StatusPending            Status = "pending"
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusFailed             Status = "failed"
)

// statusRank enforces forward-only transitions. Terminal states share a
// rank; once reached, no further transition is accepted.
var statusRank = map[Status]int{
	StatusPending:            0,
	StatusRunning:            1,
	StatusCompleted:          2,
	StatusPartiallyCompleted: 2,
	StatusFailed:             2,
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return statusRank[s] == 2
}

// State is the mutable execution state of one running workflow.
// Created when execution is invoked, returned when it finishes.
type State struct {
	mu sync.RWMutex

	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	TaskResults map[string]*Result `json:"task_results"`
	Outcomes    []TaskOutcome      `json:"outcomes"`
	Completed   int                `json:"completed_tasks"`
	Failed      int                `json:"failed_tasks"`

	Error error `json:"-"`
}

// NewState creates a pending workflow state.
func NewState(id, name string) *State {
	return &State{
		ID:          id,
		Name:        name,
		Status:      StatusPending,
		StartTime:   time.Now(),
		TaskResults: make(map[string]*Result),
		Outcomes:    make([]TaskOutcome, 0),
	}
}

// transition moves the status forward; backward moves are dropped.
func (s *State) transition(next Status) bool {
	if statusRank[next] < statusRank[s.Status] || s.Status.Terminal() {
		return false
	}
	s.Status = next
	return true
}

// Start marks the workflow as running.
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transition(StatusRunning) {
		s.StartTime = time.Now()
	}
}

// Complete marks the workflow completed.
func (s *State) Complete() {
	s.finish(StatusCompleted, nil)
}

// CompletePartially marks the workflow partially completed.
func (s *State) CompletePartially() {
	s.finish(StatusPartiallyCompleted, nil)
}

// Fail marks the workflow failed.
func (s *State) Fail(err error) {
	s.finish(StatusFailed, err)
}

func (s *State) finish(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transition(status) {
		now := time.Now()
		s.EndTime = &now
		s.Error = err
	}
}

// RecordSuccess stores a successful task's result.
func (s *State) RecordSuccess(taskID string, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TaskResults[taskID] = result
	s.Completed++
}

// RecordFailure stores a failed task's result (which may be nil when
// the failure was structural).
func (s *State) RecordFailure(taskID string, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result != nil {
		s.TaskResults[taskID] = result
	}
	s.Failed++
}

// AddOutcome appends a per-task outcome record.
func (s *State) AddOutcome(outcome TaskOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outcomes = append(s.Outcomes, outcome)
}

// CurrentStatus returns the status under lock.
func (s *State) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Counts returns (completed, failed) under lock.
func (s *State) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Completed, s.Failed
}

// Duration returns wall time since start, or total time once finished.
func (s *State) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Snapshot copies the state into a result document.
func (s *State) Snapshot(totalTasks int, quality float64) *WorkflowResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*Result, len(s.TaskResults))
	for k, v := range s.TaskResults {
		results[k] = v
	}
	outcomes := make([]TaskOutcome, len(s.Outcomes))
	copy(outcomes, s.Outcomes)

	res := &WorkflowResult{
		WorkflowID:     s.ID,
		Name:           s.Name,
		Status:         s.Status,
		TotalTasks:     totalTasks,
		CompletedTasks: s.Completed,
		FailedTasks:    s.Failed,
		TaskResults:    results,
		Outcomes:       outcomes,
		QualityScore:   quality,
	}
	if s.EndTime != nil {
		res.Duration = s.EndTime.Sub(s.StartTime)
	} else {
		res.Duration = time.Since(s.StartTime)
	}
	if s.Error != nil {
		res.Error = s.Error.Error()
	}
	return res
}
