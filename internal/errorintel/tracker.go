// Package errorintel is the cross-cutting observer every task
// execution reports to. It keeps an append-only log of outcomes,
// clusters failures by (agent, worker, error type), scores per-worker
// health on a 0-100 scale and maps known error types to remediation
// advice.
//
// A Tracker is constructed explicitly and handed to the executor; there
// is no package-level singleton.
package errorintel

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"insightpipe/internal/workflow"
)

// Health status thresholds (0-100 scale).
const (
	healthyThreshold  = 80.0
	degradedThreshold = 50.0
)

// Health status labels.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// Record is one logged outcome. Records are immutable once appended.
type Record struct {
	Agent     string         `json:"agent"`
	Worker    string         `json:"worker"`
	Operation string         `json:"operation,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
}

// workerKey identifies one (agent, worker) pair.
type workerKey struct {
	agent  string
	worker string
}

// workerCounters is the rolling per-worker tally.
type workerCounters struct {
	successCount int
	failureCount int
	lastQuality  float64
	lastSeen     time.Time
}

// Tracker aggregates success/failure reports across all agents.
type Tracker struct {
	mu      sync.RWMutex
	log     []Record
	workers map[workerKey]*workerCounters
	logger  *slog.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		log:     make([]Record, 0),
		workers: make(map[workerKey]*workerCounters),
		logger:  logger,
	}
}

// TrackSuccess appends a success record and bumps worker counters.
func (t *Tracker) TrackSuccess(agent, worker, operation string, context map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = append(t.log, Record{
		Agent:     agent,
		Worker:    worker,
		Operation: operation,
		Severity:  "info",
		Context:   context,
		Timestamp: time.Now(),
		Success:   true,
	})

	counters := t.countersLocked(agent, worker)
	counters.successCount++
	counters.lastSeen = time.Now()
	if context != nil {
		if q, ok := context["quality_score"].(float64); ok {
			counters.lastQuality = q
		}
	}
}

// TrackError appends a failure record and bumps worker counters.
func (t *Tracker) TrackError(agent, worker, errType, message string, context map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = append(t.log, Record{
		Agent:     agent,
		Worker:    worker,
		ErrorType: errType,
		Severity:  "error",
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
	})

	counters := t.countersLocked(agent, worker)
	counters.failureCount++
	counters.lastSeen = time.Now()

	t.logger.Warn("error_tracked",
		slog.String("agent", agent),
		slog.String("worker", worker),
		slog.String("error_type", errType),
		slog.String("message", message))
}

func (t *Tracker) countersLocked(agent, worker string) *workerCounters {
	key := workerKey{agent: agent, worker: worker}
	counters, ok := t.workers[key]
	if !ok {
		counters = &workerCounters{lastQuality: 1.0}
		t.workers[key] = counters
	}
	return counters
}

// Records returns a copy of the append-only log.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.log))
	copy(out, t.log)
	return out
}

// ErrorCount returns the number of failure records.
func (t *Tracker) ErrorCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, rec := range t.log {
		if !rec.Success {
			count++
		}
	}
	return count
}

// WorkerHealth is the scored standing of one (agent, worker) pair.
type WorkerHealth struct {
	Agent        string  `json:"agent"`
	Worker       string  `json:"worker"`
	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`
	LastQuality  float64 `json:"last_quality"`
	Score        float64 `json:"score"`
	Status       string  `json:"status"`
}

// WorkerHealthFor scores one worker:
// successCount/(successCount+failureCount) scaled to 0-100. A worker
// with no history scores 100.
func (t *Tracker) WorkerHealthFor(agent, worker string) WorkerHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.healthLocked(workerKey{agent: agent, worker: worker})
}

func (t *Tracker) healthLocked(key workerKey) WorkerHealth {
	health := WorkerHealth{Agent: key.agent, Worker: key.worker, LastQuality: 1.0, Score: 100, Status: StatusHealthy}
	counters, ok := t.workers[key]
	if !ok {
		return health
	}

	health.SuccessCount = counters.successCount
	health.FailureCount = counters.failureCount
	health.LastQuality = counters.lastQuality

	total := counters.successCount + counters.failureCount
	if total > 0 {
		health.Score = float64(counters.successCount) / float64(total) * 100
	}
	health.Status = statusFor(health.Score)
	return health
}

func statusFor(score float64) string {
	switch {
	case score >= healthyThreshold:
		return StatusHealthy
	case score >= degradedThreshold:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// AllWorkerHealth returns the standing of every tracked worker, worst
// first.
func (t *Tracker) AllWorkerHealth() []WorkerHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]WorkerHealth, 0, len(t.workers))
	for key := range t.workers {
		out = append(out, t.healthLocked(key))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Worker < out[j].Worker
	})
	return out
}

// HealthReport implements workflow.HealthReporter: overall health is
// the mean worker score, 100 when nothing has run yet.
func (t *Tracker) HealthReport() *workflow.HealthSnapshot {
	workers := t.AllWorkerHealth()

	snapshot := &workflow.HealthSnapshot{
		Overall:  100,
		Status:   StatusHealthy,
		ByWorker: make(map[string]workflow.WorkerStanding, len(workers)),
	}
	if len(workers) == 0 {
		return snapshot
	}

	sum := 0.0
	for _, w := range workers {
		sum += w.Score
		snapshot.ByWorker[w.Agent+"/"+w.Worker] = workflow.WorkerStanding{
			Agent:        w.Agent,
			Worker:       w.Worker,
			SuccessCount: w.SuccessCount,
			FailureCount: w.FailureCount,
			Score:        w.Score,
			Status:       w.Status,
		}
	}
	snapshot.Overall = sum / float64(len(workers))
	snapshot.Status = statusFor(snapshot.Overall)
	return snapshot
}

// Reset discards the log and all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = make([]Record, 0)
	t.workers = make(map[workerKey]*workerCounters)
}
