package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Executor runs workflows task by task through the router: strictly
// sequential, in definition order, blocking on every agent call.
// Critical task failures fail fast; non-critical failures are absorbed
// into a partial result. The data cache is the only shared mutable
// state between tasks.
type Executor struct {
	registry *Registry
	cache    *Cache
	router   *Router
	config   *Config
	quality  *QualityTracker
	observer TaskObserver
	health   HealthReporter
	sink     EventSink
	logger   *slog.Logger

	mu      sync.RWMutex
	history map[string]*WorkflowResult
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObserver wires a task observer (error intelligence tracker).
func WithObserver(observer TaskObserver) ExecutorOption {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// WithHealthReporter wires the health report source for results.
func WithHealthReporter(reporter HealthReporter) ExecutorOption {
	return func(e *Executor) { e.health = reporter }
}

// WithEventSink wires a progress event sink (websocket broadcaster).
func WithEventSink(sink EventSink) ExecutorOption {
	return func(e *Executor) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithLogger overrides the executor logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates a workflow executor with dependency injection.
func NewExecutor(registry *Registry, config *Config, opts ...ExecutorOption) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	e := &Executor{
		registry: registry,
		cache:    NewCache(),
		config:   config,
		quality:  NewQualityTracker(),
		observer: nopObserver{},
		sink:     nopSink{},
		logger:   slog.Default(),
		history:  make(map[string]*WorkflowResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.router = NewRouter(e.registry, e.cache, e.config, e.logger)
	return e
}

// Registry returns the agent registry.
func (e *Executor) Registry() *Registry { return e.registry }

// Cache returns the inter-task data cache.
func (e *Executor) Cache() *Cache { return e.cache }

// Quality returns the running quality aggregate.
func (e *Executor) Quality() *QualityTracker { return e.quality }

// Config returns the engine configuration.
func (e *Executor) Config() *Config { return e.config }

// Execute runs a workflow to completion. The returned result always
// distinguishes failed (a critical task broke, nothing further ran)
// from partially_completed (best-effort result available) from
// completed.
func (e *Executor) Execute(ctx context.Context, req Request) (*WorkflowResult, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	state := NewState(req.ID, req.Name)

	if err := e.router.ValidateOrder(req.Tasks); err != nil {
		e.logger.ErrorContext(ctx, "workflow_rejected",
			slog.String("workflow_id", req.ID),
			slog.String("error", err.Error()))
		state.Fail(err)
		return e.finish(ctx, state, req), err
	}

	taskIDs := make([]string, len(req.Tasks))
	for i, task := range req.Tasks {
		taskIDs[i] = task.EffectiveID(i)
	}

	state.Start()
	e.sink.WorkflowStarted(req.ID, taskIDs)
	e.logger.InfoContext(ctx, "workflow_started",
		slog.String("workflow_id", req.ID),
		slog.String("name", req.Name),
		slog.Int("task_count", len(req.Tasks)))

	var criticalErr error

	for i, task := range req.Tasks {
		taskID := taskIDs[i]

		select {
		case <-ctx.Done():
			criticalErr = NewCancellationError(taskID)
		default:
		}
		if criticalErr != nil {
			break
		}

		e.sink.TaskStarted(req.ID, taskID)
		start := time.Now()
		result, err := e.router.Route(ctx, task, i)
		elapsed := time.Since(start)

		agentName, _ := AgentFor(task.Type)
		if result != nil {
			e.quality.AddRows(result.RowsProcessed, result.RowsFailed)
		}
		outcome := TaskOutcome{
			TaskID:   taskID,
			Type:     task.Type,
			Agent:    agentName,
			Duration: elapsed,
		}

		switch {
		case err == nil && result.Success:
			partial := result.QualityScore < e.config.PartialThreshold
			outcome.Success = true
			outcome.Partial = partial
			state.RecordSuccess(taskID, result)
			if partial {
				e.quality.AddPartial()
			} else {
				e.quality.AddSuccess()
			}
			e.observer.TrackSuccess(agentName, result.Worker(), string(task.Type), map[string]any{
				"workflow_id":   req.ID,
				"task_id":       taskID,
				"quality_score": result.QualityScore,
			})
			e.sink.TaskCompleted(req.ID, taskID, "task completed")

		default:
			failErr := err
			if failErr == nil {
				// Agent reported failure through the envelope.
				envErr := NewExecutionError(taskID, agentName, nil, false)
				if msg := result.ErrorSummary(); msg != "" {
					envErr.Message = msg
				} else {
					envErr.Message = "agent reported failure"
				}
				failErr = envErr
			}
			errType := TypeOf(failErr)
			outcome.Error = failErr.Error()
			state.RecordFailure(taskID, result)
			e.quality.AddFailure()
			e.quality.AddErrorType(errType)
			worker := result.Worker()
			e.observer.TrackError(agentName, worker, string(errType), failErr.Error(), map[string]any{
				"workflow_id": req.ID,
				"task_id":     taskID,
				"task_type":   string(task.Type),
			})
			e.sink.TaskFailed(req.ID, taskID, failErr)
			e.logger.WarnContext(ctx, "task_failed",
				slog.String("workflow_id", req.ID),
				slog.String("task_id", taskID),
				slog.String("agent", agentName),
				slog.Bool("critical", task.Critical),
				slog.String("error", failErr.Error()))

			if task.Critical {
				criticalErr = Wrap(failErr, taskID, "critical task failed")
			}
		}

		state.AddOutcome(outcome)
		if criticalErr != nil {
			break
		}
	}

	_, failed := state.Counts()
	switch {
	case criticalErr != nil:
		state.Fail(criticalErr)
		e.sink.WorkflowFinished(req.ID, StatusFailed, criticalErr.Error())
	case failed > 0:
		state.CompletePartially()
		e.sink.WorkflowFinished(req.ID, StatusPartiallyCompleted, "workflow completed with failures")
	default:
		state.Complete()
		e.sink.WorkflowFinished(req.ID, StatusCompleted, "workflow completed")
	}

	return e.finish(ctx, state, req), criticalErr
}

// finish builds the result document, attaches health, stores history.
func (e *Executor) finish(ctx context.Context, state *State, req Request) *WorkflowResult {
	result := state.Snapshot(len(req.Tasks), e.quality.Score())
	if e.config.AttachHealthReport && e.health != nil {
		result.Health = e.health.HealthReport()
	}

	e.mu.Lock()
	e.history[result.WorkflowID] = result
	e.mu.Unlock()

	completed, failed := state.Counts()
	e.logger.InfoContext(ctx, "workflow_finished",
		slog.String("workflow_id", result.WorkflowID),
		slog.String("status", string(result.Status)),
		slog.Int("completed_tasks", completed),
		slog.Int("failed_tasks", failed),
		slog.Float64("quality_score", result.QualityScore),
		slog.Duration("duration", result.Duration))
	return result
}

// Result returns a finished workflow's result by ID.
func (e *Executor) Result(id string) (*WorkflowResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result, ok := e.history[id]
	return result, ok
}

// Results returns every recorded workflow result.
func (e *Executor) Results() []*WorkflowResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	results := make([]*WorkflowResult, 0, len(e.history))
	for _, r := range e.history {
		results = append(results, r)
	}
	return results
}

// Reset clears the cache, quality aggregate and execution history
// while keeping registered agents.
func (e *Executor) Reset() {
	e.cache.Clear()
	e.quality.Reset()
	e.mu.Lock()
	e.history = make(map[string]*WorkflowResult)
	e.mu.Unlock()
}

// Shutdown resets the executor and additionally discards agents.
func (e *Executor) Shutdown() {
	e.Reset()
	e.registry.Clear()
}
