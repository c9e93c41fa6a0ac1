package workflow

import (
	"context"
	"log/slog"
	"time"
)

// Router maps a task's declared type to the agent that handles it,
// validates the task, resolves its input data and writes the agent's
// output back into the cache.
//
// Check order matters: structural failures (unknown type, missing
// agent, missing parameter, unresolvable data) are raised before the
// agent is invoked and leave the cache untouched.
type Router struct {
	registry *Registry
	cache    *Cache
	config   *Config
	logger   *slog.Logger
}

// NewRouter creates a task router.
func NewRouter(registry *Registry, cache *Cache, config *Config, logger *slog.Logger) *Router {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		cache:    cache,
		config:   config,
		logger:   logger,
	}
}

// Route executes one task through its agent. The returned result is the
// agent's envelope annotated with routing metadata; a nil result means
// the task failed structurally before any agent ran.
func (r *Router) Route(ctx context.Context, task Task, taskIndex int) (*Result, error) {
	taskID := task.EffectiveID(taskIndex)

	if _, err := ParseTaskType(string(task.Type)); err != nil {
		return nil, Wrap(err, taskID, "")
	}

	agentName, _ := AgentFor(task.Type)
	agent, err := r.registry.MustGet(agentName)
	if err != nil {
		return nil, NewAgentUnavailableError(taskID, agentName)
	}

	for _, param := range requiredParams[task.Type] {
		if _, ok := task.Parameters[param]; !ok {
			return nil, NewMissingParameterError(taskID, param)
		}
	}

	params := make(Parameters, len(task.Parameters)+1)
	for k, v := range task.Parameters {
		params[k] = v
	}

	// load_data produces the dataset; everything downstream consumes one.
	if task.Type != TaskTypeLoadData {
		ds, err := r.cache.DataForTask(taskID, params)
		if err != nil {
			return nil, err
		}
		params[ParamData] = ds
	}

	taskCtx, cancel := context.WithTimeout(ctx, r.config.TaskTimeout(task.Type))
	defer cancel()

	r.logger.InfoContext(ctx, "routing_task",
		slog.String("task_id", taskID),
		slog.String("task_type", string(task.Type)),
		slog.String("agent", agentName))

	start := time.Now()
	result, execErr := agent.Execute(taskCtx, task.Type, params)
	elapsed := time.Since(start)

	if execErr != nil {
		r.logger.ErrorContext(ctx, "agent_execution_error",
			slog.String("task_id", taskID),
			slog.String("agent", agentName),
			slog.Duration("elapsed", elapsed),
			slog.String("error", execErr.Error()))
		return result, NewExecutionError(taskID, agentName, execErr, IsRetryable(execErr))
	}
	if result == nil {
		return nil, NewExecutionError(taskID, agentName, nil, false)
	}

	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	result.Metadata[MetaAgent] = agentName
	result.Metadata[MetaElapsed] = elapsed.String()
	result.Metadata[MetaTaskIndex] = taskIndex

	if result.Success {
		r.cache.SetProducedBy(task.CacheKey(), result.Data, taskIndex)
		r.logger.InfoContext(ctx, "task_routed",
			slog.String("task_id", taskID),
			slog.String("agent", agentName),
			slog.String("cache_key", task.CacheKey()),
			slog.Float64("quality_score", result.QualityScore),
			slog.Duration("elapsed", elapsed))
	} else {
		r.logger.WarnContext(ctx, "agent_reported_failure",
			slog.String("task_id", taskID),
			slog.String("agent", agentName),
			slog.String("error", result.ErrorSummary()),
			slog.Duration("elapsed", elapsed))
	}

	return result, nil
}

// ValidateOrder checks that task types appear in canonical dependency
// order. This is a structural precondition on the definition, not a
// runtime dependency resolver: a predict task may not precede load_data
// even when both agents would individually accept the call.
func (r *Router) ValidateOrder(tasks []Task) error {
	maxRank := -1
	var maxType TaskType
	for _, task := range tasks {
		rank, ok := stageRank[task.Type]
		if !ok {
			return NewUnknownTaskTypeError(string(task.Type))
		}
		if rank < maxRank {
			return NewOutOfOrderError(maxType, task.Type)
		}
		if rank > maxRank {
			maxRank = rank
			maxType = task.Type
		}
	}
	return nil
}
