package workflow

import (
	"fmt"
	"time"
)

// TaskType identifies one kind of analysis step. The set is closed:
// anything outside it is rejected before an agent is ever resolved.
type TaskType string

const (
	TaskTypeLoadData        TaskType = "load_data"
	TaskTypeExplore         TaskType = "explore"
	TaskTypeAggregate       TaskType = "aggregate"
	TaskTypeDetectAnomalies TaskType = "detect_anomalies"
	TaskTypePredict         TaskType = "predict"
	TaskTypeRecommend       TaskType = "recommend"
	TaskTypeNarrative       TaskType = "narrative"
	TaskTypeVisualize       TaskType = "visualize"
	TaskTypeReport          TaskType = "report"
)

// Canonical agent names
const (
	AgentNameLoader             = "loader"
	AgentNameExplorer           = "explorer"
	AgentNameAggregator         = "aggregator"
	AgentNameAnomalyDetector    = "anomaly_detector"
	AgentNamePredictor          = "predictor"
	AgentNameRecommender        = "recommender"
	AgentNameNarrativeGenerator = "narrative_generator"
	AgentNameVisualizer         = "visualizer"
	AgentNameReporter           = "reporter"
)

// routingTable maps each task type to the agent that handles it.
// This mapping is part of the external contract and must not change.
var routingTable = map[TaskType]string{
	TaskTypeLoadData:        AgentNameLoader,
	TaskTypeExplore:         AgentNameExplorer,
	TaskTypeAggregate:       AgentNameAggregator,
	TaskTypeDetectAnomalies: AgentNameAnomalyDetector,
	TaskTypePredict:         AgentNamePredictor,
	TaskTypeRecommend:       AgentNameRecommender,
	TaskTypeNarrative:       AgentNameNarrativeGenerator,
	TaskTypeVisualize:       AgentNameVisualizer,
	TaskTypeReport:          AgentNameReporter,
}

// stageRank orders task types into pipeline stages. A task may never
// appear before a task of a lower rank in a workflow definition.
var stageRank = map[TaskType]int{
	TaskTypeLoadData:        0,
	TaskTypeExplore:         1,
	TaskTypeAggregate:       1,
	TaskTypeDetectAnomalies: 1,
	TaskTypePredict:         2,
	TaskTypeRecommend:       2,
	TaskTypeNarrative:       3,
	TaskTypeVisualize:       3,
	TaskTypeReport:          3,
}

// defaultCacheKeys names the cache slot a task type's output lands in
// when the task does not set CacheAs.
var defaultCacheKeys = map[TaskType]string{
	TaskTypeLoadData:        DefaultDataKey,
	TaskTypeExplore:         "exploration",
	TaskTypeAggregate:       "aggregation",
	TaskTypeDetectAnomalies: "anomalies",
	TaskTypePredict:         "predictions",
	TaskTypeRecommend:       "recommendations",
	TaskTypeNarrative:       "narrative",
	TaskTypeVisualize:       "visualizations",
	TaskTypeReport:          "report",
}

// requiredParams lists parameters the router checks before invoking the
// agent for a task type.
var requiredParams = map[TaskType][]string{
	TaskTypeLoadData:  {"source"},
	TaskTypeAggregate: {"group_by"},
	TaskTypePredict:   {"target"},
}

// Parameter keys with routing significance.
const (
	// ParamData carries an inline dataset in the task parameters.
	ParamData = "data"
	// ParamDataKey names the cache key the task reads its input from.
	ParamDataKey = "data_key"
	// ParamSource names the data source for load_data tasks.
	ParamSource = "source"
	// ParamWorker identifies the worker an agent attributes its outcome to.
	ParamWorker = "worker"
)

// DefaultDataKey is the conventional cache key for the active dataset.
const DefaultDataKey = "loaded_data"

// ParseTaskType validates a raw string against the closed task type set.
func ParseTaskType(s string) (TaskType, error) {
	tt := TaskType(s)
	if _, ok := routingTable[tt]; !ok {
		return "", NewUnknownTaskTypeError(s)
	}
	return tt, nil
}

// AgentFor returns the canonical agent name for a task type.
func AgentFor(taskType TaskType) (string, bool) {
	name, ok := routingTable[taskType]
	return name, ok
}

// TaskTypes returns every known task type, ordered by pipeline stage.
func TaskTypes() []TaskType {
	return []TaskType{
		TaskTypeLoadData, TaskTypeExplore, TaskTypeAggregate,
		TaskTypeDetectAnomalies, TaskTypePredict, TaskTypeRecommend,
		TaskTypeNarrative, TaskTypeVisualize, TaskTypeReport,
	}
}

// DefaultCacheKey returns the conventional output key for a task type.
func DefaultCacheKey(taskType TaskType) string {
	if key, ok := defaultCacheKeys[taskType]; ok {
		return key
	}
	return string(taskType)
}

// Parameters is the opaque parameter map handed to an agent.
type Parameters map[string]any

// ErrorDetail is one error reported inside a result envelope.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Result is the standardized envelope every agent invocation returns.
// Immutable once returned; the router annotates Metadata before caching.
type Result struct {
	Success      bool           `json:"success"`
	Data         any            `json:"data,omitempty"`
	QualityScore float64        `json:"quality_score"`
	Errors       []ErrorDetail  `json:"errors,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	// Row-level throughput. Agents that touch datasets report how many
	// rows they handled and how many they had to drop; the executor
	// folds both into the quality aggregate after every task.
	RowsProcessed int `json:"rows_processed,omitempty"`
	RowsFailed    int `json:"rows_failed,omitempty"`
}

// Routing metadata keys set on every routed result.
const (
	MetaAgent     = "routed_agent"
	MetaElapsed   = "routed_elapsed"
	MetaTaskIndex = "task_index"
)

// Worker returns the worker name the agent attributed this result to,
// or "default" when the agent did not say.
func (r *Result) Worker() string {
	if r != nil && r.Metadata != nil {
		if w, ok := r.Metadata[ParamWorker].(string); ok && w != "" {
			return w
		}
	}
	return "default"
}

// ErrorSummary joins the envelope's error messages for logging.
func (r *Result) ErrorSummary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	if len(r.Errors) == 1 {
		return r.Errors[0].Message
	}
	return fmt.Sprintf("%s (+%d more)", r.Errors[0].Message, len(r.Errors)-1)
}

// Task is one step of a workflow. Tasks exist only inside a workflow
// definition and are never persisted independently.
type Task struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty"`
	Type       TaskType   `json:"type" yaml:"type"`
	Parameters Parameters `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Critical   bool       `json:"critical" yaml:"critical"`
	CacheAs    string     `json:"cache_as,omitempty" yaml:"cache_as,omitempty"`
}

// EffectiveID returns the task's identifier, defaulting to a positional
// "<type>[<index>]" form when the definition did not name it.
func (t Task) EffectiveID(index int) string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%s[%d]", t.Type, index)
}

// CacheKey returns the key this task's output is cached under.
func (t Task) CacheKey() string {
	if t.CacheAs != "" {
		return t.CacheAs
	}
	return DefaultCacheKey(t.Type)
}

// Request asks the executor to run a workflow.
type Request struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Tasks []Task `json:"tasks"`
}

// TaskOutcome records how a single task ended.
type TaskOutcome struct {
	TaskID   string        `json:"task_id"`
	Type     TaskType      `json:"type"`
	Agent    string        `json:"agent,omitempty"`
	Success  bool          `json:"success"`
	Partial  bool          `json:"partial"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// WorkflowResult is the structured document executeWorkflow returns.
type WorkflowResult struct {
	WorkflowID     string             `json:"workflow_id"`
	Name           string             `json:"name,omitempty"`
	Status         Status             `json:"status"`
	TotalTasks     int                `json:"total_tasks"`
	CompletedTasks int                `json:"completed_tasks"`
	FailedTasks    int                `json:"failed_tasks"`
	TaskResults    map[string]*Result `json:"task_results"`
	Outcomes       []TaskOutcome      `json:"outcomes"`
	Duration       time.Duration      `json:"duration"`
	QualityScore   float64            `json:"quality_score"`
	Health         *HealthSnapshot    `json:"health,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// HealthSnapshot is the optional health report attached to a workflow
// result, derived from the error intelligence tracker.
type HealthSnapshot struct {
	Overall  float64                   `json:"overall"`
	Status   string                    `json:"status"`
	ByWorker map[string]WorkerStanding `json:"by_worker,omitempty"`
}

// WorkerStanding is one (agent, worker) entry in a health snapshot.
type WorkerStanding struct {
	Agent        string  `json:"agent"`
	Worker       string  `json:"worker"`
	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`
	Score        float64 `json:"score"`
	Status       string  `json:"status"`
}
