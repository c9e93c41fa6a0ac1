package workflow

// TaskObserver receives every task outcome. The error intelligence
// tracker implements it; it is constructed explicitly and handed to the
// executor rather than living as package-level state.
type TaskObserver interface {
	TrackSuccess(agent, worker, operation string, context map[string]any)
	TrackError(agent, worker string, errType, message string, context map[string]any)
}

// HealthReporter produces the optional health section of a workflow
// result.
type HealthReporter interface {
	HealthReport() *HealthSnapshot
}

// EventSink receives workflow progress events for live status fan-out.
// The websocket hub adapter implements it; a nil sink disables fan-out.
type EventSink interface {
	WorkflowStarted(workflowID string, taskIDs []string)
	TaskStarted(workflowID, taskID string)
	TaskCompleted(workflowID, taskID, message string)
	TaskFailed(workflowID, taskID string, err error)
	WorkflowFinished(workflowID string, status Status, message string)
}

// nopSink is used when no event sink is configured.
type nopSink struct{}

func (nopSink) WorkflowStarted(string, []string)        {}
func (nopSink) TaskStarted(string, string)              {}
func (nopSink) TaskCompleted(string, string, string)    {}
func (nopSink) TaskFailed(string, string, error)        {}
func (nopSink) WorkflowFinished(string, Status, string) {}

// nopObserver is used when no task observer is configured.
type nopObserver struct{}

func (nopObserver) TrackSuccess(string, string, string, map[string]any)       {}
func (nopObserver) TrackError(string, string, string, string, map[string]any) {}
