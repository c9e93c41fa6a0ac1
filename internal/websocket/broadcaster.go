package websocket

import (
	"insightpipe/internal/workflow"
)

// Broadcaster adapts the hub to the engine's event sink, so workflow
// progress streams to connected clients as it happens.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a broadcaster for a hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

var _ workflow.EventSink = (*Broadcaster)(nil)

// WorkflowStarted announces a new workflow run.
func (b *Broadcaster) WorkflowStarted(workflowID string, taskIDs []string) {
	b.hub.Broadcast(TypeWorkflowStarted, map[string]any{
		"workflow_id": workflowID,
		"task_ids":    taskIDs,
	})
}

// TaskStarted announces a task entering execution.
func (b *Broadcaster) TaskStarted(workflowID, taskID string) {
	b.hub.Broadcast(TypeTaskStarted, map[string]any{
		"workflow_id": workflowID,
		"task_id":     taskID,
	})
}

// TaskCompleted announces a successful task.
func (b *Broadcaster) TaskCompleted(workflowID, taskID, message string) {
	b.hub.Broadcast(TypeTaskCompleted, map[string]any{
		"workflow_id": workflowID,
		"task_id":     taskID,
		"message":     message,
	})
}

// TaskFailed announces a failed task.
func (b *Broadcaster) TaskFailed(workflowID, taskID string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	b.hub.Broadcast(TypeTaskFailed, map[string]any{
		"workflow_id": workflowID,
		"task_id":     taskID,
		"error":       detail,
	})
}

// WorkflowFinished announces the terminal status of a run.
func (b *Broadcaster) WorkflowFinished(workflowID string, status workflow.Status, message string) {
	b.hub.Broadcast(TypeWorkflowFinished, map[string]any{
		"workflow_id": workflowID,
		"status":      string(status),
		"message":     message,
	})
}
