// Package http holds the HTTP transport layer: request binding,
// validation, and the handlers serving the workflow engine.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"insightpipe/internal/apierrors"
	"insightpipe/internal/infrastructure"
	"insightpipe/internal/narrative"
	"insightpipe/internal/workflow"
)

var validate = validator.New()

// WorkflowHandler serves workflow execution and inspection endpoints.
type WorkflowHandler struct {
	executor   *workflow.Executor
	integrator *narrative.Integrator
	metrics    *infrastructure.PipelineMetrics
	logger     *slog.Logger
}

// NewWorkflowHandler creates the workflow handler.
func NewWorkflowHandler(executor *workflow.Executor, integrator *narrative.Integrator, logger *slog.Logger) *WorkflowHandler {
	if executor == nil {
		panic("executor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowHandler{
		executor:   executor,
		integrator: integrator,
		logger:     logger.With(slog.String("handler", "workflows")),
	}
}

// SetMetrics wires the pipeline metrics into the handler.
func (h *WorkflowHandler) SetMetrics(metrics *infrastructure.PipelineMetrics) {
	h.metrics = metrics
}

// WorkflowRequest is the body of POST /api/workflows.
type WorkflowRequest struct {
	ID    string        `json:"id,omitempty"`
	Name  string        `json:"name,omitempty"`
	Tasks []TaskRequest `json:"tasks" validate:"required,min=1,dive"`
}

// TaskRequest is one task inside a workflow request.
type TaskRequest struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type" validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Critical   bool           `json:"critical"`
	CacheAs    string         `json:"cache_as,omitempty"`
}

// Bind implements render.Binder.
func (r *WorkflowRequest) Bind(req *http.Request) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for i, task := range r.Tasks {
		if _, err := workflow.ParseTaskType(task.Type); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
		if task.ID != "" {
			if seen[task.ID] {
				return fmt.Errorf("tasks[%d]: duplicate task id %q", i, task.ID)
			}
			seen[task.ID] = true
		}
	}
	return nil
}

// toEngineRequest converts the validated body to an engine request.
func (r *WorkflowRequest) toEngineRequest() workflow.Request {
	tasks := make([]workflow.Task, len(r.Tasks))
	for i, t := range r.Tasks {
		tasks[i] = workflow.Task{
			ID:         t.ID,
			Type:       workflow.TaskType(t.Type),
			Parameters: workflow.Parameters(t.Parameters),
			Critical:   t.Critical,
			CacheAs:    t.CacheAs,
		}
	}
	return workflow.Request{ID: r.ID, Name: r.Name, Tasks: tasks}
}

// Routes returns the chi router for workflow endpoints.
func (h *WorkflowHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Execute)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/story", h.Story)
	r.Post("/reset", h.Reset)
	return r
}

// Execute handles POST /api/workflows: run a workflow synchronously.
func (h *WorkflowHandler) Execute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := &WorkflowRequest{}
	if err := render.Bind(r, data); err != nil {
		h.logger.WarnContext(ctx, "workflow_request_rejected",
			slog.String("error", err.Error()))
		var wfErr *workflow.Error
		if errors.As(err, &wfErr) {
			render.Render(w, r, apierrors.FromWorkflowError(wfErr))
			return
		}
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	req := data.toEngineRequest()
	start := time.Now()
	result, execErr := h.executor.Execute(ctx, req)
	h.metrics.RecordWorkflow(ctx, result.WorkflowID, string(result.Status), time.Since(start), result.FailedTasks)

	if execErr != nil {
		var wfErr *workflow.Error
		if errors.As(execErr, &wfErr) && wfErr.Structural() {
			// Structural rejections never started a task.
			render.Render(w, r, apierrors.FromWorkflowError(wfErr))
			return
		}
	}

	// Failed and partial runs still return the full result document;
	// the status field tells the caller what happened.
	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Get handles GET /api/workflows/{id}.
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, ok := h.executor.Result(id)
	if !ok {
		render.Render(w, r, apierrors.ErrWorkflowNotFound)
		return
	}
	render.JSON(w, r, result)
}

// List handles GET /api/workflows.
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"workflows": h.executor.Results(),
	})
}

// Story handles GET /api/workflows/{id}/story: the narrative document
// for a finished workflow.
func (h *WorkflowHandler) Story(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, ok := h.executor.Result(id)
	if !ok {
		render.Render(w, r, apierrors.ErrWorkflowNotFound)
		return
	}
	if h.integrator == nil {
		render.Render(w, r, apierrors.NotFoundError("narrative integrator"))
		return
	}
	render.JSON(w, r, h.integrator.BuildStory(result))
}

// Reset handles POST /api/workflows/reset: clear cache, quality state
// and history while keeping registered agents.
func (h *WorkflowHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.executor.Reset()
	h.logger.InfoContext(r.Context(), "executor_reset")
	render.JSON(w, r, map[string]string{"status": "reset"})
}
