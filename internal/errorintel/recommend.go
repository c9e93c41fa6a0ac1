package errorintel

import "insightpipe/internal/workflow"

// remediations is the static error-type to suggested-fix lookup. This
// is deliberately a table, not a model: recommendations must stay
// predictable and auditable.
var remediations = map[string]string{
	string(workflow.ErrorTypeUnknownTaskType):  "Check the workflow definition for typos in task types; only the canonical pipeline types are routable.",
	string(workflow.ErrorTypeAgentNotFound):    "Register the agent before executing workflows that route to it.",
	string(workflow.ErrorTypeAgentUnavailable): "Register the canonical agent for this task type, or remove the task from the workflow.",
	string(workflow.ErrorTypeMissingParameter): "Add the missing required parameter to the task definition.",
	string(workflow.ErrorTypeOutOfOrder):       "Reorder tasks so data producers precede consumers; load_data must come first.",
	string(workflow.ErrorTypeNoData):           "Add a load_data task before this one, pass data inline, or point data_key at a populated cache entry.",
	string(workflow.ErrorTypeDataMismatch):     "The referenced cache entry is not tabular; check which task wrote to that key.",
	string(workflow.ErrorTypeTimeout):          "Raise the task timeout for this type, or reduce the input size.",
	string(workflow.ErrorTypeExecution):        "Inspect the agent's own logs; the orchestrator surfaced its failure verbatim.",
	string(workflow.ErrorTypeCancellation):     "The workflow was cancelled; re-run it if the cancellation was unintended.",
}

// Recommendation pairs an observed error cluster with remediation text.
type Recommendation struct {
	Agent       string `json:"agent"`
	Worker      string `json:"worker"`
	ErrorType   string `json:"error_type"`
	Occurrences int    `json:"occurrences"`
	Suggestion  string `json:"suggestion"`
}

// Recommendations maps the tracker's current error clusters to
// suggested remediations, ranked by cluster frequency.
func (t *Tracker) Recommendations() []Recommendation {
	patterns := t.AnalyzePatterns()
	out := make([]Recommendation, 0, len(patterns))
	for _, p := range patterns {
		suggestion, ok := remediations[p.ErrorType]
		if !ok {
			suggestion = "No known remediation; inspect the error log for this cluster."
		}
		out = append(out, Recommendation{
			Agent:       p.Agent,
			Worker:      p.Worker,
			ErrorType:   p.ErrorType,
			Occurrences: p.Count,
			Suggestion:  suggestion,
		})
	}
	return out
}
