// Package narrative turns a finished workflow's cached results into a
// readable story: extracted insights, identified problems, remediation
// recommendations and an ordered set of sections. It is a consumer of
// the engine's output, not part of the engine.
package narrative

import (
	"fmt"
	"log/slog"
	"sort"

	"insightpipe/internal/errorintel"
	"insightpipe/internal/workflow"
)

// Insight is one observation extracted from a task result.
type Insight struct {
	TaskID       string  `json:"task_id"`
	Kind         string  `json:"kind"` // observation|warning
	Text         string  `json:"text"`
	QualityScore float64 `json:"quality_score"`
}

// Problem is one issue identified in the workflow run.
type Problem struct {
	TaskID   string `json:"task_id,omitempty"`
	Severity string `json:"severity"` // critical|major|minor
	Text     string `json:"text"`
}

// Section is one block of the built story.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Story is the assembled narrative document.
type Story struct {
	Headline        string                      `json:"headline"`
	WorkflowID      string                      `json:"workflow_id"`
	Insights        []Insight                   `json:"insights"`
	Problems        []Problem                   `json:"problems"`
	Recommendations []errorintel.Recommendation `json:"recommendations"`
	Sections        []Section                   `json:"sections"`
	KeyFindings     []string                    `json:"key_findings"`
}

// Integrator builds stories from workflow results.
type Integrator struct {
	cache   *workflow.Cache
	tracker *errorintel.Tracker
	logger  *slog.Logger
}

// NewIntegrator creates a narrative integrator reading from the given
// cache and tracker. Either may be nil; the corresponding sections are
// then skipped.
func NewIntegrator(cache *workflow.Cache, tracker *errorintel.Tracker, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{cache: cache, tracker: tracker, logger: logger}
}

// BuildStory runs the insight -> problem -> recommendation -> story
// pipeline over a finished workflow result.
func (n *Integrator) BuildStory(result *workflow.WorkflowResult) *Story {
	story := &Story{
		WorkflowID:  result.WorkflowID,
		Headline:    headline(result),
		Insights:    n.extractInsights(result),
		Problems:    n.identifyProblems(result),
		KeyFindings: make([]string, 0),
	}
	if n.tracker != nil {
		story.Recommendations = n.tracker.Recommendations()
	}
	story.Sections = n.buildSections(result, story)

	for _, insight := range story.Insights {
		if insight.Kind == "observation" {
			story.KeyFindings = append(story.KeyFindings, insight.Text)
		}
	}

	n.logger.Info("story_built",
		slog.String("workflow_id", result.WorkflowID),
		slog.Int("insights", len(story.Insights)),
		slog.Int("problems", len(story.Problems)),
		slog.Int("recommendations", len(story.Recommendations)))
	return story
}

func headline(result *workflow.WorkflowResult) string {
	switch result.Status {
	case workflow.StatusCompleted:
		return fmt.Sprintf("Analysis completed: %d of %d tasks succeeded", result.CompletedTasks, result.TotalTasks)
	case workflow.StatusPartiallyCompleted:
		return fmt.Sprintf("Analysis partially completed: %d of %d tasks succeeded, %d failed",
			result.CompletedTasks, result.TotalTasks, result.FailedTasks)
	default:
		return fmt.Sprintf("Analysis failed after %d of %d tasks", result.CompletedTasks, result.TotalTasks)
	}
}

// extractInsights reads result envelopes: warnings become warning
// insights, metadata and quality become observations.
func (n *Integrator) extractInsights(result *workflow.WorkflowResult) []Insight {
	insights := make([]Insight, 0)

	taskIDs := make([]string, 0, len(result.TaskResults))
	for taskID := range result.TaskResults {
		taskIDs = append(taskIDs, taskID)
	}
	sort.Strings(taskIDs)

	for _, taskID := range taskIDs {
		res := result.TaskResults[taskID]
		if res == nil {
			continue
		}
		if res.Success {
			insights = append(insights, Insight{
				TaskID:       taskID,
				Kind:         "observation",
				Text:         fmt.Sprintf("%s produced output with quality %.2f", taskID, res.QualityScore),
				QualityScore: res.QualityScore,
			})
		}
		for _, warning := range res.Warnings {
			insights = append(insights, Insight{
				TaskID:       taskID,
				Kind:         "warning",
				Text:         warning,
				QualityScore: res.QualityScore,
			})
		}
	}

	if n.cache != nil {
		if ds, err := n.cache.DataForTask("narrative", workflow.Parameters{}); err == nil {
			insights = append(insights, Insight{
				Kind:         "observation",
				Text:         fmt.Sprintf("active dataset holds %d rows across %d columns", ds.NumRows(), ds.NumColumns()),
				QualityScore: 1.0,
			})
		}
	}
	return insights
}

// identifyProblems flags failed tasks, low-quality steps and workers
// in critical standing.
func (n *Integrator) identifyProblems(result *workflow.WorkflowResult) []Problem {
	problems := make([]Problem, 0)

	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Error != "":
			severity := "major"
			if result.Status == workflow.StatusFailed {
				severity = "critical"
			}
			problems = append(problems, Problem{
				TaskID:   outcome.TaskID,
				Severity: severity,
				Text:     fmt.Sprintf("task %s failed: %s", outcome.TaskID, outcome.Error),
			})
		case outcome.Partial:
			problems = append(problems, Problem{
				TaskID:   outcome.TaskID,
				Severity: "minor",
				Text:     fmt.Sprintf("task %s succeeded below the quality threshold", outcome.TaskID),
			})
		}
	}

	if n.tracker != nil {
		for _, wh := range n.tracker.AllWorkerHealth() {
			if wh.Status == errorintel.StatusCritical {
				problems = append(problems, Problem{
					Severity: "critical",
					Text:     fmt.Sprintf("worker %s/%s is in critical health (score %.0f)", wh.Agent, wh.Worker, wh.Score),
				})
			}
		}
	}
	return problems
}

func (n *Integrator) buildSections(result *workflow.WorkflowResult, story *Story) []Section {
	sections := make([]Section, 0, 4)

	sections = append(sections, Section{
		Title: "Summary",
		Body: fmt.Sprintf("Workflow %s finished with status %s in %s (quality %.3f).",
			result.WorkflowID, result.Status, result.Duration, result.QualityScore),
	})

	if len(story.Insights) > 0 {
		body := ""
		for _, insight := range story.Insights {
			body += "- " + insight.Text + "\n"
		}
		sections = append(sections, Section{Title: "Findings", Body: body})
	}

	if len(story.Problems) > 0 {
		body := ""
		for _, problem := range story.Problems {
			body += fmt.Sprintf("- [%s] %s\n", problem.Severity, problem.Text)
		}
		sections = append(sections, Section{Title: "Problems", Body: body})
	}

	if len(story.Recommendations) > 0 {
		body := ""
		for _, rec := range story.Recommendations {
			body += fmt.Sprintf("- %s (%s, seen %d times): %s\n", rec.Agent, rec.ErrorType, rec.Occurrences, rec.Suggestion)
		}
		sections = append(sections, Section{Title: "Recommendations", Body: body})
	}
	return sections
}
