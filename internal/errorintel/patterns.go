package errorintel

import (
	"sort"
	"time"
)

// Pattern is one frequency-ranked error cluster.
type Pattern struct {
	Agent     string    `json:"agent"`
	Worker    string    `json:"worker"`
	ErrorType string    `json:"error_type"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	LastError string    `json:"last_error,omitempty"`
}

// AnalyzePatterns groups failure records by (agent, worker, errorType)
// and returns the clusters ranked by frequency, most frequent first.
func (t *Tracker) AnalyzePatterns() []Pattern {
	t.mu.RLock()
	defer t.mu.RUnlock()

	type clusterKey struct {
		agent, worker, errType string
	}
	clusters := make(map[clusterKey]*Pattern)

	for _, rec := range t.log {
		if rec.Success {
			continue
		}
		key := clusterKey{agent: rec.Agent, worker: rec.Worker, errType: rec.ErrorType}
		pattern, ok := clusters[key]
		if !ok {
			pattern = &Pattern{
				Agent:     rec.Agent,
				Worker:    rec.Worker,
				ErrorType: rec.ErrorType,
				FirstSeen: rec.Timestamp,
			}
			clusters[key] = pattern
		}
		pattern.Count++
		pattern.LastSeen = rec.Timestamp
		pattern.LastError = rec.Message
	}

	out := make([]Pattern, 0, len(clusters))
	for _, pattern := range clusters {
		out = append(out, *pattern)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].ErrorType < out[j].ErrorType
	})
	return out
}
