package mining

import (
	"sort"
	"sync"
)

// Registry is the shared, append-only record of mining runs in this
// process, keyed by job id. It is safe for concurrent use; runs publish
// status snapshots and pollers read them.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]MiningResult
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]MiningResult)}
}

// Put records the latest snapshot for the run.
func (r *Registry) Put(result MiningResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[result.JobID] = result
}

// Get returns the latest snapshot for the job id.
func (r *Registry) Get(jobID string) (MiningResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[jobID]
	return result, ok
}

// List returns all known runs, newest first.
func (r *Registry) List() []MiningResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MiningResult, 0, len(r.runs))
	for _, result := range r.runs {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
