package pipeline

import (
	"context"
	"sort"
	"sync"

	"axiapac.com/timeclock/model"
)

// JobCache is where job summaries are kept for offline selection.
type JobCache interface {
	CacheJobs(ctx context.Context, jobs []model.Job) error
	GetCachedJobs(ctx context.Context) ([]model.Job, error)
	GetCachedJob(ctx context.Context, id string) (*model.Job, error)
}

// MemoryJobCache stands in for the durable cache when the store is unavailable.
type MemoryJobCache struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewMemoryJobCache() *MemoryJobCache {
	return &MemoryJobCache{jobs: map[string]model.Job{}}
}

func (c *MemoryJobCache) CacheJobs(ctx context.Context, jobs []model.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = make(map[string]model.Job, len(jobs))
	for _, j := range jobs {
		c.jobs[j.ID] = j
	}
	return nil
}

func (c *MemoryJobCache) GetCachedJobs(ctx context.Context) ([]model.Job, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Job, 0, len(c.jobs))
	for _, j := range c.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (c *MemoryJobCache) GetCachedJob(ctx context.Context, id string) (*model.Job, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	j, ok := c.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}
