package cascade

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryQueue is an in-process job queue for tests and single-device
// deployments without Redis.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[string][]Job
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{jobs: make(map[string][]Job)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	if job.ID == "" || job.EncounterID == "" {
		return fmt.Errorf("cascade queue: job id and encounter id are required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.EncounterID] = append(q.jobs[job.EncounterID], job)
	return nil
}

func (q *MemoryQueue) ListByEncounter(_ context.Context, encounterID string) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := append([]Job(nil), q.jobs[encounterID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func (q *MemoryQueue) Complete(_ context.Context, encounterID, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.jobs[encounterID]
	for i, job := range pending {
		if job.ID == jobID {
			q.jobs[encounterID] = append(pending[:i:i], pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) CancelByEncounter(_ context.Context, encounterID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.jobs[encounterID])
	delete(q.jobs, encounterID)
	return n, nil
}
