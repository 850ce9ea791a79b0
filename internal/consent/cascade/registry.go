package cascade

import (
	"context"
	"sync"
)

// TaskRegistry tracks cancel functions for in-flight background tasks by
// encounter. Workers register their task context on start and release it
// on clean completion; withdrawal cancels whatever is still registered.
type TaskRegistry struct {
	mu    sync.Mutex
	next  uint64
	tasks map[string]map[uint64]context.CancelFunc
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]map[uint64]context.CancelFunc)}
}

// Register records a task's cancel function. The returned release must be
// called when the task finishes on its own; releasing twice is harmless.
func (r *TaskRegistry) Register(encounterID string, cancel context.CancelFunc) (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	if r.tasks[encounterID] == nil {
		r.tasks[encounterID] = make(map[uint64]context.CancelFunc)
	}
	r.tasks[encounterID][id] = cancel

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if active := r.tasks[encounterID]; active != nil {
			delete(active, id)
			if len(active) == 0 {
				delete(r.tasks, encounterID)
			}
		}
	}
}

// CancelEncounter cancels every registered task for an encounter and
// returns how many were cancelled. Absent encounters return zero.
func (r *TaskRegistry) CancelEncounter(encounterID string) int {
	r.mu.Lock()
	active := r.tasks[encounterID]
	delete(r.tasks, encounterID)
	r.mu.Unlock()

	for _, cancel := range active {
		cancel()
	}
	return len(active)
}

// ActiveCount returns how many tasks are currently registered for an
// encounter.
func (r *TaskRegistry) ActiveCount(encounterID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks[encounterID])
}
