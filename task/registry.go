package task

import (
	"fmt"
	"sync"
	"time"

	"video2voice/format"
)

// Registry holds the status rows of every job known to the process.
type Registry interface {
	Create(t Task) string
	// Mutate applies fn to the row under the registry lock. It returns false
	// for unknown ids and for rows that already reached a terminal status.
	Mutate(id string, fn func(*Task)) bool
	Get(id string) (Task, bool)
	Snapshot() map[string]Task
	ClearTerminal() int
}

type MemoryRegistry struct {
	mu    sync.Mutex
	tasks map[string]*Task
	seq   uint64
	now   func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

func (r *MemoryRegistry) Create(t Task) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	row := t.clone()
	row.ID = fmt.Sprintf("task_%d", r.seq)
	row.Status = StatusPending
	row.ProgressPercent = 0
	row.CreatedAt = r.now()
	row.CompletedAt = nil
	row.ElapsedTime = 0
	row.ElapsedStr = format.Duration(0)
	r.tasks[row.ID] = &row
	return row.ID
}

func (r *MemoryRegistry) Mutate(id string, fn func(*Task)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.tasks[id]
	if !ok || row.IsTerminal() {
		return false
	}

	prevPercent := row.ProgressPercent
	createdAt := row.CreatedAt
	fn(row)

	row.ID = id
	row.CreatedAt = createdAt
	if row.ProgressPercent < prevPercent {
		row.ProgressPercent = prevPercent
	}
	if row.ProgressPercent > 100 {
		row.ProgressPercent = 100
	}

	now := r.now()
	row.ElapsedTime = now.Sub(createdAt).Seconds()
	row.ElapsedStr = format.Duration(row.ElapsedTime)
	if row.IsTerminal() {
		row.CompletedAt = &now
	}
	return true
}

func (r *MemoryRegistry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return row.clone(), true
}

func (r *MemoryRegistry) Snapshot() map[string]Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Task, len(r.tasks))
	for id, row := range r.tasks {
		out[id] = row.clone()
	}
	return out
}

// ClearTerminal drops completed and failed rows and reports how many went.
func (r *MemoryRegistry) ClearTerminal() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, row := range r.tasks {
		if row.IsTerminal() {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}
