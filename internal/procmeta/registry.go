package procmeta

import (
	"sync"
)

// Registry stores the canonical record for every observed pid.
type Registry struct {
	mu      sync.RWMutex
	records map[int]*ProcessRecord // PID -> last inserted record
	order   []int                  // PIDs in first-insertion order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[int]*ProcessRecord),
	}
}

// Insert stores rec keyed by its pid (command).
// An existing record for the pid is replaced in full but keeps its position
// in iteration order. Records with a non-positive pid are ignored.
func (r *Registry) Insert(rec *ProcessRecord) {
	if rec == nil || rec.PID <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.PID]; !exists {
		r.order = append(r.order, rec.PID)
	}
	r.records[rec.PID] = rec
}

// Get retrieves the record for a pid (query).
// Returns nil if the pid was never inserted.
func (r *Registry) Get(pid int) *ProcessRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[pid]
}

// Has reports whether a record exists for pid (query).
func (r *Registry) Has(pid int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[pid]
	return ok
}

// All returns every record in insertion order (query).
func (r *Registry) All() []*ProcessRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*ProcessRecord, 0, len(r.order))
	for _, pid := range r.order {
		all = append(all, r.records[pid])
	}
	return all
}

// Len returns the number of distinct pids (query).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
