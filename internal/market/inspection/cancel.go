package inspection

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CancelRegistry tracks the cancel funcs for in-flight root inspection jobs,
// keyed by inspection id, so an external actor (the context-deletion
// handler) can cooperatively cancel a running inspection. Cancellation
// does not unwind already-purchased offers: whatever was
// collected before the cancel still settles normally.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewCancelRegistry constructs an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[uuid.UUID]context.CancelFunc)}
}

// Register derives a cancellable context from parent and stores its cancel
// func under id. Callers must call Done(id) once the job finishes, whether
// it was cancelled or not.
func (r *CancelRegistry) Register(id uuid.UUID, parent context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.cancels[id] = cancel
	r.mu.Unlock()
	return runCtx, cancel
}

// Cancel invokes the stored cancel func for id, if any is registered. It
// reports whether a running job was found and cancelled.
func (r *CancelRegistry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Done removes id's entry once its job has finished running.
func (r *CancelRegistry) Done(id uuid.UUID) {
	r.mu.Lock()
	delete(r.cancels, id)
	r.mu.Unlock()
}
