// Package signaling relays WebRTC negotiation between the two parties of a
// call. It stores nothing durable: calls live in a Registry for the life of
// the process.
package signaling

import (
	"context"
	"errors"
	"sync"
)

// ErrCallIDTaken is returned by Replace when the id belongs to a call of
// another conversation or of parties other than the caller.
var ErrCallIDTaken = errors.New("signaling: call id in use")

// CallType is the media of a call.
type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

// Call is the routing entry of one call id.
type Call struct {
	ID             string
	CallerID       string
	CalleeID       string
	ConversationID string
	Type           CallType
}

// Involves reports whether userID is the caller or the callee.
func (c Call) Involves(userID string) bool {
	return userID != "" && (c.CallerID == userID || c.CalleeID == userID)
}

// Counterpart returns the party of c that is not userID.
func (c Call) Counterpart(userID string) string {
	if c.CallerID == userID {
		return c.CalleeID
	}
	return c.CallerID
}

// Registry stores call entries. Implementations must be safe for concurrent
// use; a shared cache can back it when calls span processes.
type Registry interface {
	// Replace stores call after removing every entry of the same
	// conversation that involves call.CallerID. It returns the removed ids,
	// or ErrCallIDTaken without changing anything when call.ID is held by a
	// call that would not be removed.
	Replace(ctx context.Context, call Call) (evicted []string, err error)
	Get(ctx context.Context, id string) (Call, bool, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	mu    sync.Mutex
	calls map[string]Call
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{calls: make(map[string]Call)}
}

func (r *MemoryRegistry) Replace(_ context.Context, call Call) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.calls[call.ID]; ok && !supersedes(call, held) {
		return nil, ErrCallIDTaken
	}
	var evicted []string
	for id, existing := range r.calls {
		if supersedes(call, existing) {
			delete(r.calls, id)
			evicted = append(evicted, id)
		}
	}
	r.calls[call.ID] = call
	return evicted, nil
}

// supersedes reports whether starting next replaces prev: same conversation,
// placed by one of prev's parties.
func supersedes(next, prev Call) bool {
	return prev.ConversationID == next.ConversationID && prev.Involves(next.CallerID)
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	return c, ok, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, id)
	return nil
}

// Len returns the number of stored calls.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
