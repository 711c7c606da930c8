package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// Registry keeps conversations in memory by id.
type Registry struct {
	mu    sync.Mutex
	opts  Options
	convs map[string]*Conversation
}

func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, convs: map[string]*Conversation{}}
}

// Open returns the conversation for id, creating it when missing. An empty
// id creates a new conversation. locale applies only on creation.
func (r *Registry) Open(id, locale string) *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if c, ok := r.convs[id]; ok {
		return c
	}
	opts := r.opts
	if locale != "" {
		opts.Locale = locale
	}
	c := NewConversation(id, opts)
	r.convs[id] = c
	return c
}

func (r *Registry) Get(id string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, fmt.Errorf("agent: conversation %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// Delete removes an idle conversation.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return fmt.Errorf("agent: conversation %s: %w", id, domain.ErrNotFound)
	}
	if c.busy.Load() {
		return fmt.Errorf("agent: conversation %s: %w", id, domain.ErrBusy)
	}
	delete(r.convs, id)
	return nil
}

// Prune drops idle conversations untouched for longer than ttl.
func (r *Registry) Prune(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-ttl).UnixNano()
	n := 0
	for id, c := range r.convs {
		if !c.busy.Load() && c.updatedAt.Load() < cutoff {
			delete(r.convs, id)
			n++
		}
	}
	return n
}
