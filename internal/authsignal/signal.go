// Package authsignal carries the process-wide "provider credentials were
// rejected" flag. Producers raise it; the API exposes it so a client can ask
// the user to select a key again.
package authsignal

import (
	"sync"
	"time"
)

// State is a snapshot of the signal.
type State struct {
	Required bool      `json:"required"`
	Reason   string    `json:"reason,omitempty"`
	RaisedAt time.Time `json:"raised_at,omitempty"`
}

// Signal is safe for concurrent use. The zero value is ready.
type Signal struct {
	mu          sync.Mutex
	state       State
	subscribers map[int]chan State
	nextID      int
	now         func() time.Time
}

func New() *Signal {
	return &Signal{}
}

// Raise sets the flag and notifies subscribers. Raising an already raised
// signal only refreshes the reason.
func (s *Signal) Raise(reason string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wasRequired := s.state.Required
	s.state = State{Required: true, Reason: reason, RaisedAt: s.clock()}
	if !wasRequired {
		s.broadcast()
	}
}

// Clear resets the flag after the user supplied new credentials.
func (s *Signal) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Required {
		return
	}
	s.state = State{}
	s.broadcast()
}

func (s *Signal) Required() bool {
	return s.State().Required
}

func (s *Signal) State() State {
	if s == nil {
		return State{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving every transition and a cancel func.
// Slow subscribers miss intermediate transitions rather than block producers.
func (s *Signal) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	if s.subscribers == nil {
		s.subscribers = map[int]chan State{}
	}
	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Signal) broadcast() {
	for _, ch := range s.subscribers {
		select {
		case ch <- s.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
}

func (s *Signal) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}
