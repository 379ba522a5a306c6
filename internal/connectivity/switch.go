// Package connectivity reports whether the remote ledger is reachable.
//
// Observers expose the current binary state and a subscription to
// transitions. Nothing finer than online/offline is modelled.
package connectivity

import (
	"sync"
	"time"
)

// Event is a connectivity transition.
type Event struct {
	Online bool
	At     time.Time
}

// Observer reports connectivity and its transitions.
type Observer interface {
	// Online reports the current state.
	Online() bool
	// Subscribe returns a channel of transitions and a function that ends
	// the subscription and closes the channel.
	Subscribe() (<-chan Event, func())
}

// subscriberBuffer bounds how many undelivered transitions a slow subscriber keeps.
const subscriberBuffer = 8

// Switch is an Observer whose state is set explicitly. Set only publishes
// when the state actually changes.
type Switch struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan Event
	nextID int
	now    func() time.Time
}

// NewSwitch returns a Switch in the given initial state.
func NewSwitch(online bool) *Switch {
	return &Switch{
		online: online,
		subs:   make(map[int]chan Event),
		now:    time.Now,
	}
}

// Online reports the current state.
func (s *Switch) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set changes the state and notifies subscribers on a transition.
// It reports whether a transition happened.
func (s *Switch) Set(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.online == online {
		return false
	}
	s.online = online

	event := Event{Online: online, At: s.now()}
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is behind; drop the oldest event to keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return true
}

// Toggle flips the state.
func (s *Switch) Toggle() {
	s.mu.Lock()
	next := !s.online
	s.mu.Unlock()
	s.Set(next)
}

// Subscribe registers a transition listener.
func (s *Switch) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
