package session

import (
	"sync"

	"github.com/lastslot/account-service/internal/core/domain"
)

// EventKind distinguishes auth transitions from profile cache updates.
type EventKind int

const (
	EventAuthChanged EventKind = iota + 1
	EventProfileChanged
)

// Event is delivered to subscribers.
type Event struct {
	Kind    EventKind
	Change  domain.AuthChangeType // set for EventAuthChanged
	Session *domain.Session
	Profile ProfileResult // set for EventProfileChanged
}

// Subscription receives events in emission order. Events queue without bound
// so a slow reader never stalls the publisher; Close unsubscribes and closes
// the channel returned by Events.
type Subscription struct {
	out    chan Event
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	remove func()

	mu     sync.Mutex
	queue  []Event
	closed bool
}

func newSubscription(buffer int, remove func()) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	s := &Subscription{
		out:    make(chan Event, buffer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		remove: remove,
	}
	go s.pump()
	return s
}

// Events returns the receive side of the subscription.
func (s *Subscription) Events() <-chan Event { return s.out }

// Close unsubscribes. Pending events are dropped. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)
		if s.remove != nil {
			s.remove()
		}
	})
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- e:
			case <-s.done:
				return
			}
		}
	}
}
