package session

import "github.com/google/uuid"

// EventKind classifies a store change notification
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventMessage  EventKind = "message"
	EventDeleted  EventKind = "deleted"
	EventActive   EventKind = "active"
	EventReplaced EventKind = "replaced"
)

// Event tells observers which session changed; observers re-read the store for state
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID uuid.UUID `json:"session_id"`
}

const subscriberBuffer = 64

// Subscribe registers an observer. Events are delivered without blocking the store:
// a subscriber that falls behind misses intermediate events but never stale state,
// because every read goes back through the store. Call the returned func to unsubscribe.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

func (s *Store) publish(kind EventKind, id uuid.UUID) {
	ev := Event{Kind: kind, SessionID: id}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Store) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
