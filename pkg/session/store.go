package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps per-call sessions. Operations on the same call identifier are serialised;
// operations on different calls do not contend with each other
type Store interface {
	// Append records a turn, creating the session on the first turn of a call
	Append(ctx context.Context, callID, tenantID string, role Role, content string) (Turn, error)

	// History returns the most recent limit turns of a call in chronological order
	History(ctx context.Context, callID string, limit int) ([]Turn, error)

	// Get returns a copy of the whole session
	Get(ctx context.Context, callID string) (*Session, error)

	// MarkBooked sets the appointment flag. The flag is never cleared
	MarkBooked(ctx context.Context, callID string) error

	// End evicts the session of a finished call. Ending an unknown call is not an error
	End(ctx context.Context, callID string) error

	// Sweep evicts every session whose TTL elapsed before now and returns how many were removed
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// entry guards a single call's session
type entry struct {
	mu      sync.Mutex
	session Session
	removed bool
}

// InMemoryStore is a Store backed by a process-local map with TTL eviction
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewInMemoryStore creates an in-memory store whose sessions expire after ttl of inactivity
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &InMemoryStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// lookup returns the entry for a call, creating it when create is set
func (s *InMemoryStore) lookup(callID, tenantID string, create bool) *entry {
	s.mu.RLock()
	e, ok := s.sessions[callID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have created it in between
	if e, ok := s.sessions[callID]; ok {
		return e
	}

	now := s.now().UTC()
	e = &entry{session: Session{
		CallID:    callID,
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}}
	s.sessions[callID] = e
	return e
}

// Append records a turn for a call
func (s *InMemoryStore) Append(ctx context.Context, callID, tenantID string, role Role, content string) (Turn, error) {
	if callID == "" {
		return Turn{}, fmt.Errorf("call id cannot be empty")
	}
	if err := role.Validate(); err != nil {
		return Turn{}, err
	}

	for {
		e := s.lookup(callID, tenantID, true)

		e.mu.Lock()
		if e.removed {
			// Swept or ended between lookup and lock, start a fresh session
			e.mu.Unlock()
			continue
		}

		var last time.Time
		if n := len(e.session.Turns); n > 0 {
			last = e.session.Turns[n-1].Timestamp
		}

		now := s.now().UTC()
		turn := Turn{
			ID:        uuid.New(),
			CallID:    callID,
			Role:      role,
			Content:   content,
			Timestamp: NextTimestamp(last, now),
		}

		e.session.Turns = append(e.session.Turns, turn)
		e.session.UpdatedAt = turn.Timestamp
		e.session.ExpiresAt = now.Add(s.ttl)
		e.mu.Unlock()

		return turn, nil
	}
}

// History returns the latest limit turns of a call. Unknown calls have an empty history
func (s *InMemoryStore) History(ctx context.Context, callID string, limit int) ([]Turn, error) {
	e := s.lookup(callID, "", false)
	if e == nil {
		return []Turn{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return []Turn{}, nil
	}
	return Tail(e.session.Turns, limit), nil
}

// Get returns a copy of a call's session
func (s *InMemoryStore) Get(ctx context.Context, callID string) (*Session, error) {
	e := s.lookup(callID, "", false)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, callID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, callID)
	}

	out := e.session
	out.Turns = Tail(e.session.Turns, 0)
	return &out, nil
}

// MarkBooked flags that an appointment was booked during the call
func (s *InMemoryStore) MarkBooked(ctx context.Context, callID string) error {
	e := s.lookup(callID, "", false)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, callID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	e.session.AppointmentBooked = true
	return nil
}

// End removes a call's session
func (s *InMemoryStore) End(ctx context.Context, callID string) error {
	s.mu.Lock()
	e, ok := s.sessions[callID]
	delete(s.sessions, callID)
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	return nil
}

// Sweep removes sessions that expired before now
func (s *InMemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for callID, e := range s.sessions {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}

		e.mu.Lock()
		if e.session.ExpiresAt.Before(now) {
			e.removed = true
			delete(s.sessions, callID)
			evicted++
		}
		e.mu.Unlock()
	}

	return evicted, nil
}

// Len returns the number of live sessions
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
