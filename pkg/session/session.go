// Package session holds the turn history of live calls
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle call session is kept before it can be swept
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned when a call has no session
var ErrNotFound = errors.New("session not found")

// Role identifies who produced a turn
type Role string

const (
	// RoleCaller marks an utterance from the person on the phone
	RoleCaller Role = "caller"

	// RoleAssistant marks a reply spoken by the receptionist
	RoleAssistant Role = "assistant"
)

// Validate checks the role is one of the known values
func (r Role) Validate() error {
	switch r {
	case RoleCaller, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("invalid turn role %q", r)
	}
}

// Turn is one utterance or reply within a call. Turns are never modified once stored
type Turn struct {
	ID        uuid.UUID `json:"id"`
	CallID    string    `json:"call_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the conversation state of a single call
type Session struct {
	CallID            string    `json:"call_id"`
	TenantID          string    `json:"tenant_id"`
	Turns             []Turn    `json:"turns"`
	AppointmentBooked bool      `json:"appointment_booked"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// NextTimestamp returns now, or the smallest instant after last when the clock has not
// moved past it, so turns of a call stay strictly ordered
func NextTimestamp(last, now time.Time) time.Time {
	if !last.IsZero() && !now.After(last) {
		return last.Add(time.Nanosecond)
	}
	return now
}

// Tail returns the most recent limit turns in chronological order. A limit <= 0 returns
// every turn. The result never aliases the input
func Tail(turns []Turn, limit int) []Turn {
	start := 0
	if limit > 0 && len(turns) > limit {
		start = len(turns) - limit
	}

	out := make([]Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}
