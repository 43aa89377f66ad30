package session

import (
	"time"

	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/google/uuid"
)

// CallSession is the row holding a call's session metadata
type CallSession struct {
	CallID            string    `gorm:"column:call_id;size:128;primaryKey"`
	TenantID          string    `gorm:"column:tenant_id;size:128;index"`
	AppointmentBooked bool      `gorm:"column:appointment_booked;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;precision:6"`
	UpdatedAt         time.Time `gorm:"column:updated_at;precision:6"`
	ExpiresAt         time.Time `gorm:"column:expires_at;precision:6;index"`

	Turns []CallTurn `gorm:"foreignKey:CallID;references:CallID;constraint:OnDelete:CASCADE"`
}

// CallTurn is a single utterance or reply
type CallTurn struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CallID    string    `gorm:"column:call_id;size:128;not null;index:idx_call_turns_call_ts,priority:1"`
	Role      string    `gorm:"column:role;size:16;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	Timestamp time.Time `gorm:"column:timestamp;precision:6;not null;index:idx_call_turns_call_ts,priority:2"`
}

func (t CallTurn) toTurn() session.Turn {
	return session.Turn{
		ID:        t.ID,
		CallID:    t.CallID,
		Role:      session.Role(t.Role),
		Content:   t.Content,
		Timestamp: t.Timestamp.UTC(),
	}
}

func fromTurn(t session.Turn) CallTurn {
	return CallTurn{
		ID:        t.ID,
		CallID:    t.CallID,
		Role:      string(t.Role),
		Content:   t.Content,
		Timestamp: t.Timestamp.UTC(),
	}
}

func (s CallSession) toSession() *session.Session {
	out := &session.Session{
		CallID:            s.CallID,
		TenantID:          s.TenantID,
		AppointmentBooked: s.AppointmentBooked,
		CreatedAt:         s.CreatedAt.UTC(),
		UpdatedAt:         s.UpdatedAt.UTC(),
		ExpiresAt:         s.ExpiresAt.UTC(),
		Turns:             make([]session.Turn, 0, len(s.Turns)),
	}
	for _, t := range s.Turns {
		out.Turns = append(out.Turns, t.toTurn())
	}
	return out
}

// reverse flips turns fetched newest first into chronological order
func reverse(rows []CallTurn) []session.Turn {
	out := make([]session.Turn, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row.toTurn()
	}
	return out
}
