package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySqlStore persists call sessions with GORM. Appends for one call are serialised with a
// row lock on the session, so several API replicas can share the store
type MySqlStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

var _ session.Store = (*MySqlStore)(nil)

// NewMySqlStore creates a session store on an open connection and migrates its tables
func NewMySqlStore(db *gorm.DB, ttl time.Duration) (*MySqlStore, error) {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}

	if err := db.AutoMigrate(&CallSession{}, &CallTurn{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &MySqlStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Append records a turn, creating the session row on first use
func (s *MySqlStore) Append(ctx context.Context, callID, tenantID string, role session.Role, content string) (session.Turn, error) {
	if callID == "" {
		return session.Turn{}, fmt.Errorf("call id cannot be empty")
	}
	if err := role.Validate(); err != nil {
		return session.Turn{}, err
	}

	var turn session.Turn
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		// Create the session if needed, then lock it for the rest of the transaction
		row := CallSession{CallID: callID, TenantID: tenantID, CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(s.ttl)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "call_id = ?", callID).Error; err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}

		var last CallTurn
		var lastTs time.Time
		result := tx.Where("call_id = ?", callID).Order("timestamp DESC").Limit(1).Find(&last)
		if result.Error != nil {
			return fmt.Errorf("failed to read last turn: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			lastTs = last.Timestamp
		}

		turn = session.Turn{
			ID:        uuid.New(),
			CallID:    callID,
			Role:      role,
			Content:   content,
			Timestamp: nextTimestamp(lastTs, now),
		}

		model := fromTurn(turn)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to save turn: %w", err)
		}

		return tx.Model(&CallSession{}).Where("call_id = ?", callID).Updates(map[string]any{
			"updated_at": turn.Timestamp,
			"expires_at": now.Add(s.ttl),
		}).Error
	})
	if err != nil {
		return session.Turn{}, err
	}

	return turn, nil
}

// History returns the latest limit turns in chronological order
func (s *MySqlStore) History(ctx context.Context, callID string, limit int) ([]session.Turn, error) {
	var rows []CallTurn
	query := s.db.WithContext(ctx).Where("call_id = ?", callID).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}

	return reverse(rows), nil
}

// Get returns the session with all of its turns
func (s *MySqlStore) Get(ctx context.Context, callID string) (*session.Session, error) {
	var row CallSession
	result := s.db.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		First(&row, "call_id = ?", callID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", session.ErrNotFound, callID)
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}

	return row.toSession(), nil
}

// MarkBooked sets the appointment flag on a session
func (s *MySqlStore) MarkBooked(ctx context.Context, callID string) error {
	result := s.db.WithContext(ctx).Model(&CallSession{}).
		Where("call_id = ?", callID).
		Update("appointment_booked", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark session booked: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows when the flag was already set
		var count int64
		if err := s.db.WithContext(ctx).Model(&CallSession{}).Where("call_id = ?", callID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", session.ErrNotFound, callID)
		}
	}
	return nil
}

// End deletes a call's session and turns
func (s *MySqlStore) End(ctx context.Context, callID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("call_id = ?", callID).Delete(&CallTurn{}).Error; err != nil {
			return fmt.Errorf("failed to delete session turns: %w", err)
		}
		if err := tx.Where("call_id = ?", callID).Delete(&CallSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// Sweep deletes sessions that expired before now
func (s *MySqlStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	var ids []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&CallSession{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("expires_at < ?", now.UTC()).
			Pluck("call_id", &ids).Error; err != nil {
			return fmt.Errorf("failed to find expired sessions: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("call_id IN ?", ids).Delete(&CallTurn{}).Error; err != nil {
			return fmt.Errorf("failed to delete expired turns: %w", err)
		}
		if err := tx.Where("call_id IN ?", ids).Delete(&CallSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete expired sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(ids), nil
}

// nextTimestamp keeps turns strictly ordered at the microsecond precision MySQL stores
func nextTimestamp(last, now time.Time) time.Time {
	now = now.Truncate(time.Microsecond)
	if now.After(last) {
		return now
	}
	return last.Truncate(time.Microsecond).Add(time.Microsecond)
}
