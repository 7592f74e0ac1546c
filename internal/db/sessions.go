package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/epgcast/internal/models"
	"gorm.io/gorm"
)

const (
	// DefaultSessionListLimit is used when no positive limit is given
	DefaultSessionListLimit = 50
	// MaxSessionListLimit caps a single listing
	MaxSessionListLimit = 500
)

// SessionRepository handles database operations for stream history
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.StreamSession) error {
	result := r.db.WithContext(ctx).Omit("Steps").Create(session)
	if result.Error != nil {
		return fmt.Errorf("failed to create session: %w", MapGormError(result.Error))
	}
	return nil
}

// AddStep inserts a step and bumps the session's running totals in one transaction
func (r *SessionRepository) AddStep(ctx context.Context, step *models.StreamStep) error {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}

	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(step).Error; err != nil {
			return fmt.Errorf("failed to create step: %w", MapGormError(err))
		}

		updates := map[string]any{
			"step_count": gorm.Expr("step_count + 1"),
			"bytes":      gorm.Expr("bytes + ?", step.Bytes),
		}
		switch step.Outcome {
		case models.StepOutcomeCompleted:
			updates["completed"] = gorm.Expr("completed + 1")
		case models.StepOutcomeFailed:
			updates["failed"] = gorm.Expr("failed + 1")
		case models.StepOutcomeSkipped:
			updates["skipped"] = gorm.Expr("skipped + 1")
		}

		result := tx.Model(&models.StreamSession{}).
			Where("id = ?", step.SessionID.String()).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update session totals: %w", MapGormError(result.Error))
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Finish stores the final state and totals of a session
func (r *SessionRepository) Finish(ctx context.Context, session *models.StreamSession) error {
	result := r.db.WithContext(ctx).
		Model(&models.StreamSession{}).
		Where("id = ?", session.ID.String()).
		Select("state", "step_count", "completed", "failed", "skipped", "bytes", "ended_at").
		Updates(session)
	if result.Error != nil {
		return fmt.Errorf("failed to finish session: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session with its steps in play order
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StreamSession, error) {
	var session models.StreamSession
	result := r.db.WithContext(ctx).
		Preload("Steps", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sequence ASC")
		}).
		Where("id = ?", id.String()).
		First(&session)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &session, nil
}

// ListRecent retrieves the newest sessions without their steps. The limit is
// clamped to (0, MaxSessionListLimit].
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]*models.StreamSession, error) {
	if limit <= 0 {
		limit = DefaultSessionListLimit
	}
	if limit > MaxSessionListLimit {
		limit = MaxSessionListLimit
	}

	var sessions []*models.StreamSession
	result := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", MapGormError(result.Error))
	}
	return sessions, nil
}

// ListByChannel retrieves the newest sessions of one channel
func (r *SessionRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]*models.StreamSession, error) {
	if limit <= 0 || limit > MaxSessionListLimit {
		limit = DefaultSessionListLimit
	}

	var sessions []*models.StreamSession
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", MapGormError(result.Error))
	}
	return sessions, nil
}
