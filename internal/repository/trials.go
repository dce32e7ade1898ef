package repository

import (
	"context"
	"fmt"

	"attblink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrialRepository keeps trials and sessions in postgres.
type TrialRepository struct {
	db *gorm.DB
}

func NewTrialRepository(db *gorm.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

func (r *TrialRepository) Append(ctx context.Context, rec models.TrialRecord) error {
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert trial %d: %w", rec.TrialNumber, err)
	}
	return nil
}

// SaveSession inserts the session or updates it when it already exists.
func (r *TrialRepository) SaveSession(ctx context.Context, s models.Session) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_trials", "finished_at"}),
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *TrialRepository) ListTrials(ctx context.Context, sessionID string) ([]models.TrialRecord, error) {
	var records []models.TrialRecord
	q := r.db.WithContext(ctx).Order("created_at, trial_number")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	return records, nil
}

// ListSessions returns the most recent sessions first.
func (r *TrialRepository) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
