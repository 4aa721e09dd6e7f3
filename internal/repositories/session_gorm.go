package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

type gormSessionRepository struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewGormSessionRepository(db *gorm.DB, ttl time.Duration) ExpiringSessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &gormSessionRepository{db: db, ttl: ttl}
}

// FindByID implements SessionRepository. Expired rows are removed on read.
func (r *gormSessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var record models.SessionRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if !time.Now().Before(record.ExpiresAt) {
		if err := r.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	return decodeSession([]byte(record.Payload))
}

// Save implements SessionRepository.
func (r *gormSessionRepository) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	now := time.Now()
	record := models.SessionRecord{
		ID:        session.ID,
		Payload:   string(payload),
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Delete implements SessionRepository.
func (r *gormSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired implements ExpiringSessionRepository.
func (r *gormSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&models.SessionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
