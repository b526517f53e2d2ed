package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/parardhadhar/parardha-insight-engine/internal/model"
)

type TranscriptRepository struct {
	db *gorm.DB
}

func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) Create(message *model.TranscriptMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create transcript message failed: %w", err)
	}
	return nil
}

func (r *TranscriptRepository) ListBySessionID(sessionID string, limit int) ([]model.TranscriptMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []model.TranscriptMessage
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list transcript messages failed: %w", err)
	}
	return messages, nil
}

func (r *TranscriptRepository) DeleteBySessionID(sessionID string) error {
	if err := r.db.Where("session_id = ?", sessionID).
		Delete(&model.TranscriptMessage{}).Error; err != nil {
		return fmt.Errorf("delete transcript messages failed: %w", err)
	}
	return nil
}
