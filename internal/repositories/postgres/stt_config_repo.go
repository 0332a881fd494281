package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

type STTConfigRepository interface {
	GetByAudioFileID(ctx context.Context, audioFileID uint) (*models.STTConfig, error)
	Upsert(ctx context.Context, cfg *models.STTConfig) error
}

type sttConfigRepo struct {
	db *gorm.DB
}

func NewSTTConfigRepo(db *gorm.DB) STTConfigRepository {
	return &sttConfigRepo{db: db}
}

func (r *sttConfigRepo) GetByAudioFileID(ctx context.Context, audioFileID uint) (*models.STTConfig, error) {
	var row models.STTConfig
	err := r.db.WithContext(ctx).Where("audio_file_id = ?", audioFileID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *sttConfigRepo) Upsert(ctx context.Context, cfg *models.STTConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.STTConfig
		err := tx.Where("audio_file_id = ?", cfg.AudioFileID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(cfg).Error
		case err != nil:
			return err
		}
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		return tx.Save(cfg).Error
	})
}
