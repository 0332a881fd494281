package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

type TranscriptRepository interface {
	GetByAudioFileID(ctx context.Context, audioFileID uint) (*models.Transcript, error)
	// Upsert creates the transcript row for the file, or replaces the
	// existing one. One transcript per audio file.
	Upsert(ctx context.Context, t *models.Transcript) error
	Update(ctx context.Context, t *models.Transcript) error
	CountNonEmptyByReport(ctx context.Context, reportID uint) (int64, error)
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepository {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) GetByAudioFileID(ctx context.Context, audioFileID uint) (*models.Transcript, error) {
	var row models.Transcript
	err := r.db.WithContext(ctx).Where("audio_file_id = ?", audioFileID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *transcriptRepo) Upsert(ctx context.Context, t *models.Transcript) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Transcript
		err := tx.Where("audio_file_id = ?", t.AudioFileID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(t).Error
		case err != nil:
			return err
		}
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
		return tx.Save(t).Error
	})
}

func (r *transcriptRepo) Update(ctx context.Context, t *models.Transcript) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *transcriptRepo) CountNonEmptyByReport(ctx context.Context, reportID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Transcript{}).
		Joins("JOIN audio_files ON audio_files.id = transcripts.audio_file_id").
		Where("audio_files.report_id = ? AND transcripts.content <> ''", reportID).
		Count(&n).Error
	return n, err
}
