package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

type AudioFileRepository interface {
	Insert(ctx context.Context, f *models.AudioFile) error
	GetByID(ctx context.Context, id uint) (*models.AudioFile, error)
	GetWithRelations(ctx context.Context, id uint) (*models.AudioFile, error)
	ListByReport(ctx context.Context, reportID uint) ([]models.AudioFile, error)
	ListByReportWithTranscripts(ctx context.Context, reportID uint) ([]models.AudioFile, error)
	CountByReport(ctx context.Context, reportID uint) (int64, error)
	UpdateDisplayName(ctx context.Context, id uint, displayName string) error
	// BeginSTT flips stt_status to processing only from pending/failed;
	// returns false when the file was already processing or completed.
	BeginSTT(ctx context.Context, id uint) (bool, error)
	// RestartSTT clears the prior transcript and error fields and forces
	// stt_status back to processing, regardless of the current state.
	RestartSTT(ctx context.Context, id uint) error
	MarkSTTCompleted(ctx context.Context, id uint, at time.Time) error
	MarkSTTFailed(ctx context.Context, id uint, errMsg string) error
	Delete(ctx context.Context, id uint) error
}

type audioFileRepo struct {
	db *gorm.DB
}

func NewAudioFileRepo(db *gorm.DB) AudioFileRepository {
	return &audioFileRepo{db: db}
}

func (r *audioFileRepo) Insert(ctx context.Context, f *models.AudioFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *audioFileRepo) GetByID(ctx context.Context, id uint) (*models.AudioFile, error) {
	var row models.AudioFile
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *audioFileRepo) GetWithRelations(ctx context.Context, id uint) (*models.AudioFile, error) {
	var row models.AudioFile
	err := r.db.WithContext(ctx).
		Preload("Transcript").
		Preload("STTConfig").
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *audioFileRepo) ListByReport(ctx context.Context, reportID uint) ([]models.AudioFile, error) {
	var rows []models.AudioFile
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("uploaded_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *audioFileRepo) ListByReportWithTranscripts(ctx context.Context, reportID uint) ([]models.AudioFile, error) {
	var rows []models.AudioFile
	err := r.db.WithContext(ctx).
		Preload("Transcript").
		Where("report_id = ?", reportID).
		Order("uploaded_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *audioFileRepo) CountByReport(ctx context.Context, reportID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AudioFile{}).
		Where("report_id = ?", reportID).
		Count(&n).Error
	return n, err
}

func (r *audioFileRepo) UpdateDisplayName(ctx context.Context, id uint, displayName string) error {
	return r.db.WithContext(ctx).Model(&models.AudioFile{}).
		Where("id = ?", id).
		Update("display_name", displayName).Error
}

func (r *audioFileRepo) BeginSTT(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AudioFile{}).
		Where("id = ? AND stt_status IN ?", id, []string{models.STTStatusPending, models.STTStatusFailed}).
		Updates(map[string]any{"stt_status": models.STTStatusProcessing, "stt_error_message": ""})
	return res.RowsAffected > 0, res.Error
}

func (r *audioFileRepo) RestartSTT(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("audio_file_id = ?", id).Delete(&models.Transcript{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.AudioFile{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"stt_status":        models.STTStatusProcessing,
				"stt_error_message": "",
				"stt_processed_at":  nil,
			}).Error
	})
}

func (r *audioFileRepo) MarkSTTCompleted(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AudioFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stt_status":        models.STTStatusCompleted,
			"stt_processed_at":  at,
			"stt_error_message": "",
		}).Error
}

func (r *audioFileRepo) MarkSTTFailed(ctx context.Context, id uint, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.AudioFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stt_status":        models.STTStatusFailed,
			"stt_error_message": errMsg,
		}).Error
}

func (r *audioFileRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("audio_file_id = ?", id).Delete(&models.Transcript{}).Error; err != nil {
			return err
		}
		if err := tx.Where("audio_file_id = ?", id).Delete(&models.STTConfig{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AudioFile{}, id).Error
	})
}
