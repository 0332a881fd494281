package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

type ReportRepository interface {
	Insert(ctx context.Context, r *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	GetDetail(ctx context.Context, id uint) (*models.Report, error)
	List(ctx context.Context, page, size int, status string) ([]models.Report, int64, error)
	Update(ctx context.Context, r *models.Report) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	// UpdateStatusFrom flips the status only when the current status is one
	// of the given values; returns false when no row matched.
	UpdateStatusFrom(ctx context.Context, id uint, to string, from ...string) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Insert(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepo) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var row models.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *reportRepo) GetDetail(ctx context.Context, id uint) (*models.Report, error) {
	var row models.Report
	err := r.db.WithContext(ctx).
		Preload("AudioFiles", func(db *gorm.DB) *gorm.DB {
			return db.Order("audio_files.uploaded_at ASC")
		}).
		Preload("AudioFiles.Transcript").
		Preload("AudioFiles.STTConfig").
		Preload("PublishedReports").
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *reportRepo) List(ctx context.Context, page, size int, status string) ([]models.Report, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}

	q := r.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Report
	err := q.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	return rows, total, err
}

func (r *reportRepo) Update(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *reportRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *reportRepo) UpdateStatusFrom(ctx context.Context, id uint, to string, from ...string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

func (r *reportRepo) Delete(ctx context.Context, id uint) error {
	// Cascades to every owned entity in one transaction.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fileIDs := tx.Model(&models.AudioFile{}).Select("id").Where("report_id = ?", id)
		if err := tx.Where("audio_file_id IN (?)", fileIDs).Delete(&models.Transcript{}).Error; err != nil {
			return err
		}
		if err := tx.Where("audio_file_id IN (?)", fileIDs).Delete(&models.STTConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.AudioFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportData{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.PublishedReport{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Report{}, id).Error
	})
}
