package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

type PromptRepository interface {
	// Insert stores a new prompt. When IsDefault is set, every other row's
	// flag is cleared inside the same transaction so that at most one
	// default exists.
	Insert(ctx context.Context, p *models.AIPromptForReport) error
	GetByID(ctx context.Context, id uint) (*models.AIPromptForReport, error)
	GetDefault(ctx context.Context) (*models.AIPromptForReport, error)
	List(ctx context.Context, page, size int, isDefault *bool) ([]models.AIPromptForReport, int64, error)
	// Update saves the row under the same single-default discipline as Insert.
	Update(ctx context.Context, p *models.AIPromptForReport) error
	Delete(ctx context.Context, id uint) error
	CountReportData(ctx context.Context, promptID uint) (int64, error)
}

type promptRepo struct {
	db *gorm.DB
}

func NewPromptRepo(db *gorm.DB) PromptRepository {
	return &promptRepo{db: db}
}

func (r *promptRepo) Insert(ctx context.Context, p *models.AIPromptForReport) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			if err := tx.Model(&models.AIPromptForReport{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(p).Error
	})
}

func (r *promptRepo) GetByID(ctx context.Context, id uint) (*models.AIPromptForReport, error) {
	var row models.AIPromptForReport
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *promptRepo) GetDefault(ctx context.Context) (*models.AIPromptForReport, error) {
	var row models.AIPromptForReport
	err := r.db.WithContext(ctx).Where("is_default = ?", true).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *promptRepo) List(ctx context.Context, page, size int, isDefault *bool) ([]models.AIPromptForReport, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}

	q := r.db.WithContext(ctx).Model(&models.AIPromptForReport{})
	if isDefault != nil {
		q = q.Where("is_default = ?", *isDefault)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AIPromptForReport
	err := q.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	return rows, total, err
}

func (r *promptRepo) Update(ctx context.Context, p *models.AIPromptForReport) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			if err := tx.Model(&models.AIPromptForReport{}).
				Where("is_default = ? AND id <> ?", true, p.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		p.UpdatedAt = time.Now().UTC()
		return tx.Save(p).Error
	})
}

func (r *promptRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.AIPromptForReport{}, id).Error
}

func (r *promptRepo) CountReportData(ctx context.Context, promptID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ReportData{}).
		Where("ai_prompt_id = ?", promptID).
		Count(&n).Error
	return n, err
}
