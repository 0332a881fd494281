package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
)

type PublishedReportRepository interface {
	// InsertWithReportStatus records the publish result and advances the
	// report to published in one transaction.
	InsertWithReportStatus(ctx context.Context, pr *models.PublishedReport) error
	ListByReport(ctx context.Context, reportID uint) ([]models.PublishedReport, error)
	CountByReport(ctx context.Context, reportID uint) (int64, error)
}

type publishedReportRepo struct {
	db *gorm.DB
}

func NewPublishedReportRepo(db *gorm.DB) PublishedReportRepository {
	return &publishedReportRepo{db: db}
}

func (r *publishedReportRepo) InsertWithReportStatus(ctx context.Context, pr *models.PublishedReport) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pr.PublishedAt.IsZero() {
			pr.PublishedAt = time.Now().UTC()
		}
		if err := tx.Create(pr).Error; err != nil {
			return err
		}
		return tx.Model(&models.Report{}).
			Where("id = ?", pr.ReportID).
			Updates(map[string]any{"status": models.ReportStatusPublished, "updated_at": time.Now().UTC()}).Error
	})
}

func (r *publishedReportRepo) ListByReport(ctx context.Context, reportID uint) ([]models.PublishedReport, error) {
	var rows []models.PublishedReport
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("published_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *publishedReportRepo) CountByReport(ctx context.Context, reportID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PublishedReport{}).
		Where("report_id = ?", reportID).
		Count(&n).Error
	return n, err
}
