package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

type ReportDataRepository interface {
	// InsertWithReportStatus appends the analysis snapshot and flips the
	// owning report's status in one transaction.
	InsertWithReportStatus(ctx context.Context, rd *models.ReportData, reportStatus string) error
	LatestByReport(ctx context.Context, reportID uint) (*models.ReportData, error)
	CountByReport(ctx context.Context, reportID uint) (int64, error)
}

type reportDataRepo struct {
	db *gorm.DB
}

func NewReportDataRepo(db *gorm.DB) ReportDataRepository {
	return &reportDataRepo{db: db}
}

func (r *reportDataRepo) InsertWithReportStatus(ctx context.Context, rd *models.ReportData, reportStatus string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rd.GeneratedAt.IsZero() {
			rd.GeneratedAt = time.Now().UTC()
		}
		if err := tx.Create(rd).Error; err != nil {
			return err
		}
		return tx.Model(&models.Report{}).
			Where("id = ?", rd.ReportID).
			Updates(map[string]any{"status": reportStatus, "updated_at": time.Now().UTC()}).Error
	})
}

func (r *reportDataRepo) LatestByReport(ctx context.Context, reportID uint) (*models.ReportData, error) {
	var row models.ReportData
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("generated_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *reportDataRepo) CountByReport(ctx context.Context, reportID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ReportData{}).
		Where("report_id = ?", reportID).
		Count(&n).Error
	return n, err
}
