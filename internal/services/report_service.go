package services

import (
	"context"
	"errors"

	"github.com/daonlab/talkreport/internal/models"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
)

type ReportUpdate struct {
	Title      *string
	ParentName *string
	ChildName  *string
}

type ReportService interface {
	Create(ctx context.Context, title, parentName, childName string) (*models.Report, error)
	List(ctx context.Context, page, size int, status string) ([]models.Report, int64, error)
	Get(ctx context.Context, id uint) (*models.Report, error)
	GetDetail(ctx context.Context, id uint) (*models.Report, error)
	Update(ctx context.Context, id uint, upd ReportUpdate) (*models.Report, error)
	Delete(ctx context.Context, id uint) error
	// SetStatus is the administrative status overwrite. Leaving the
	// published state is rejected.
	SetStatus(ctx context.Context, id uint, newStatus string) (*models.Report, error)
}

type reportService struct {
	reports   pgrepo.ReportRepository
	published pgrepo.PublishedReportRepository
}

func NewReportService(reports pgrepo.ReportRepository, published pgrepo.PublishedReportRepository) ReportService {
	return &reportService{reports: reports, published: published}
}

func (s *reportService) Create(ctx context.Context, title, parentName, childName string) (*models.Report, error) {
	const op = "ReportService.Create"

	if title == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title is required", nil)
	}

	row := &models.Report{
		Title:      title,
		ParentName: parentName,
		ChildName:  childName,
		Status:     models.ReportStatusDraft,
	}
	if err := s.reports.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create report", err)
	}
	return row, nil
}

func (s *reportService) List(ctx context.Context, page, size int, status string) ([]models.Report, int64, error) {
	const op = "ReportService.List"

	if status != "" && !models.ValidReportStatus(status) {
		return nil, 0, utils.E(utils.CodeInvalidArgument, op, "unknown status filter", nil)
	}
	rows, total, err := s.reports.List(ctx, page, size, status)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list reports", err)
	}
	return rows, total, nil
}

func (s *reportService) Get(ctx context.Context, id uint) (*models.Report, error) {
	const op = "ReportService.Get"

	row, err := s.reports.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}
	return row, nil
}

func (s *reportService) GetDetail(ctx context.Context, id uint) (*models.Report, error) {
	const op = "ReportService.GetDetail"

	row, err := s.reports.GetDetail(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}
	return row, nil
}

func (s *reportService) Update(ctx context.Context, id uint, upd ReportUpdate) (*models.Report, error) {
	const op = "ReportService.Update"

	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if *upd.Title == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "title cannot be empty", nil)
		}
		row.Title = *upd.Title
	}
	if upd.ParentName != nil {
		row.ParentName = *upd.ParentName
	}
	if upd.ChildName != nil {
		row.ChildName = *upd.ChildName
	}

	if err := s.reports.Update(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update report", err)
	}
	return row, nil
}

func (s *reportService) Delete(ctx context.Context, id uint) error {
	const op = "ReportService.Delete"

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	// Published reports are kept as a record of what was sent out; a
	// report that was ever published cannot be deleted.
	n, err := s.published.CountByReport(ctx, id)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to check published reports", err)
	}
	if n > 0 {
		return utils.E(utils.CodeInvalidArgument, op, "cannot delete a report with published versions", nil)
	}

	if err := s.reports.Delete(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete report", err)
	}
	return nil
}

func (s *reportService) SetStatus(ctx context.Context, id uint, newStatus string) (*models.Report, error) {
	const op = "ReportService.SetStatus"

	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.ValidReportStatus(newStatus) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown report status", nil)
	}
	if !models.CanSetReportStatus(row.Status, newStatus) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "published reports cannot change status", nil)
	}

	if err := s.reports.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update report status", err)
	}
	row.Status = newStatus
	return row, nil
}
