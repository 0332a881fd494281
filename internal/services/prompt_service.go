package services

import (
	"context"
	"errors"

	"github.com/daonlab/talkreport/internal/models"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
)

type PromptUpdate struct {
	Name          *string
	Description   *string
	PromptContent *string
	IsDefault     *bool
}

type PromptService interface {
	Create(ctx context.Context, name, description, content string, isDefault bool) (*models.AIPromptForReport, error)
	List(ctx context.Context, page, size int, isDefault *bool) ([]models.AIPromptForReport, int64, error)
	Get(ctx context.Context, id uint) (*models.AIPromptForReport, error)
	GetDefault(ctx context.Context) (*models.AIPromptForReport, error)
	Update(ctx context.Context, id uint, upd PromptUpdate) (*models.AIPromptForReport, error)
	Delete(ctx context.Context, id uint) error
}

type promptService struct {
	prompts pgrepo.PromptRepository
}

func NewPromptService(prompts pgrepo.PromptRepository) PromptService {
	return &promptService{prompts: prompts}
}

func (s *promptService) Create(ctx context.Context, name, description, content string, isDefault bool) (*models.AIPromptForReport, error) {
	const op = "PromptService.Create"

	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is required", nil)
	}
	if content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "prompt content is required", nil)
	}

	row := &models.AIPromptForReport{
		Name:          name,
		Description:   description,
		PromptContent: content,
		IsDefault:     isDefault,
	}
	if err := s.prompts.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create prompt", err)
	}
	return row, nil
}

func (s *promptService) List(ctx context.Context, page, size int, isDefault *bool) ([]models.AIPromptForReport, int64, error) {
	const op = "PromptService.List"

	rows, total, err := s.prompts.List(ctx, page, size, isDefault)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list prompts", err)
	}
	return rows, total, nil
}

func (s *promptService) Get(ctx context.Context, id uint) (*models.AIPromptForReport, error) {
	const op = "PromptService.Get"

	row, err := s.prompts.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "prompt not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load prompt", err)
	}
	return row, nil
}

func (s *promptService) GetDefault(ctx context.Context) (*models.AIPromptForReport, error) {
	const op = "PromptService.GetDefault"

	row, err := s.prompts.GetDefault(ctx)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "no default prompt configured", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load default prompt", err)
	}
	return row, nil
}

func (s *promptService) Update(ctx context.Context, id uint, upd PromptUpdate) (*models.AIPromptForReport, error) {
	const op = "PromptService.Update"

	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "name cannot be empty", nil)
		}
		row.Name = *upd.Name
	}
	if upd.Description != nil {
		row.Description = *upd.Description
	}
	if upd.PromptContent != nil {
		if *upd.PromptContent == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "prompt content cannot be empty", nil)
		}
		row.PromptContent = *upd.PromptContent
	}
	if upd.IsDefault != nil {
		row.IsDefault = *upd.IsDefault
	}

	if err := s.prompts.Update(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update prompt", err)
	}
	return row, nil
}

func (s *promptService) Delete(ctx context.Context, id uint) error {
	const op = "PromptService.Delete"

	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if row.IsDefault {
		return utils.E(utils.CodeInvalidArgument, op, "the default prompt cannot be deleted", nil)
	}
	n, err := s.prompts.CountReportData(ctx, id)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to check prompt usage", err)
	}
	if n > 0 {
		return utils.E(utils.CodeInvalidArgument, op, "prompt is referenced by existing analysis results", nil)
	}

	if err := s.prompts.Delete(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete prompt", err)
	}
	return nil
}
