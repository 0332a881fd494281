package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/providers/stt"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
)

type TranscriptService interface {
	Get(ctx context.Context, audioFileID uint) (*models.Transcript, error)
	// UpdateContent replaces the transcript text with a manual edit.
	UpdateContent(ctx context.Context, audioFileID uint, content string) (*models.Transcript, error)
	// RenameSpeakers merges the given display names into the stored
	// mapping and regenerates the transcript text from the speaker labels.
	RenameSpeakers(ctx context.Context, audioFileID uint, names map[string]string) (*models.Transcript, error)
	// PreviewSpeakers renders the renamed transcript without persisting.
	PreviewSpeakers(ctx context.Context, audioFileID uint, names map[string]string) (string, error)
}

type transcriptService struct {
	files       pgrepo.AudioFileRepository
	transcripts pgrepo.TranscriptRepository
}

func NewTranscriptService(files pgrepo.AudioFileRepository, transcripts pgrepo.TranscriptRepository) TranscriptService {
	return &transcriptService{files: files, transcripts: transcripts}
}

func (s *transcriptService) Get(ctx context.Context, audioFileID uint) (*models.Transcript, error) {
	const op = "TranscriptService.Get"

	if _, err := s.files.GetByID(ctx, audioFileID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "audio file not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load audio file", err)
	}

	row, err := s.transcripts.GetByAudioFileID(ctx, audioFileID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "transcript not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load transcript", err)
	}
	return row, nil
}

func (s *transcriptService) UpdateContent(ctx context.Context, audioFileID uint, content string) (*models.Transcript, error) {
	const op = "TranscriptService.UpdateContent"

	if content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "content cannot be empty", nil)
	}

	row, err := s.Get(ctx, audioFileID)
	if err != nil {
		return nil, err
	}

	row.Content = content
	row.IsEdited = true
	if err := s.transcripts.Update(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update transcript", err)
	}
	return row, nil
}

func (s *transcriptService) RenameSpeakers(ctx context.Context, audioFileID uint, names map[string]string) (*models.Transcript, error) {
	const op = "TranscriptService.RenameSpeakers"

	row, labels, merged, err := s.mergeNames(ctx, op, audioFileID, names)
	if err != nil {
		return nil, err
	}

	row.Content = stt.RenderWithNames(labels, merged)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode speaker names", err)
	}
	row.SpeakerNames = encoded

	if err := s.transcripts.Update(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update transcript", err)
	}
	return row, nil
}

func (s *transcriptService) PreviewSpeakers(ctx context.Context, audioFileID uint, names map[string]string) (string, error) {
	const op = "TranscriptService.PreviewSpeakers"

	_, labels, merged, err := s.mergeNames(ctx, op, audioFileID, names)
	if err != nil {
		return "", err
	}
	return stt.RenderWithNames(labels, merged), nil
}

func (s *transcriptService) mergeNames(ctx context.Context, op string, audioFileID uint, names map[string]string) (*models.Transcript, []models.SpeakerLabel, map[string]string, error) {
	row, err := s.Get(ctx, audioFileID)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(row.SpeakerLabels) == 0 {
		return nil, nil, nil, utils.E(utils.CodeInvalidArgument, op, "transcript has no speaker segments", nil)
	}
	var labels []models.SpeakerLabel
	if err := json.Unmarshal(row.SpeakerLabels, &labels); err != nil {
		return nil, nil, nil, utils.E(utils.CodeInternal, op, "failed to decode speaker labels", err)
	}

	merged := map[string]string{}
	if len(row.SpeakerNames) > 0 {
		if err := json.Unmarshal(row.SpeakerNames, &merged); err != nil {
			return nil, nil, nil, utils.E(utils.CodeInternal, op, "failed to decode speaker names", err)
		}
	}
	for k, v := range names {
		merged[k] = v
	}

	return row, labels, merged, nil
}
