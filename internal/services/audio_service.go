package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/daonlab/talkreport/internal/media"
	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/providers/stt"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/storage"
	"github.com/daonlab/talkreport/internal/utils"
	"github.com/daonlab/talkreport/internal/workers"
)

var allowedAudioExts = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".ogg": true, ".flac": true,
}

const (
	maxUploadBytes   = 200 << 20
	downloadURLTTL   = 10 * time.Minute
	transcribeGetTTL = 30 * time.Minute
)

type AudioService interface {
	Upload(ctx context.Context, reportID uint, filename, displayName, contentType string, data []byte) (*models.AudioFile, error)
	ListByReport(ctx context.Context, reportID uint) ([]models.AudioFile, error)
	Get(ctx context.Context, id uint) (*models.AudioFile, error)
	Rename(ctx context.Context, id uint, displayName string) (*models.AudioFile, error)
	Delete(ctx context.Context, id uint) error
	DownloadURL(ctx context.Context, id uint) (string, error)
	// Transcribe starts transcription for a pending or failed file and
	// returns the resulting status. Files already processing or completed
	// are returned untouched with started=false.
	Transcribe(ctx context.Context, id uint) (status string, started bool, err error)
	// Restart force-restarts transcription from any state, discarding the
	// previous transcript.
	Restart(ctx context.Context, id uint) error
}

type audioService struct {
	reports     pgrepo.ReportRepository
	files       pgrepo.AudioFileRepository
	transcripts pgrepo.TranscriptRepository
	configs     pgrepo.STTConfigRepository

	store  storage.Client
	stt    stt.Provider
	prober media.Prober
	runner *workers.Runner
	events workers.Publisher
	log    *logrus.Logger
}

func NewAudioService(
	reports pgrepo.ReportRepository,
	files pgrepo.AudioFileRepository,
	transcripts pgrepo.TranscriptRepository,
	configs pgrepo.STTConfigRepository,
	store storage.Client,
	sttProvider stt.Provider,
	prober media.Prober,
	runner *workers.Runner,
	events workers.Publisher,
	log *logrus.Logger,
) AudioService {
	return &audioService{
		reports:     reports,
		files:       files,
		transcripts: transcripts,
		configs:     configs,
		store:       store,
		stt:         sttProvider,
		prober:      prober,
		runner:      runner,
		events:      events,
		log:         log,
	}
}

func (s *audioService) Upload(ctx context.Context, reportID uint, filename, displayName, contentType string, data []byte) (*models.AudioFile, error) {
	const op = "AudioService.Upload"

	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAudioExts[ext] {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unsupported audio format", nil)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty file", nil)
	}
	if len(data) > maxUploadBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file exceeds the 200MB limit", nil)
	}

	objectName := fmt.Sprintf("audio/%d/%s%s", reportID, uuid.NewString(), ext)
	directURL, err := s.store.Upload(ctx, objectName, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store audio file", err)
	}

	row := &models.AudioFile{
		ReportID:        reportID,
		Filename:        filename,
		DisplayName:     displayName,
		StorageKey:      objectName,
		StorageURL:      directURL,
		FileSize:        len(data),
		DurationSeconds: s.prober.Duration(ctx, data),
		UploadStatus:    models.UploadStatusUploaded,
		UploadedAt:      time.Now().UTC(),
		STTStatus:       models.STTStatusPending,
	}
	if err := s.files.Insert(ctx, row); err != nil {
		// The uploaded object is left in place; nothing undoes completed
		// pipeline steps.
		return nil, utils.E(utils.CodeInternal, op, "failed to record audio file", err)
	}
	return row, nil
}

func (s *audioService) ListByReport(ctx context.Context, reportID uint) ([]models.AudioFile, error) {
	const op = "AudioService.ListByReport"

	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}
	rows, err := s.files.ListByReport(ctx, reportID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list audio files", err)
	}
	return rows, nil
}

func (s *audioService) Get(ctx context.Context, id uint) (*models.AudioFile, error) {
	const op = "AudioService.Get"

	row, err := s.files.GetWithRelations(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load audio file", err)
	}
	return row, nil
}

func (s *audioService) Rename(ctx context.Context, id uint, displayName string) (*models.AudioFile, error) {
	const op = "AudioService.Rename"

	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateDisplayName(ctx, id, displayName); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to rename audio file", err)
	}
	row.DisplayName = displayName
	return row, nil
}

func (s *audioService) Delete(ctx context.Context, id uint) error {
	const op = "AudioService.Delete"

	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, row.StorageKey); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to delete stored audio", err)
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete audio file", err)
	}
	return nil
}

func (s *audioService) DownloadURL(ctx context.Context, id uint) (string, error) {
	const op = "AudioService.DownloadURL"

	row, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.store.SignedGetURL(ctx, row.StorageKey, downloadURLTTL)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to sign download url", err)
	}
	return url, nil
}

func (s *audioService) Transcribe(ctx context.Context, id uint) (string, bool, error) {
	const op = "AudioService.Transcribe"

	row, err := s.Get(ctx, id)
	if err != nil {
		return "", false, err
	}

	ok, err := s.files.BeginSTT(ctx, id)
	if err != nil {
		return "", false, utils.E(utils.CodeInternal, op, "failed to start transcription", err)
	}
	if !ok {
		// Already processing or completed; report whichever it is now.
		cur, err := s.files.GetByID(ctx, id)
		if err != nil {
			return "", false, utils.E(utils.CodeInternal, op, "failed to load audio file", err)
		}
		return cur.STTStatus, false, nil
	}

	s.events.Publish(ctx, workers.StatusEvent{
		Type:        "stt",
		ReportID:    row.ReportID,
		AudioFileID: id,
		Status:      models.STTStatusProcessing,
	})
	s.runner.Go("stt", func(ctx context.Context) { s.runSTT(ctx, id) })
	return models.STTStatusProcessing, true, nil
}

func (s *audioService) Restart(ctx context.Context, id uint) error {
	const op = "AudioService.Restart"

	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.files.RestartSTT(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to restart transcription", err)
	}

	s.events.Publish(ctx, workers.StatusEvent{
		Type:        "stt",
		ReportID:    row.ReportID,
		AudioFileID: id,
		Status:      models.STTStatusProcessing,
		Message:     "restarted",
	})
	s.runner.Go("stt", func(ctx context.Context) { s.runSTT(ctx, id) })
	return nil
}

// runSTT is the background half of the transcription pipeline: sign a read
// URL, hand the job to the vendor, normalize utterances and persist the
// transcript. Failures land in stt_error_message and the file can be
// retried or restarted.
func (s *audioService) runSTT(ctx context.Context, fileID uint) {
	log := s.log.WithField("audio_file_id", fileID)

	row, err := s.files.GetWithRelations(ctx, fileID)
	if err != nil {
		log.WithError(err).Error("stt: load audio file failed")
		return
	}

	fail := func(err error) {
		log.WithError(err).Error("stt: transcription failed")
		if markErr := s.files.MarkSTTFailed(ctx, fileID, err.Error()); markErr != nil {
			log.WithError(markErr).Error("stt: mark failed")
		}
		s.events.Publish(ctx, workers.StatusEvent{
			Type:        "stt",
			ReportID:    row.ReportID,
			AudioFileID: fileID,
			Status:      models.STTStatusFailed,
			Message:     err.Error(),
		})
	}

	cfg := row.STTConfig
	if cfg == nil {
		cfg = models.DefaultSTTConfig(fileID)
	}

	audioURL, err := s.store.SignedGetURL(ctx, row.StorageKey, transcribeGetTTL)
	if err != nil {
		fail(fmt.Errorf("sign audio url: %w", err))
		return
	}

	res, err := s.stt.Transcribe(ctx, audioURL, strings.ToLower(filepath.Ext(row.Filename)), BuildVendorConfig(cfg))
	if err != nil {
		fail(err)
		return
	}

	norm := stt.Normalize(res.Utterances)
	transcript := &models.Transcript{
		AudioFileID: fileID,
		Content:     norm.Transcript,
		IsEdited:    false,
	}
	if norm.SpeakerLabels != nil {
		labels, err := json.Marshal(norm.SpeakerLabels)
		if err != nil {
			fail(fmt.Errorf("encode speaker labels: %w", err))
			return
		}
		transcript.SpeakerLabels = labels
	}
	if norm.SpeakerNames != nil {
		names, err := json.Marshal(norm.SpeakerNames)
		if err != nil {
			fail(fmt.Errorf("encode speaker names: %w", err))
			return
		}
		transcript.SpeakerNames = names
	}

	if err := s.transcripts.Upsert(ctx, transcript); err != nil {
		fail(fmt.Errorf("save transcript: %w", err))
		return
	}
	if err := s.files.MarkSTTCompleted(ctx, fileID, time.Now().UTC()); err != nil {
		log.WithError(err).Error("stt: mark completed failed")
		return
	}

	log.WithField("utterances", len(res.Utterances)).Info("stt: transcription completed")
	s.events.Publish(ctx, workers.StatusEvent{
		Type:        "stt",
		ReportID:    row.ReportID,
		AudioFileID: fileID,
		Status:      models.STTStatusCompleted,
	})
}
