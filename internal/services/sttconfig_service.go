package services

import (
	"context"
	"errors"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/providers/stt"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
)

var sttModelTypes = map[string]bool{"sommers": true, "whisper": true}
var sttDomains = map[string]bool{"GENERAL": true, "CALL": true}

const defaultParagraphMax = 50

type STTConfigInput struct {
	ModelType            *string
	Language             *string
	LanguageCandidates   []string
	SpeakerDiarization   *bool
	SpkCount             *int
	ProfanityFilter      *bool
	UseDisfluencyFilter  *bool
	UseParagraphSplitter *bool
	ParagraphMaxLength   *int
	Domain               *string
	Keywords             []string
}

type STTConfigService interface {
	// Get returns the stored config for the file, or the defaults when no
	// row exists yet.
	Get(ctx context.Context, audioFileID uint) (*models.STTConfig, error)
	Save(ctx context.Context, audioFileID uint, in STTConfigInput) (*models.STTConfig, error)
}

type sttConfigService struct {
	files   pgrepo.AudioFileRepository
	configs pgrepo.STTConfigRepository
}

func NewSTTConfigService(files pgrepo.AudioFileRepository, configs pgrepo.STTConfigRepository) STTConfigService {
	return &sttConfigService{files: files, configs: configs}
}

func (s *sttConfigService) Get(ctx context.Context, audioFileID uint) (*models.STTConfig, error) {
	const op = "STTConfigService.Get"

	if _, err := s.files.GetByID(ctx, audioFileID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "audio file not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load audio file", err)
	}

	cfg, err := s.configs.GetByAudioFileID(ctx, audioFileID)
	if errors.Is(err, utils.ErrNotFound) {
		return models.DefaultSTTConfig(audioFileID), nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load stt config", err)
	}
	return cfg, nil
}

func (s *sttConfigService) Save(ctx context.Context, audioFileID uint, in STTConfigInput) (*models.STTConfig, error) {
	const op = "STTConfigService.Save"

	cfg, err := s.Get(ctx, audioFileID)
	if err != nil {
		return nil, err
	}

	if in.ModelType != nil {
		if !sttModelTypes[*in.ModelType] {
			return nil, utils.E(utils.CodeInvalidArgument, op, "unknown model type", nil)
		}
		cfg.ModelType = *in.ModelType
	}
	if in.Language != nil {
		cfg.Language = *in.Language
	}
	if in.LanguageCandidates != nil {
		cfg.LanguageCandidates = in.LanguageCandidates
	}
	if in.SpeakerDiarization != nil {
		cfg.SpeakerDiarization = *in.SpeakerDiarization
	}
	if in.SpkCount != nil {
		cfg.SpkCount = in.SpkCount
	}
	if in.ProfanityFilter != nil {
		cfg.ProfanityFilter = *in.ProfanityFilter
	}
	if in.UseDisfluencyFilter != nil {
		cfg.UseDisfluencyFilter = *in.UseDisfluencyFilter
	}
	if in.UseParagraphSplitter != nil {
		cfg.UseParagraphSplitter = *in.UseParagraphSplitter
	}
	if in.ParagraphMaxLength != nil {
		if *in.ParagraphMaxLength <= 0 {
			return nil, utils.E(utils.CodeInvalidArgument, op, "paragraph max length must be positive", nil)
		}
		cfg.ParagraphMaxLength = in.ParagraphMaxLength
	}
	if in.Domain != nil {
		if !sttDomains[*in.Domain] {
			return nil, utils.E(utils.CodeInvalidArgument, op, "unknown domain", nil)
		}
		cfg.Domain = *in.Domain
	}
	if in.Keywords != nil {
		cfg.Keywords = in.Keywords
	}

	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save stt config", err)
	}
	return cfg, nil
}

// BuildVendorConfig maps a stored config onto the vendor job request.
// Language fields only apply to the whisper model; sommers ignores them and
// sending one makes the vendor reject the job.
func BuildVendorConfig(cfg *models.STTConfig) stt.VendorConfig {
	out := stt.VendorConfig{
		ModelName:            cfg.ModelType,
		UseITN:               true,
		UseDisfluencyFilter:  cfg.UseDisfluencyFilter,
		UseProfanityFilter:   cfg.ProfanityFilter,
		UseParagraphSplitter: cfg.UseParagraphSplitter,
		Domain:               cfg.Domain,
		Keywords:             cfg.Keywords,
		UseDiarization:       cfg.SpeakerDiarization,
	}

	if cfg.ModelType == "whisper" {
		out.Language = cfg.Language
		if cfg.Language == "detect" || cfg.Language == "multi" {
			out.LanguageCandidates = cfg.LanguageCandidates
		}
	}

	if cfg.UseParagraphSplitter {
		max := defaultParagraphMax
		if cfg.ParagraphMaxLength != nil {
			max = *cfg.ParagraphMaxLength
		}
		out.ParagraphSplitter = &stt.ParagraphSplitter{Max: max}
	}

	if cfg.SpeakerDiarization {
		out.Diarization = &stt.Diarization{SpkCount: cfg.SpkCount}
	}

	return out
}
