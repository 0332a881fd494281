package models

import (
	"time"

	"github.com/lib/pq"
)

// STTConfig holds per-audio-file transcription options. Missing rows fall
// back to DefaultSTTConfig.
type STTConfig struct {
	ID          uint `gorm:"column:id;primaryKey" json:"id"`
	AudioFileID uint `gorm:"column:audio_file_id;not null;uniqueIndex" json:"audio_file_id"`

	ModelType          string         `gorm:"column:model_type;type:varchar(50);default:sommers" json:"model_type"` // sommers | whisper
	Language           string         `gorm:"column:language;type:varchar(10);default:ko" json:"language"`          // whisper only: ko, detect, multi, ...
	LanguageCandidates pq.StringArray `gorm:"column:language_candidates;type:text[]" json:"language_candidates"`

	SpeakerDiarization bool `gorm:"column:speaker_diarization;default:true" json:"speaker_diarization"`
	SpkCount           *int `gorm:"column:spk_count" json:"spk_count"` // nil = auto detect

	ProfanityFilter      bool `gorm:"column:profanity_filter;default:false" json:"profanity_filter"`
	UseDisfluencyFilter  bool `gorm:"column:use_disfluency_filter;default:true" json:"use_disfluency_filter"`
	UseParagraphSplitter bool `gorm:"column:use_paragraph_splitter;default:false" json:"use_paragraph_splitter"`
	ParagraphMaxLength   *int `gorm:"column:paragraph_max_length" json:"paragraph_max_length"`

	Domain   string         `gorm:"column:domain;type:varchar(20);default:GENERAL" json:"domain"` // GENERAL | CALL
	Keywords pq.StringArray `gorm:"column:keywords;type:text[]" json:"keywords"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (STTConfig) TableName() string { return "stt_configs" }

// DefaultSTTConfig returns the options applied when a file has no stored
// config row.
func DefaultSTTConfig(audioFileID uint) *STTConfig {
	return &STTConfig{
		AudioFileID:          audioFileID,
		ModelType:            "sommers",
		Language:             "ko",
		SpeakerDiarization:   true,
		ProfanityFilter:      false,
		UseDisfluencyFilter:  true,
		UseParagraphSplitter: false,
		Domain:               "GENERAL",
	}
}
