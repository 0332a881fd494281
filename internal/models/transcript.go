package models

import (
	"time"

	"gorm.io/datatypes"
)

type Transcript struct {
	ID          uint `gorm:"column:id;primaryKey" json:"id"`
	AudioFileID uint `gorm:"column:audio_file_id;not null;uniqueIndex" json:"audio_file_id"`

	Content         string `gorm:"column:content;type:text;not null" json:"content"`
	ConfidenceScore *int   `gorm:"column:confidence_score" json:"confidence_score"` // 0-100
	IsEdited        bool   `gorm:"column:is_edited;default:false" json:"is_edited"`

	// SpeakerLabels holds the ordered per-utterance segments; SpeakerNames
	// maps a speaker label to its display name, e.g. {"speaker0": "화자1"}.
	SpeakerLabels datatypes.JSON `gorm:"column:speaker_labels;type:jsonb" json:"speaker_labels"`
	SpeakerNames  datatypes.JSON `gorm:"column:speaker_names;type:jsonb" json:"speaker_names"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Transcript) TableName() string { return "transcripts" }

// SpeakerLabel is one speaker-attributed segment of a transcript.
type SpeakerLabel struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	StartAt int    `json:"start_at"`
	EndAt   int    `json:"end_at"`
}
