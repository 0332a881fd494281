package models

import "time"

type AudioFile struct {
	ID       uint `gorm:"column:id;primaryKey" json:"id"`
	ReportID uint `gorm:"column:report_id;not null;index" json:"report_id"`

	Filename    string `gorm:"column:filename;type:varchar(255);not null" json:"filename"`
	DisplayName string `gorm:"column:display_name;type:varchar(255)" json:"display_name"`

	// StorageKey is the object name inside the bucket; StorageURL is the
	// durable direct URL returned at upload time.
	StorageKey string `gorm:"column:storage_key;type:varchar(500);not null" json:"storage_key"`
	StorageURL string `gorm:"column:storage_url;type:varchar(500);not null" json:"storage_url"`

	FileSize        int  `gorm:"column:file_size" json:"file_size"`
	DurationSeconds *int `gorm:"column:duration_seconds" json:"duration_seconds"`

	UploadStatus string    `gorm:"column:upload_status;type:varchar(50);default:uploaded" json:"upload_status"`
	UploadedAt   time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`

	STTStatus       string     `gorm:"column:stt_status;type:varchar(50);default:pending" json:"stt_status"`
	STTProcessedAt  *time.Time `gorm:"column:stt_processed_at" json:"stt_processed_at"`
	STTErrorMessage string     `gorm:"column:stt_error_message;type:text" json:"stt_error_message"`

	Transcript *Transcript `gorm:"foreignKey:AudioFileID;constraint:OnDelete:CASCADE" json:"transcript,omitempty"`
	STTConfig  *STTConfig  `gorm:"foreignKey:AudioFileID;constraint:OnDelete:CASCADE" json:"stt_config,omitempty"`
}

func (AudioFile) TableName() string { return "audio_files" }

// EffectiveName is the name shown to users: the display name when set,
// otherwise the original filename.
func (f *AudioFile) EffectiveName() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Filename
}
