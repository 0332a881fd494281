package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReportData is an immutable analysis snapshot. Every analysis run appends a
// new row; the latest row per report is the one with the greatest
// GeneratedAt.
type ReportData struct {
	ID         uint `gorm:"column:id;primaryKey" json:"id"`
	ReportID   uint `gorm:"column:report_id;not null;index" json:"report_id"`
	AIPromptID uint `gorm:"column:ai_prompt_id;not null;index" json:"ai_prompt_id"`

	AnalysisData datatypes.JSON `gorm:"column:analysis_data;type:jsonb;not null" json:"analysis_data"`

	GeneratedAt time.Time `gorm:"column:generated_at;index" json:"generated_at"`
}

func (ReportData) TableName() string { return "report_data" }
