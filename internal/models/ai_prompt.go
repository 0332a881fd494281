package models

import "time"

// AIPromptForReport is a reusable analysis prompt template. At most one row
// has IsDefault set; the prompt repository enforces the invariant.
type AIPromptForReport struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"id"`
	Name          string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description   string `gorm:"column:description;type:text" json:"description"`
	PromptContent string `gorm:"column:prompt_content;type:text;not null" json:"prompt_content"`
	IsDefault     bool   `gorm:"column:is_default;default:false;index" json:"is_default"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (AIPromptForReport) TableName() string { return "ai_prompts_for_report" }
