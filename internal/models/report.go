package models

import "time"

type Report struct {
	ID         uint   `gorm:"column:id;primaryKey" json:"id"`
	Title      string `gorm:"column:title;type:varchar(255);not null" json:"title"`
	ParentName string `gorm:"column:parent_name;type:varchar(100)" json:"parent_name"`
	ChildName  string `gorm:"column:child_name;type:varchar(100)" json:"child_name"`
	Status     string `gorm:"column:status;type:varchar(50);default:draft;index" json:"status"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	AudioFiles       []AudioFile       `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"audio_files,omitempty"`
	ReportData       []ReportData      `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"report_data,omitempty"`
	PublishedReports []PublishedReport `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"published_reports,omitempty"`
}

func (Report) TableName() string { return "reports" }
