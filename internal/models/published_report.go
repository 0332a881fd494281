package models

import "time"

type PublishedReport struct {
	ID       uint `gorm:"column:id;primaryKey" json:"id"`
	ReportID uint `gorm:"column:report_id;not null;index" json:"report_id"`

	DesignID string `gorm:"column:design_id;type:varchar(255)" json:"design_id"`
	PDFURL   string `gorm:"column:pdf_url;type:varchar(500)" json:"pdf_url"`

	PublishedAt time.Time `gorm:"column:published_at" json:"published_at"`
}

func (PublishedReport) TableName() string { return "published_reports" }
