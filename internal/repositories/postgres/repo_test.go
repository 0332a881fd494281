package postgres

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/daonlab/talkreport/config"
	"github.com/daonlab/talkreport/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedReport(t *testing.T, db *gorm.DB, status string) *models.Report {
	t.Helper()
	r := &models.Report{Title: "리포트", Status: status}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return r
}

func seedAudioFile(t *testing.T, db *gorm.DB, reportID uint, sttStatus string) *models.AudioFile {
	t.Helper()
	f := &models.AudioFile{
		ReportID: reportID, Filename: "f.wav", StorageKey: "k", StorageURL: "u",
		UploadStatus: models.UploadStatusUploaded,
		UploadedAt:   time.Now().UTC(),
		STTStatus:    sttStatus,
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("seed audio file: %v", err)
	}
	return f
}
