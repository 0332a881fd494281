package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
)

func seedTranscribedFile(t *testing.T, db *gorm.DB) *models.AudioFile {
	t.Helper()

	report := &models.Report{Title: "리포트", Status: models.ReportStatusDraft}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	file := &models.AudioFile{
		ReportID:     report.ID,
		Filename:     "a.wav",
		StorageKey:   "audio/1/a.wav",
		StorageURL:   "https://storage.example.com/audio/1/a.wav",
		UploadStatus: models.UploadStatusUploaded,
		UploadedAt:   time.Now().UTC(),
		STTStatus:    models.STTStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	labels, _ := json.Marshal([]models.SpeakerLabel{
		{Speaker: "speaker0", Text: "안녕", StartAt: 0, EndAt: 100},
		{Speaker: "speaker1", Text: "반가워", StartAt: 100, EndAt: 200},
	})
	names, _ := json.Marshal(map[string]string{"speaker0": "화자1", "speaker1": "화자2"})
	transcript := &models.Transcript{
		AudioFileID:   file.ID,
		Content:       "speaker0: 안녕\nspeaker1: 반가워",
		SpeakerLabels: labels,
		SpeakerNames:  names,
	}
	if err := db.Create(transcript).Error; err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	return file
}

func newTranscriptServiceForTest(t *testing.T) (TranscriptService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewTranscriptService(pgrepo.NewAudioFileRepo(db), pgrepo.NewTranscriptRepo(db)), db
}

func TestTranscriptUpdateMarksEdited(t *testing.T) {
	svc, db := newTranscriptServiceForTest(t)
	file := seedTranscribedFile(t, db)
	ctx := context.Background()

	got, err := svc.UpdateContent(ctx, file.ID, "수정된 내용")
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if !got.IsEdited || got.Content != "수정된 내용" {
		t.Errorf("got %+v", got)
	}
}

func TestRenameSpeakersMergesAndRewrites(t *testing.T) {
	svc, db := newTranscriptServiceForTest(t)
	file := seedTranscribedFile(t, db)
	ctx := context.Background()

	got, err := svc.RenameSpeakers(ctx, file.ID, map[string]string{"speaker0": "엄마"})
	if err != nil {
		t.Fatalf("RenameSpeakers: %v", err)
	}
	if got.Content != "엄마: 안녕\n화자2: 반가워" {
		t.Errorf("content = %q", got.Content)
	}

	var names map[string]string
	if err := json.Unmarshal(got.SpeakerNames, &names); err != nil {
		t.Fatalf("decode names: %v", err)
	}
	// Unmentioned speakers keep their existing names.
	if names["speaker0"] != "엄마" || names["speaker1"] != "화자2" {
		t.Errorf("names = %v", names)
	}

	// Renaming again with the same mapping changes nothing.
	again, err := svc.RenameSpeakers(ctx, file.ID, map[string]string{"speaker0": "엄마"})
	if err != nil {
		t.Fatalf("RenameSpeakers again: %v", err)
	}
	if again.Content != got.Content {
		t.Errorf("rename not idempotent: %q vs %q", again.Content, got.Content)
	}
}

func TestPreviewSpeakersDoesNotPersist(t *testing.T) {
	svc, db := newTranscriptServiceForTest(t)
	file := seedTranscribedFile(t, db)
	ctx := context.Background()

	preview, err := svc.PreviewSpeakers(ctx, file.ID, map[string]string{"speaker1": "아이"})
	if err != nil {
		t.Fatalf("PreviewSpeakers: %v", err)
	}
	if preview != "화자1: 안녕\n아이: 반가워" {
		t.Errorf("preview = %q", preview)
	}

	stored, err := svc.Get(ctx, file.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Content != "speaker0: 안녕\nspeaker1: 반가워" {
		t.Errorf("stored content changed: %q", stored.Content)
	}
}

func TestRenameSpeakersWithoutLabels(t *testing.T) {
	svc, db := newTranscriptServiceForTest(t)
	ctx := context.Background()

	report := &models.Report{Title: "r", Status: models.ReportStatusDraft}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	file := &models.AudioFile{
		ReportID: report.ID, Filename: "b.wav", StorageKey: "k", StorageURL: "u",
		UploadStatus: models.UploadStatusUploaded, UploadedAt: time.Now().UTC(),
		STTStatus: models.STTStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := db.Create(&models.Transcript{AudioFileID: file.ID, Content: "라벨 없는 내용"}).Error; err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	_, err := svc.RenameSpeakers(ctx, file.ID, map[string]string{"speaker0": "엄마"})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("err = %v, want invalid argument", err)
	}
}
