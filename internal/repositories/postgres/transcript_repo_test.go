package postgres

import (
	"context"
	"testing"

	"github.com/daonlab/talkreport/internal/models"
)

func TestTranscriptUpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	report := seedReport(t, db, models.ReportStatusDraft)
	file := seedAudioFile(t, db, report.ID, models.STTStatusProcessing)

	first := &models.Transcript{AudioFileID: file.ID, Content: "첫 버전"}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second := &models.Transcript{AudioFileID: file.ID, Content: "두 번째 버전"}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	got, err := repo.GetByAudioFileID(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetByAudioFileID: %v", err)
	}
	if got.Content != "두 번째 버전" {
		t.Errorf("content = %q", got.Content)
	}

	var n int64
	if err := db.Model(&models.Transcript{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("transcripts = %d, want 1", n)
	}
}

func TestCountNonEmptyByReport(t *testing.T) {
	db := newTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	report := seedReport(t, db, models.ReportStatusDraft)
	other := seedReport(t, db, models.ReportStatusDraft)

	withText := seedAudioFile(t, db, report.ID, models.STTStatusCompleted)
	empty := seedAudioFile(t, db, report.ID, models.STTStatusCompleted)
	foreign := seedAudioFile(t, db, other.ID, models.STTStatusCompleted)

	for _, tr := range []*models.Transcript{
		{AudioFileID: withText.ID, Content: "내용"},
		{AudioFileID: empty.ID, Content: ""},
		{AudioFileID: foreign.ID, Content: "다른 리포트"},
	} {
		if err := db.Create(tr).Error; err != nil {
			t.Fatalf("seed transcript: %v", err)
		}
	}

	n, err := repo.CountNonEmptyByReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("CountNonEmptyByReport: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
