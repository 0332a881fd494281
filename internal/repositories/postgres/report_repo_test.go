package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/utils"
)

func TestReportUpdateStatusFrom(t *testing.T) {
	db := newTestDB(t)
	repo := NewReportRepo(db)
	ctx := context.Background()

	report := seedReport(t, db, models.ReportStatusDraft)

	ok, err := repo.UpdateStatusFrom(ctx, report.ID, models.ReportStatusAnalyzing,
		models.ReportStatusDraft, models.ReportStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatusFrom: %v", err)
	}
	if !ok {
		t.Fatal("draft -> analyzing rejected")
	}

	// A second attempt races against the running analysis and loses.
	ok, err = repo.UpdateStatusFrom(ctx, report.ID, models.ReportStatusAnalyzing,
		models.ReportStatusDraft, models.ReportStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatusFrom: %v", err)
	}
	if ok {
		t.Fatal("analyzing -> analyzing accepted")
	}
}

func TestReportListWithStatusFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewReportRepo(db)
	ctx := context.Background()

	seedReport(t, db, models.ReportStatusDraft)
	seedReport(t, db, models.ReportStatusCompleted)
	seedReport(t, db, models.ReportStatusCompleted)

	rows, total, err := repo.List(ctx, 1, 10, models.ReportStatusCompleted)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Errorf("total=%d len=%d, want 2/2", total, len(rows))
	}

	_, total, err = repo.List(ctx, 1, 10, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestReportDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewReportRepo(db)
	ctx := context.Background()

	report := seedReport(t, db, models.ReportStatusCompleted)
	file := seedAudioFile(t, db, report.ID, models.STTStatusCompleted)

	tr := &models.Transcript{AudioFileID: file.ID, Content: "내용"}
	if err := db.Create(tr).Error; err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	cfg := models.DefaultSTTConfig(file.ID)
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("seed config: %v", err)
	}
	prompt := &models.AIPromptForReport{Name: "p", PromptContent: "c"}
	if err := db.Create(prompt).Error; err != nil {
		t.Fatalf("seed prompt: %v", err)
	}
	rd := &models.ReportData{
		ReportID: report.ID, AIPromptID: prompt.ID,
		AnalysisData: []byte(`{}`), GeneratedAt: time.Now().UTC(),
	}
	if err := db.Create(rd).Error; err != nil {
		t.Fatalf("seed report data: %v", err)
	}

	if err := repo.Delete(ctx, report.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for name, model := range map[string]any{
		"report":      &models.Report{},
		"audio file":  &models.AudioFile{},
		"transcript":  &models.Transcript{},
		"stt config":  &models.STTConfig{},
		"report data": &models.ReportData{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if n != 0 {
			t.Errorf("%s rows remaining: %d", name, n)
		}
	}

	// The prompt itself survives report deletion.
	var prompts int64
	if err := db.Model(&models.AIPromptForReport{}).Count(&prompts).Error; err != nil {
		t.Fatalf("count prompts: %v", err)
	}
	if prompts != 1 {
		t.Errorf("prompts = %d, want 1", prompts)
	}
}

// Timestamp columns must scan back into time.Time on the sqlite test
// databases, not just under the postgres driver.
func TestReportTimestampsScanBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewReportRepo(db)
	ctx := context.Background()

	seeded := seedReport(t, db, models.ReportStatusDraft)
	file := seedAudioFile(t, db, seeded.ID, models.STTStatusPending)

	row, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
		t.Errorf("timestamps zero after read back: created=%v updated=%v",
			row.CreatedAt, row.UpdatedAt)
	}

	var got models.AudioFile
	if err := db.First(&got, file.ID).Error; err != nil {
		t.Fatalf("read audio file: %v", err)
	}
	if got.UploadedAt.IsZero() {
		t.Error("uploaded_at zero after read back")
	}
}

func TestReportGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewReportRepo(db)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
