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
	"github.com/daonlab/talkreport/internal/workers"
)

type analysisFixture struct {
	svc    AnalysisService
	db     *gorm.DB
	llm    *fakeLLM
	runner *workers.Runner
	data   pgrepo.ReportDataRepository
}

func newAnalysisFixture(t *testing.T) *analysisFixture {
	t.Helper()
	db := newTestDB(t)
	llm := &fakeLLM{content: `{"summary": "요약"}`}
	runner := syncRunner(t)

	svc := NewAnalysisService(
		pgrepo.NewReportRepo(db),
		pgrepo.NewAudioFileRepo(db),
		pgrepo.NewTranscriptRepo(db),
		pgrepo.NewPromptRepo(db),
		pgrepo.NewReportDataRepo(db),
		llm, runner, workers.NewNopPublisher(), testLogger(),
	)
	return &analysisFixture{svc: svc, db: db, llm: llm, runner: runner, data: pgrepo.NewReportDataRepo(db)}
}

func (f *analysisFixture) seedPrompt(t *testing.T) *models.AIPromptForReport {
	t.Helper()
	p := &models.AIPromptForReport{
		Name:          "기본",
		PromptContent: "분석: {{audio_text}} ({{audio_duration}}초)",
		IsDefault:     true,
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("seed prompt: %v", err)
	}
	return p
}

// seedReadyReport creates a report with three files: two transcribed (one
// with an unknown duration) and one still pending.
func (f *analysisFixture) seedReadyReport(t *testing.T) *models.Report {
	t.Helper()

	report := &models.Report{Title: "리포트", Status: models.ReportStatusDraft}
	if err := f.db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}

	d1, d3 := 90, 30
	base := time.Now().UTC()
	files := []struct {
		duration   *int
		transcript string
		offset     time.Duration
	}{
		{&d1, "첫 번째 대화", 0},
		{nil, "두 번째 대화", time.Second},
		{&d3, "", 2 * time.Second}, // no transcript yet
	}
	for i, seed := range files {
		file := &models.AudioFile{
			ReportID: report.ID, Filename: "f.wav", StorageKey: "k", StorageURL: "u",
			DurationSeconds: seed.duration,
			UploadStatus:    models.UploadStatusUploaded,
			UploadedAt:      base.Add(seed.offset),
			STTStatus:       models.STTStatusPending,
		}
		if err := f.db.Create(file).Error; err != nil {
			t.Fatalf("seed file %d: %v", i, err)
		}
		if seed.transcript != "" {
			file.STTStatus = models.STTStatusCompleted
			if err := f.db.Save(file).Error; err != nil {
				t.Fatalf("update file %d: %v", i, err)
			}
			tr := &models.Transcript{AudioFileID: file.ID, Content: seed.transcript}
			if err := f.db.Create(tr).Error; err != nil {
				t.Fatalf("seed transcript %d: %v", i, err)
			}
		}
	}
	return report
}

func TestGatherConversation(t *testing.T) {
	f := newAnalysisFixture(t)
	report := f.seedReadyReport(t)

	svc := f.svc.(*analysisService)
	conv, err := svc.gatherConversation(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("gatherConversation: %v", err)
	}

	if conv.text != "첫 번째 대화\n\n두 번째 대화" {
		t.Errorf("text = %q", conv.text)
	}
	// Unknown durations count as zero; delivered-but-empty files are skipped.
	if conv.totalDuration != 90 {
		t.Errorf("duration = %d, want 90", conv.totalDuration)
	}
	if conv.totalFiles != 2 {
		t.Errorf("files = %d, want 2", conv.totalFiles)
	}
}

func TestGatherConversationAllTranscribed(t *testing.T) {
	f := newAnalysisFixture(t)
	report := f.seedReadyReport(t)

	// Transcribe the remaining file so durations {90, nil, 30} all count.
	var pending models.AudioFile
	err := f.db.Where("report_id = ? AND stt_status = ?", report.ID, models.STTStatusPending).
		First(&pending).Error
	if err != nil {
		t.Fatalf("find pending file: %v", err)
	}
	pending.STTStatus = models.STTStatusCompleted
	if err := f.db.Save(&pending).Error; err != nil {
		t.Fatalf("update file: %v", err)
	}
	tr := &models.Transcript{AudioFileID: pending.ID, Content: "세 번째 대화"}
	if err := f.db.Create(tr).Error; err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	svc := f.svc.(*analysisService)
	conv, err := svc.gatherConversation(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("gatherConversation: %v", err)
	}

	if conv.text != "첫 번째 대화\n\n두 번째 대화\n\n세 번째 대화" {
		t.Errorf("text = %q", conv.text)
	}
	if conv.totalDuration != 120 {
		t.Errorf("duration = %d, want 120", conv.totalDuration)
	}
	if conv.totalFiles != 3 {
		t.Errorf("files = %d, want 3", conv.totalFiles)
	}
}

func TestAnalyzeRequiresAudioFiles(t *testing.T) {
	f := newAnalysisFixture(t)
	f.seedPrompt(t)

	report := &models.Report{Title: "빈 리포트", Status: models.ReportStatusDraft}
	if err := f.db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}

	err := f.svc.Analyze(context.Background(), report.ID, nil, "")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("err = %v, want invalid argument", err)
	}
}

func TestAnalyzeRequiresTranscripts(t *testing.T) {
	f := newAnalysisFixture(t)
	f.seedPrompt(t)
	ctx := context.Background()

	report := &models.Report{Title: "리포트", Status: models.ReportStatusDraft}
	if err := f.db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	file := &models.AudioFile{
		ReportID: report.ID, Filename: "f.wav", StorageKey: "k", StorageURL: "u",
		UploadStatus: models.UploadStatusUploaded, UploadedAt: time.Now().UTC(),
		STTStatus: models.STTStatusPending,
	}
	if err := f.db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	err := f.svc.Analyze(ctx, report.ID, nil, "")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("err = %v, want invalid argument", err)
	}
}

func TestAnalyzeConflictWhileAnalyzing(t *testing.T) {
	f := newAnalysisFixture(t)
	f.seedPrompt(t)
	report := f.seedReadyReport(t)
	ctx := context.Background()

	if err := f.db.Model(&models.Report{}).Where("id = ?", report.ID).
		Update("status", models.ReportStatusAnalyzing).Error; err != nil {
		t.Fatalf("force analyzing: %v", err)
	}

	err := f.svc.Analyze(ctx, report.ID, nil, "")
	if !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestAnalyzeHappyPath(t *testing.T) {
	f := newAnalysisFixture(t)
	prompt := f.seedPrompt(t)
	report := f.seedReadyReport(t)
	ctx := context.Background()

	if err := f.svc.Analyze(ctx, report.ID, nil, "gemini-1.5-pro"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	f.runner.Wait()

	var reloaded models.Report
	if err := f.db.Take(&reloaded, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if reloaded.Status != models.ReportStatusCompleted {
		t.Fatalf("status = %q, want completed", reloaded.Status)
	}

	latest, err := f.svc.Latest(ctx, report.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.AIPromptID != prompt.ID {
		t.Errorf("prompt id = %d, want %d", latest.AIPromptID, prompt.ID)
	}

	var analysis map[string]any
	if err := json.Unmarshal(latest.AnalysisData, &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	parsed := analysis["parsed_data"].(map[string]any)
	if parsed["summary"] != "요약" {
		t.Errorf("summary = %v", parsed["summary"])
	}
	meta := analysis["_metadata"].(map[string]any)
	if meta["model_used"] != "gemini-1.5-pro" {
		t.Errorf("model = %v", meta["model_used"])
	}
	if meta["total_duration"].(float64) != 90 || meta["total_files"].(float64) != 2 {
		t.Errorf("meta = %v", meta)
	}

	status, err := f.svc.Status(ctx, report.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.HasAnalysis || status.AnalysisCount != 1 || status.LastGenerated == nil {
		t.Errorf("status = %+v", status)
	}
}

func TestAnalyzeFailureRevertsToDraft(t *testing.T) {
	f := newAnalysisFixture(t)
	f.seedPrompt(t)
	report := f.seedReadyReport(t)
	f.llm.err = context.DeadlineExceeded
	ctx := context.Background()

	if err := f.svc.Analyze(ctx, report.ID, nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	f.runner.Wait()

	var reloaded models.Report
	if err := f.db.Take(&reloaded, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if reloaded.Status != models.ReportStatusDraft {
		t.Errorf("status = %q, want draft", reloaded.Status)
	}
}

func TestAnalyzeWithoutAnyPromptFails(t *testing.T) {
	f := newAnalysisFixture(t)
	report := f.seedReadyReport(t)
	ctx := context.Background()

	if err := f.svc.Analyze(ctx, report.ID, nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	f.runner.Wait()

	var reloaded models.Report
	if err := f.db.Take(&reloaded, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if reloaded.Status != models.ReportStatusDraft {
		t.Errorf("status = %q, want draft", reloaded.Status)
	}
}

func TestPreview(t *testing.T) {
	f := newAnalysisFixture(t)
	f.seedPrompt(t)
	report := f.seedReadyReport(t)

	preview, err := f.svc.Preview(context.Background(), report.ID, nil)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.Prompt == "" || preview.TotalDuration != 90 || preview.TotalFiles != 2 {
		t.Errorf("preview = %+v", preview)
	}

	// Preview never touches the report status.
	var reloaded models.Report
	if err := f.db.Take(&reloaded, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if reloaded.Status != models.ReportStatusDraft {
		t.Errorf("status = %q", reloaded.Status)
	}
}
