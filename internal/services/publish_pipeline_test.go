package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/daonlab/talkreport/internal/models"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
	"github.com/daonlab/talkreport/internal/workers"
)

type publishFixture struct {
	svc    PublishService
	db     *gorm.DB
	design *fakeDesign
	runner *workers.Runner
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()
	db := newTestDB(t)
	designFake := &fakeDesign{}
	runner := syncRunner(t)

	svc := NewPublishService(
		pgrepo.NewReportRepo(db),
		pgrepo.NewReportDataRepo(db),
		pgrepo.NewPublishedReportRepo(db),
		designFake, runner, workers.NewNopPublisher(), testLogger(),
	)
	return &publishFixture{svc: svc, db: db, design: designFake, runner: runner}
}

func (f *publishFixture) seedAnalyzedReport(t *testing.T) *models.Report {
	t.Helper()

	report := &models.Report{
		Title: "리포트", ParentName: "김지은", ChildName: "김하늘",
		Status: models.ReportStatusCompleted,
	}
	if err := f.db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	prompt := &models.AIPromptForReport{Name: "기본", PromptContent: "x"}
	if err := f.db.Create(prompt).Error; err != nil {
		t.Fatalf("seed prompt: %v", err)
	}
	rd := &models.ReportData{
		ReportID:     report.ID,
		AIPromptID:   prompt.ID,
		AnalysisData: []byte(`{"parsed_data": {"summary": "좋음"}}`),
		GeneratedAt:  time.Now().UTC(),
	}
	if err := f.db.Create(rd).Error; err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
	return report
}

func TestPublishRequiresAnalysis(t *testing.T) {
	f := newPublishFixture(t)

	report := &models.Report{Title: "리포트", Status: models.ReportStatusDraft}
	if err := f.db.Create(report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}

	err := f.svc.Publish(context.Background(), report.ID)
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("err = %v, want invalid argument", err)
	}
}

func TestPublishHappyPath(t *testing.T) {
	f := newPublishFixture(t)
	report := f.seedAnalyzedReport(t)
	ctx := context.Background()

	if err := f.svc.Publish(ctx, report.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.runner.Wait()

	rows, err := f.svc.ListPublished(ctx, report.ID)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("published = %d, want 1", len(rows))
	}
	if rows[0].DesignID != "design-1" || rows[0].PDFURL == "" {
		t.Errorf("published = %+v", rows[0])
	}

	var reloaded models.Report
	if err := f.db.Take(&reloaded, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if reloaded.Status != models.ReportStatusPublished {
		t.Errorf("status = %q, want published", reloaded.Status)
	}
}

func TestPublishFailureLeavesStatus(t *testing.T) {
	f := newPublishFixture(t)
	report := f.seedAnalyzedReport(t)
	f.design.err = context.DeadlineExceeded
	ctx := context.Background()

	if err := f.svc.Publish(ctx, report.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.runner.Wait()

	rows, err := f.svc.ListPublished(ctx, report.ID)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("published = %d, want 0", len(rows))
	}

	var reloaded models.Report
	if err := f.db.Take(&reloaded, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if reloaded.Status != models.ReportStatusCompleted {
		t.Errorf("status = %q, want completed", reloaded.Status)
	}
}

func TestRepublishAppendsVersion(t *testing.T) {
	f := newPublishFixture(t)
	report := f.seedAnalyzedReport(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.svc.Publish(ctx, report.ID); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
		f.runner.Wait()
	}

	rows, err := f.svc.ListPublished(ctx, report.ID)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("published = %d, want 2", len(rows))
	}
}
