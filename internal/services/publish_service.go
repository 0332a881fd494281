package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/providers/design"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
	"github.com/daonlab/talkreport/internal/workers"
)

// sectionTitles maps known analysis field names to their Korean section
// headings. Unknown fields fall back to a title-cased form of the key.
var sectionTitles = map[string]string{
	"communication_pattern": "의사소통 패턴",
	"emotional_expression":  "감정 표현",
	"interaction_quality":   "상호작용 품질",
	"development_insights":  "발달 인사이트",
	"recommendations":       "권장사항",
	"summary":               "요약",
}

// internal bookkeeping keys of the analysis snapshot, never rendered.
var skippedAnalysisKeys = map[string]bool{
	"raw_analysis":  true,
	"parse_error":   true,
	"original_json": true,
	"parsed_data":   true,
	"_metadata":     true,
}

type PublishService interface {
	// Publish builds the designed document from the latest analysis and
	// dispatches design creation plus PDF export in the background.
	Publish(ctx context.Context, reportID uint) error
	ListPublished(ctx context.Context, reportID uint) ([]models.PublishedReport, error)
}

type publishService struct {
	reports    pgrepo.ReportRepository
	reportData pgrepo.ReportDataRepository
	published  pgrepo.PublishedReportRepository

	design design.Provider
	runner *workers.Runner
	events workers.Publisher
	log    *logrus.Logger
}

func NewPublishService(
	reports pgrepo.ReportRepository,
	reportData pgrepo.ReportDataRepository,
	published pgrepo.PublishedReportRepository,
	designProvider design.Provider,
	runner *workers.Runner,
	events workers.Publisher,
	log *logrus.Logger,
) PublishService {
	return &publishService{
		reports:    reports,
		reportData: reportData,
		published:  published,
		design:     designProvider,
		runner:     runner,
		events:     events,
		log:        log,
	}
}

func (s *publishService) Publish(ctx context.Context, reportID uint) error {
	const op = "PublishService.Publish"

	report, err := s.reports.GetByID(ctx, reportID)
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeNotFound, op, "report not found", err)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load report", err)
	}

	latest, err := s.reportData.LatestByReport(ctx, reportID)
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeInvalidArgument, op, "report has no analysis results to publish", err)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load latest analysis", err)
	}

	doc, err := BuildDocument(report, latest.AnalysisData)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build document", err)
	}

	s.runner.Go("publish", func(ctx context.Context) { s.runPublish(ctx, reportID, doc) })
	return nil
}

func (s *publishService) ListPublished(ctx context.Context, reportID uint) ([]models.PublishedReport, error) {
	const op = "PublishService.ListPublished"

	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}
	rows, err := s.published.ListByReport(ctx, reportID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list published reports", err)
	}
	return rows, nil
}

func (s *publishService) runPublish(ctx context.Context, reportID uint, doc design.Document) {
	log := s.log.WithField("report_id", reportID)

	fail := func(err error) {
		log.WithError(err).Error("publish: run failed")
		s.events.Publish(ctx, workers.StatusEvent{
			Type:     "publish",
			ReportID: reportID,
			Status:   "failed",
			Message:  err.Error(),
		})
	}

	designID, err := s.design.CreateDesign(ctx, doc)
	if err != nil {
		fail(fmt.Errorf("create design: %w", err))
		return
	}
	pdfURL, err := s.design.ExportPDF(ctx, designID)
	if err != nil {
		fail(fmt.Errorf("export pdf: %w", err))
		return
	}

	pr := &models.PublishedReport{
		ReportID:    reportID,
		DesignID:    designID,
		PDFURL:      pdfURL,
		PublishedAt: time.Now().UTC(),
	}
	if err := s.published.InsertWithReportStatus(ctx, pr); err != nil {
		fail(fmt.Errorf("save published report: %w", err))
		return
	}

	log.WithField("design_id", designID).Info("publish: completed")
	s.events.Publish(ctx, workers.StatusEvent{
		Type:     "publish",
		ReportID: reportID,
		Status:   models.ReportStatusPublished,
	})
}

// BuildDocument turns the latest analysis snapshot into the designed
// document: heading from the report title, subheading from the family
// names and one section per rendered analysis field.
func BuildDocument(report *models.Report, analysisData []byte) (design.Document, error) {
	doc := design.Document{
		Title: report.Title,
		Subtitle: fmt.Sprintf("부모: %s | 아이: %s",
			nameOrUnset(report.ParentName), nameOrUnset(report.ChildName)),
	}

	var snapshot map[string]any
	if err := json.Unmarshal(analysisData, &snapshot); err != nil {
		return design.Document{}, err
	}

	fields := snapshot
	if parsed, ok := snapshot["parsed_data"].(map[string]any); ok {
		fields = parsed
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if skippedAnalysisKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		doc.Sections = append(doc.Sections, design.Section{
			Title:   SectionTitle(k),
			Content: formatSectionContent(fields[k]),
		})
	}
	return doc, nil
}

func nameOrUnset(name string) string {
	if name == "" {
		return "미지정"
	}
	return name
}

// SectionTitle resolves the display heading for an analysis field.
func SectionTitle(key string) string {
	if t, ok := sectionTitles[key]; ok {
		return t
	}
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func formatSectionContent(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, "• "+fmt.Sprint(item))
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("• %s: %v", k, val[k]))
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprint(v)
	}
}
