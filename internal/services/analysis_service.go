package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/providers/llm"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/utils"
	"github.com/daonlab/talkreport/internal/workers"
)

const (
	audioTextToken     = "{{audio_text}}"
	audioDurationToken = "{{audio_duration}}"
	jsonInstruction    = "응답은 반드시 유효한 JSON 형식으로만 작성해주세요."
)

// supportedModels is the ordered list exposed to clients; the first entry
// is the default when a request names no model.
var supportedModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-2.0-flash",
}

// AnalysisStatus is the progress view for one report.
type AnalysisStatus struct {
	ReportID      uint       `json:"report_id"`
	Status        string     `json:"status"`
	HasAnalysis   bool       `json:"has_analysis"`
	AnalysisCount int64      `json:"analysis_count"`
	LastGenerated *time.Time `json:"last_generated,omitempty"`
}

// PromptPreview shows the fully interpolated prompt that an analysis run
// would send, without dispatching one.
type PromptPreview struct {
	PromptID      uint   `json:"prompt_id"`
	PromptName    string `json:"prompt_name"`
	Prompt        string `json:"prompt"`
	TotalDuration int    `json:"total_duration"`
	TotalFiles    int    `json:"total_files"`
}

type AnalysisService interface {
	// Analyze validates preconditions, flips the report to analyzing and
	// dispatches the run in the background.
	Analyze(ctx context.Context, reportID uint, promptID *uint, model string) error
	Preview(ctx context.Context, reportID uint, promptID *uint) (*PromptPreview, error)
	Status(ctx context.Context, reportID uint) (*AnalysisStatus, error)
	Latest(ctx context.Context, reportID uint) (*models.ReportData, error)
	SupportedModels() []string
}

type analysisService struct {
	reports     pgrepo.ReportRepository
	files       pgrepo.AudioFileRepository
	transcripts pgrepo.TranscriptRepository
	prompts     pgrepo.PromptRepository
	reportData  pgrepo.ReportDataRepository

	llm    llm.Provider
	runner *workers.Runner
	events workers.Publisher
	log    *logrus.Logger
}

func NewAnalysisService(
	reports pgrepo.ReportRepository,
	files pgrepo.AudioFileRepository,
	transcripts pgrepo.TranscriptRepository,
	prompts pgrepo.PromptRepository,
	reportData pgrepo.ReportDataRepository,
	llmProvider llm.Provider,
	runner *workers.Runner,
	events workers.Publisher,
	log *logrus.Logger,
) AnalysisService {
	return &analysisService{
		reports:     reports,
		files:       files,
		transcripts: transcripts,
		prompts:     prompts,
		reportData:  reportData,
		llm:         llmProvider,
		runner:      runner,
		events:      events,
		log:         log,
	}
}

func (s *analysisService) SupportedModels() []string {
	out := make([]string, len(supportedModels))
	copy(out, supportedModels)
	return out
}

func (s *analysisService) Analyze(ctx context.Context, reportID uint, promptID *uint, model string) error {
	const op = "AnalysisService.Analyze"

	report, err := s.reports.GetByID(ctx, reportID)
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeNotFound, op, "report not found", err)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load report", err)
	}

	n, err := s.files.CountByReport(ctx, reportID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to count audio files", err)
	}
	if n == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "report has no audio files", nil)
	}
	ready, err := s.transcripts.CountNonEmptyByReport(ctx, reportID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to count transcripts", err)
	}
	if ready == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "no transcripts are ready for analysis", nil)
	}

	ok, err := s.reports.UpdateStatusFrom(ctx, reportID, models.ReportStatusAnalyzing,
		models.ReportStatusDraft, models.ReportStatusCompleted)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update report status", err)
	}
	if !ok {
		if report.Status == models.ReportStatusAnalyzing {
			return utils.E(utils.CodeConflict, op, "analysis is already in progress", nil)
		}
		return utils.E(utils.CodeInvalidArgument, op, "report cannot be analyzed in its current status", nil)
	}

	s.events.Publish(ctx, workers.StatusEvent{
		Type:     "analysis",
		ReportID: reportID,
		Status:   models.ReportStatusAnalyzing,
	})
	s.runner.Go("analysis", func(ctx context.Context) { s.runAnalysis(ctx, reportID, promptID, model) })
	return nil
}

func (s *analysisService) Preview(ctx context.Context, reportID uint, promptID *uint) (*PromptPreview, error) {
	const op = "AnalysisService.Preview"

	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}

	conv, err := s.gatherConversation(ctx, reportID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to gather transcripts", err)
	}
	if conv.totalFiles == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no transcripts are ready for analysis", nil)
	}

	tpl, err := s.resolvePrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	return &PromptPreview{
		PromptID:      tpl.ID,
		PromptName:    tpl.Name,
		Prompt:        InterpolatePrompt(tpl.PromptContent, conv.text, conv.totalDuration),
		TotalDuration: conv.totalDuration,
		TotalFiles:    conv.totalFiles,
	}, nil
}

func (s *analysisService) Status(ctx context.Context, reportID uint) (*AnalysisStatus, error) {
	const op = "AnalysisService.Status"

	report, err := s.reports.GetByID(ctx, reportID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}

	count, err := s.reportData.CountByReport(ctx, reportID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count analyses", err)
	}

	out := &AnalysisStatus{
		ReportID:      reportID,
		Status:        report.Status,
		HasAnalysis:   count > 0,
		AnalysisCount: count,
	}
	if count > 0 {
		latest, err := s.reportData.LatestByReport(ctx, reportID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to load latest analysis", err)
		}
		out.LastGenerated = &latest.GeneratedAt
	}
	return out, nil
}

func (s *analysisService) Latest(ctx context.Context, reportID uint) (*models.ReportData, error) {
	const op = "AnalysisService.Latest"

	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}

	row, err := s.reportData.LatestByReport(ctx, reportID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "no analysis results yet", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load latest analysis", err)
	}
	return row, nil
}

// runAnalysis is the background half: gather transcripts, resolve the
// template, call the model and append the snapshot. Any failure reverts
// the report to draft so the run can be retried.
func (s *analysisService) runAnalysis(ctx context.Context, reportID uint, promptID *uint, model string) {
	log := s.log.WithField("report_id", reportID)

	fail := func(err error) {
		log.WithError(err).Error("analysis: run failed")
		if revertErr := s.reports.UpdateStatus(ctx, reportID, models.ReportStatusDraft); revertErr != nil {
			log.WithError(revertErr).Error("analysis: revert to draft failed")
		}
		s.events.Publish(ctx, workers.StatusEvent{
			Type:     "analysis",
			ReportID: reportID,
			Status:   models.ReportStatusDraft,
			Message:  err.Error(),
		})
	}

	conv, err := s.gatherConversation(ctx, reportID)
	if err != nil {
		fail(fmt.Errorf("gather transcripts: %w", err))
		return
	}
	if conv.totalFiles == 0 {
		fail(errors.New("no transcripts are ready for analysis"))
		return
	}

	tpl, err := s.resolvePrompt(ctx, promptID)
	if err != nil {
		fail(err)
		return
	}

	selected := supportedModels[0]
	for _, m := range supportedModels {
		if m == model {
			selected = m
			break
		}
	}

	prompt := InterpolatePrompt(tpl.PromptContent, conv.text, conv.totalDuration)
	content, servedModel, err := s.llm.Complete(ctx, selected, prompt)
	if err != nil {
		fail(fmt.Errorf("model completion: %w", err))
		return
	}

	analysis, err := BuildAnalysisResult(content, servedModel, tpl, conv.totalDuration, conv.totalFiles)
	if err != nil {
		fail(fmt.Errorf("encode analysis result: %w", err))
		return
	}

	rd := &models.ReportData{
		ReportID:     reportID,
		AIPromptID:   tpl.ID,
		AnalysisData: analysis,
		GeneratedAt:  time.Now().UTC(),
	}
	if err := s.reportData.InsertWithReportStatus(ctx, rd, models.ReportStatusCompleted); err != nil {
		fail(fmt.Errorf("save analysis: %w", err))
		return
	}

	log.WithField("model", servedModel).Info("analysis: run completed")
	s.events.Publish(ctx, workers.StatusEvent{
		Type:     "analysis",
		ReportID: reportID,
		Status:   models.ReportStatusCompleted,
	})
}

func (s *analysisService) resolvePrompt(ctx context.Context, promptID *uint) (*models.AIPromptForReport, error) {
	const op = "AnalysisService.resolvePrompt"

	if promptID != nil {
		tpl, err := s.prompts.GetByID(ctx, *promptID)
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "prompt not found", err)
		}
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to load prompt", err)
		}
		return tpl, nil
	}

	tpl, err := s.prompts.GetDefault(ctx)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no default prompt configured", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load default prompt", err)
	}
	return tpl, nil
}

type conversation struct {
	text          string
	totalDuration int
	totalFiles    int
}

// gatherConversation joins every non-empty transcript of the report in
// upload order and sums the known file durations.
func (s *analysisService) gatherConversation(ctx context.Context, reportID uint) (conversation, error) {
	files, err := s.files.ListByReportWithTranscripts(ctx, reportID)
	if err != nil {
		return conversation{}, err
	}

	var (
		parts    []string
		duration int
	)
	for _, f := range files {
		if f.Transcript == nil || f.Transcript.Content == "" {
			continue
		}
		parts = append(parts, f.Transcript.Content)
		if f.DurationSeconds != nil {
			duration += *f.DurationSeconds
		}
	}

	return conversation{
		text:          strings.Join(parts, "\n\n"),
		totalDuration: duration,
		totalFiles:    len(parts),
	}, nil
}

// InterpolatePrompt substitutes the transcript and duration tokens and,
// when the template never mentions JSON, appends an explicit instruction
// so the response stays machine-parseable.
func InterpolatePrompt(template, audioText string, audioDuration int) string {
	out := strings.ReplaceAll(template, audioTextToken, audioText)
	out = strings.ReplaceAll(out, audioDurationToken, strconv.Itoa(audioDuration))
	if !strings.Contains(strings.ToUpper(template), "JSON") {
		out += "\n\n" + jsonInstruction
	}
	return out
}

// BuildAnalysisResult wraps the raw model output. The original text is
// always preserved; when it parses as JSON the structured form rides along
// under parsed_data, otherwise parse_error marks the snapshot as
// text-only. A malformed response never fails the run.
func BuildAnalysisResult(content, servedModel string, tpl *models.AIPromptForReport, totalDuration, totalFiles int) ([]byte, error) {
	result := map[string]any{
		"original_json": content,
		"_metadata": map[string]any{
			"model_used":     servedModel,
			"template_id":    tpl.ID,
			"template_name":  tpl.Name,
			"total_duration": totalDuration,
			"total_files":    totalFiles,
		},
	}

	var parsed any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		result["parse_error"] = "JSON 파싱에 실패했습니다."
	} else if obj, ok := parsed.(map[string]any); ok {
		result["parsed_data"] = obj
	} else {
		result["parsed_data"] = map[string]any{"raw_analysis": parsed}
	}

	return json.Marshal(result)
}
