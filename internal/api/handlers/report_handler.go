package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/services"
	"github.com/daonlab/talkreport/internal/utils"
)

type ReportHandler struct {
	reports  services.ReportService
	analysis services.AnalysisService
	publish  services.PublishService
}

func NewReportHandler(reports services.ReportService, analysis services.AnalysisService, publish services.PublishService) *ReportHandler {
	return &ReportHandler{reports: reports, analysis: analysis, publish: publish}
}

type CreateReportRequest struct {
	Title      string `json:"title" binding:"required"`
	ParentName string `json:"parent_name"`
	ChildName  string `json:"child_name"`
}

func (h *ReportHandler) Create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ReportHandler.Create", "invalid request body", err))
		return
	}

	report, err := h.reports.Create(c.Request.Context(), req.Title, req.ParentName, req.ChildName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

type ListReportsResponse struct {
	Reports []models.Report `json:"reports"`
	Meta    ListMeta        `json:"meta"`
}

func (h *ReportHandler) List(c *gin.Context) {
	page, size := pagination(c)

	reports, total, err := h.reports.List(c.Request.Context(), page, size, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListReportsResponse{
		Reports: reports,
		Meta:    ListMeta{Page: page, Size: size, Total: total},
	})
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.Get")
	if !ok {
		return
	}

	report, err := h.reports.GetDetail(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type UpdateReportRequest struct {
	Title      *string `json:"title"`
	ParentName *string `json:"parent_name"`
	ChildName  *string `json:"child_name"`
}

func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.Update")
	if !ok {
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ReportHandler.Update", "invalid request body", err))
		return
	}

	report, err := h.reports.Update(c.Request.Context(), id, services.ReportUpdate{
		Title:      req.Title,
		ParentName: req.ParentName,
		ChildName:  req.ChildName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.Delete")
	if !ok {
		return
	}

	if err := h.reports.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ReportHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.SetStatus")
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ReportHandler.SetStatus", "invalid request body", err))
		return
	}

	report, err := h.reports.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type AnalyzeRequest struct {
	PromptID *uint  `json:"prompt_id"`
	Model    string `json:"model"`
}

func (h *ReportHandler) Analyze(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.Analyze")
	if !ok {
		return
	}

	var req AnalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, "ReportHandler.Analyze", "invalid request body", err))
			return
		}
	}

	if err := h.analysis.Analyze(c.Request.Context(), id, req.PromptID, req.Model); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"report_id": id,
		"status":    models.ReportStatusAnalyzing,
	})
}

func (h *ReportHandler) AnalysisStatus(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.AnalysisStatus")
	if !ok {
		return
	}

	status, err := h.analysis.Status(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *ReportHandler) AnalysisPreview(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.AnalysisPreview")
	if !ok {
		return
	}

	var promptID *uint
	if v, ok := pathQueryUint(c, "prompt_id"); ok {
		promptID = &v
	}

	preview, err := h.analysis.Preview(c.Request.Context(), id, promptID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *ReportHandler) LatestAnalysis(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.LatestAnalysis")
	if !ok {
		return
	}

	latest, err := h.analysis.Latest(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, latest)
}

func (h *ReportHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.analysis.SupportedModels()})
}

func (h *ReportHandler) Publish(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.Publish")
	if !ok {
		return
	}

	if err := h.publish.Publish(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"report_id": id, "status": "publishing"})
}

func (h *ReportHandler) ListPublished(c *gin.Context) {
	id, ok := pathID(c, "report_id", "ReportHandler.ListPublished")
	if !ok {
		return
	}

	rows, err := h.publish.ListPublished(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published_reports": rows})
}
