package routes

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/daonlab/talkreport/internal/api/handlers"
	"github.com/daonlab/talkreport/internal/api/middleware"
)

type Deps struct {
	Report *handlers.ReportHandler
	Audio  *handlers.AudioHandler
	Prompt *handlers.PromptHandler
	WS     *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(rate.Limit(20), 40))

	api.POST("/reports", d.Report.Create)
	api.GET("/reports", d.Report.List)
	api.GET("/reports/:report_id", d.Report.Get)
	api.PUT("/reports/:report_id", d.Report.Update)
	api.DELETE("/reports/:report_id", d.Report.Delete)
	api.PUT("/reports/:report_id/status", d.Report.SetStatus)

	api.POST("/reports/:report_id/analyze", d.Report.Analyze)
	api.GET("/reports/:report_id/analysis/status", d.Report.AnalysisStatus)
	api.GET("/reports/:report_id/analysis/preview", d.Report.AnalysisPreview)
	api.GET("/reports/:report_id/analysis/latest", d.Report.LatestAnalysis)
	api.GET("/analysis/models", d.Report.Models)

	api.POST("/reports/:report_id/publish", d.Report.Publish)
	api.GET("/reports/:report_id/published-reports", d.Report.ListPublished)

	api.POST("/reports/:report_id/audio-files", d.Audio.Upload)
	api.GET("/reports/:report_id/audio-files", d.Audio.ListByReport)
	api.GET("/audio-files/:file_id", d.Audio.Get)
	api.PUT("/audio-files/:file_id", d.Audio.Rename)
	api.DELETE("/audio-files/:file_id", d.Audio.Delete)
	api.GET("/audio-files/:file_id/download", d.Audio.Download)

	api.POST("/audio-files/:file_id/transcribe", d.Audio.Transcribe)
	api.POST("/audio-files/:file_id/transcribe/restart", d.Audio.RestartTranscription)
	api.GET("/audio-files/:file_id/transcript", d.Audio.GetTranscript)
	api.PUT("/audio-files/:file_id/transcript", d.Audio.UpdateTranscript)
	api.PUT("/audio-files/:file_id/speakers", d.Audio.RenameSpeakers)
	api.POST("/audio-files/:file_id/speakers/preview", d.Audio.PreviewSpeakers)
	api.GET("/audio-files/:file_id/stt-config", d.Audio.GetSTTConfig)
	api.PUT("/audio-files/:file_id/stt-config", d.Audio.SaveSTTConfig)

	api.POST("/prompts", d.Prompt.Create)
	api.GET("/prompts", d.Prompt.List)
	// "default" resolves the default prompt; see PromptHandler.Get.
	api.GET("/prompts/:prompt_id", d.Prompt.Get)
	api.PUT("/prompts/:prompt_id", d.Prompt.Update)
	api.DELETE("/prompts/:prompt_id", d.Prompt.Delete)

	// WebSocket
	api.GET("/ws/reports/:report_id/status", d.WS.ReportStatusWS)
}
