package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/daonlab/talkreport/internal/services"
	"github.com/daonlab/talkreport/internal/utils"
)

type AudioHandler struct {
	audio       services.AudioService
	transcripts services.TranscriptService
	sttConfigs  services.STTConfigService
}

func NewAudioHandler(audio services.AudioService, transcripts services.TranscriptService, sttConfigs services.STTConfigService) *AudioHandler {
	return &AudioHandler{audio: audio, transcripts: transcripts, sttConfigs: sttConfigs}
}

func (h *AudioHandler) Upload(c *gin.Context) {
	const op = "AudioHandler.Upload"

	reportID, ok := pathID(c, "report_id", op)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file field is required", err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open uploaded file", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read uploaded file", err))
		return
	}

	row, err := h.audio.Upload(c.Request.Context(), reportID,
		fh.Filename, c.PostForm("display_name"), fh.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *AudioHandler) ListByReport(c *gin.Context) {
	reportID, ok := pathID(c, "report_id", "AudioHandler.ListByReport")
	if !ok {
		return
	}

	rows, err := h.audio.ListByReport(c.Request.Context(), reportID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_files": rows})
}

func (h *AudioHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.Get")
	if !ok {
		return
	}

	row, err := h.audio.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type RenameAudioRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *AudioHandler) Rename(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.Rename")
	if !ok {
		return
	}

	var req RenameAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AudioHandler.Rename", "invalid request body", err))
		return
	}

	row, err := h.audio.Rename(c.Request.Context(), id, req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *AudioHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.Delete")
	if !ok {
		return
	}

	if err := h.audio.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AudioHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.Download")
	if !ok {
		return
	}

	url, err := h.audio.DownloadURL(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *AudioHandler) Transcribe(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.Transcribe")
	if !ok {
		return
	}

	status, started, err := h.audio.Transcribe(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"audio_file_id": id,
		"stt_status":    status,
		"started":       started,
	})
}

func (h *AudioHandler) RestartTranscription(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.RestartTranscription")
	if !ok {
		return
	}

	if err := h.audio.Restart(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"audio_file_id": id,
		"stt_status":    "processing",
		"started":       true,
	})
}

func (h *AudioHandler) GetTranscript(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.GetTranscript")
	if !ok {
		return
	}

	row, err := h.transcripts.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type UpdateTranscriptRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *AudioHandler) UpdateTranscript(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.UpdateTranscript")
	if !ok {
		return
	}

	var req UpdateTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AudioHandler.UpdateTranscript", "invalid request body", err))
		return
	}

	row, err := h.transcripts.UpdateContent(c.Request.Context(), id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type SpeakerNamesRequest struct {
	SpeakerNames map[string]string `json:"speaker_names" binding:"required"`
}

func (h *AudioHandler) RenameSpeakers(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.RenameSpeakers")
	if !ok {
		return
	}

	var req SpeakerNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AudioHandler.RenameSpeakers", "invalid request body", err))
		return
	}

	row, err := h.transcripts.RenameSpeakers(c.Request.Context(), id, req.SpeakerNames)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *AudioHandler) PreviewSpeakers(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.PreviewSpeakers")
	if !ok {
		return
	}

	var req SpeakerNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AudioHandler.PreviewSpeakers", "invalid request body", err))
		return
	}

	content, err := h.transcripts.PreviewSpeakers(c.Request.Context(), id, req.SpeakerNames)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *AudioHandler) GetSTTConfig(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.GetSTTConfig")
	if !ok {
		return
	}

	cfg, err := h.sttConfigs.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type STTConfigRequest struct {
	ModelType            *string  `json:"model_type"`
	Language             *string  `json:"language"`
	LanguageCandidates   []string `json:"language_candidates"`
	SpeakerDiarization   *bool    `json:"speaker_diarization"`
	SpkCount             *int     `json:"spk_count"`
	ProfanityFilter      *bool    `json:"profanity_filter"`
	UseDisfluencyFilter  *bool    `json:"use_disfluency_filter"`
	UseParagraphSplitter *bool    `json:"use_paragraph_splitter"`
	ParagraphMaxLength   *int     `json:"paragraph_max_length"`
	Domain               *string  `json:"domain"`
	Keywords             []string `json:"keywords"`
}

func (h *AudioHandler) SaveSTTConfig(c *gin.Context) {
	id, ok := pathID(c, "file_id", "AudioHandler.SaveSTTConfig")
	if !ok {
		return
	}

	var req STTConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AudioHandler.SaveSTTConfig", "invalid request body", err))
		return
	}

	cfg, err := h.sttConfigs.Save(c.Request.Context(), id, services.STTConfigInput{
		ModelType:            req.ModelType,
		Language:             req.Language,
		LanguageCandidates:   req.LanguageCandidates,
		SpeakerDiarization:   req.SpeakerDiarization,
		SpkCount:             req.SpkCount,
		ProfanityFilter:      req.ProfanityFilter,
		UseDisfluencyFilter:  req.UseDisfluencyFilter,
		UseParagraphSplitter: req.UseParagraphSplitter,
		ParagraphMaxLength:   req.ParagraphMaxLength,
		Domain:               req.Domain,
		Keywords:             req.Keywords,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
