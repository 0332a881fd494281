package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/daonlab/talkreport/internal/models"
	"github.com/daonlab/talkreport/internal/services"
	"github.com/daonlab/talkreport/internal/utils"
)

type PromptHandler struct {
	prompts services.PromptService
}

func NewPromptHandler(prompts services.PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

type CreatePromptRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	PromptContent string `json:"prompt_content" binding:"required"`
	IsDefault     bool   `json:"is_default"`
}

func (h *PromptHandler) Create(c *gin.Context) {
	var req CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PromptHandler.Create", "invalid request body", err))
		return
	}

	row, err := h.prompts.Create(c.Request.Context(), req.Name, req.Description, req.PromptContent, req.IsDefault)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

type ListPromptsResponse struct {
	Prompts []models.AIPromptForReport `json:"prompts"`
	Meta    ListMeta                   `json:"meta"`
}

func (h *PromptHandler) List(c *gin.Context) {
	page, size := pagination(c)

	var isDefault *bool
	if raw := c.Query("is_default"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, "PromptHandler.List", "invalid is_default filter", err))
			return
		}
		isDefault = &v
	}

	rows, total, err := h.prompts.List(c.Request.Context(), page, size, isDefault)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListPromptsResponse{
		Prompts: rows,
		Meta:    ListMeta{Page: page, Size: size, Total: total},
	})
}

// Get resolves one prompt by id. The literal id "default" returns the
// current default prompt.
func (h *PromptHandler) Get(c *gin.Context) {
	if c.Param("prompt_id") == "default" {
		h.GetDefault(c)
		return
	}

	id, ok := pathID(c, "prompt_id", "PromptHandler.Get")
	if !ok {
		return
	}

	row, err := h.prompts.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *PromptHandler) GetDefault(c *gin.Context) {
	row, err := h.prompts.GetDefault(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type UpdatePromptRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	PromptContent *string `json:"prompt_content"`
	IsDefault     *bool   `json:"is_default"`
}

func (h *PromptHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "prompt_id", "PromptHandler.Update")
	if !ok {
		return
	}

	var req UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PromptHandler.Update", "invalid request body", err))
		return
	}

	row, err := h.prompts.Update(c.Request.Context(), id, services.PromptUpdate{
		Name:          req.Name,
		Description:   req.Description,
		PromptContent: req.PromptContent,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *PromptHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "prompt_id", "PromptHandler.Delete")
	if !ok {
		return
	}

	if err := h.prompts.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
