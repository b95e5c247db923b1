package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/service"
	"github.com/noah-isme/school-enrollment-api/pkg/response"
)

type levelService interface {
	List(ctx context.Context) ([]models.Level, error)
	Get(ctx context.Context, id int64) (*models.Level, error)
	Create(ctx context.Context, req service.LevelRequest) (*models.Level, error)
	Update(ctx context.Context, id int64, req service.LevelRequest) (*models.Level, error)
	Delete(ctx context.Context, id int64) error
}

// LevelHandler exposes level endpoints.
type LevelHandler struct {
	levels levelService
}

// NewLevelHandler constructs LevelHandler.
func NewLevelHandler(levels levelService) *LevelHandler {
	return &LevelHandler{levels: levels}
}

// List godoc
// @Summary List levels
// @Tags Levels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /levels [get]
func (h *LevelHandler) List(c *gin.Context) {
	levels, err := h.levels.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, levels)
}

// Get godoc
// @Summary Get level
// @Tags Levels
// @Produce json
// @Param id path int true "Level ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /levels/{id} [get]
func (h *LevelHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	level, err := h.levels.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, level)
}

// Create godoc
// @Summary Create level
// @Tags Levels
// @Accept json
// @Produce json
// @Param payload body service.LevelRequest true "Level payload"
// @Success 201 {object} response.Envelope
// @Router /levels [post]
func (h *LevelHandler) Create(c *gin.Context) {
	var req service.LevelRequest
	if !bindJSON(c, &req) {
		return
	}
	level, err := h.levels.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

// Update godoc
// @Summary Update level
// @Tags Levels
// @Accept json
// @Produce json
// @Param id path int true "Level ID"
// @Param payload body service.LevelRequest true "Level payload"
// @Success 200 {object} response.Envelope
// @Router /levels/{id} [put]
func (h *LevelHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.LevelRequest
	if !bindJSON(c, &req) {
		return
	}
	level, err := h.levels.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, level)
}

// Delete godoc
// @Summary Delete level
// @Tags Levels
// @Param id path int true "Level ID"
// @Success 204
// @Router /levels/{id} [delete]
func (h *LevelHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.levels.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
