package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/service"
	"github.com/noah-isme/school-enrollment-api/pkg/response"
)

type sectionService interface {
	List(ctx context.Context) ([]models.SectionDetail, error)
	ListByGrade(ctx context.Context, gradeID int64) ([]models.SectionDetail, error)
	ListWithVacancies(ctx context.Context) ([]models.SectionDetail, error)
	Get(ctx context.Context, id int64) (*models.SectionDetail, error)
	Create(ctx context.Context, req service.SectionRequest) (*models.SectionDetail, error)
	Update(ctx context.Context, id int64, req service.SectionRequest) (*models.SectionDetail, error)
	Delete(ctx context.Context, id int64) error
}

// SectionHandler exposes section endpoints.
type SectionHandler struct {
	sections sectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections sectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// List godoc
// @Summary List sections with occupancy
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	sections, err := h.sections.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sections)
}

// ListWithVacancies godoc
// @Summary List sections with free seats
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sections/vacancies [get]
func (h *SectionHandler) ListWithVacancies(c *gin.Context) {
	sections, err := h.sections.ListWithVacancies(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sections)
}

// ListByGrade godoc
// @Summary List sections of a grade
// @Tags Sections
// @Produce json
// @Param gradeId path int true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /sections/grade/{gradeId} [get]
func (h *SectionHandler) ListByGrade(c *gin.Context) {
	gradeID, ok := pathID(c, "gradeId")
	if !ok {
		return
	}
	sections, err := h.sections.ListByGrade(c.Request.Context(), gradeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sections)
}

// Get godoc
// @Summary Get section
// @Tags Sections
// @Produce json
// @Param id path int true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	section, err := h.sections.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, section)
}

// Create godoc
// @Summary Create section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.SectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.SectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path int true "Section ID"
// @Param payload body service.SectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.sections.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, section)
}

// Delete godoc
// @Summary Delete section
// @Tags Sections
// @Param id path int true "Section ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.sections.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
