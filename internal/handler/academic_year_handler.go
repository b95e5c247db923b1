package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/service"
	"github.com/noah-isme/school-enrollment-api/pkg/response"
)

type academicYearService interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	Get(ctx context.Context, id int64) (*models.AcademicYear, error)
	GetActive(ctx context.Context) (*models.AcademicYear, error)
	Create(ctx context.Context, req service.AcademicYearRequest) (*models.AcademicYear, error)
	Update(ctx context.Context, id int64, req service.AcademicYearRequest) (*models.AcademicYear, error)
	Activate(ctx context.Context, id int64) (*models.AcademicYear, error)
	Delete(ctx context.Context, id int64) error
}

// AcademicYearHandler exposes academic year endpoints.
type AcademicYearHandler struct {
	years academicYearService
}

// NewAcademicYearHandler constructs AcademicYearHandler.
func NewAcademicYearHandler(years academicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{years: years}
}

// List godoc
// @Summary List academic years
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	years, err := h.years.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, years)
}

// Active godoc
// @Summary Get the active academic year
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-years/active [get]
func (h *AcademicYearHandler) Active(c *gin.Context) {
	year, err := h.years.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}

// Get godoc
// @Summary Get academic year
// @Tags AcademicYears
// @Produce json
// @Param id path int true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	year, err := h.years.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}

// Create godoc
// @Summary Create academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param payload body service.AcademicYearRequest true "Academic year payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	var req service.AcademicYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.years.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Update godoc
// @Summary Update academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param id path int true "Academic year ID"
// @Param payload body service.AcademicYearRequest true "Academic year payload"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [put]
func (h *AcademicYearHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AcademicYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.years.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}

// Activate godoc
// @Summary Make an academic year the active one
// @Tags AcademicYears
// @Produce json
// @Param id path int true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/activate [put]
func (h *AcademicYearHandler) Activate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	year, err := h.years.Activate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, year)
}

// Delete godoc
// @Summary Delete academic year
// @Tags AcademicYears
// @Param id path int true "Academic year ID"
// @Success 204
// @Router /academic-years/{id} [delete]
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.years.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
