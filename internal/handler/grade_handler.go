package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/internal/service"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/response"
)

type gradeService interface {
	SubmitBatch(ctx context.Context, req service.BatchGradeRequest) (*service.BatchGradeResult, error)
	Finalize(ctx context.Context, gradeID string) (*models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Grade, error)
}

// GradeHandler exposes faculty grade submission and student grade views.
type GradeHandler struct {
	grades gradeService
	logger *zap.Logger
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService, logger *zap.Logger) *GradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeHandler{grades: grades, logger: logger}
}

// SubmitBatch godoc
// @Summary Submit grades for a course in batch
// @Tags grades
// @Accept json
// @Produce json
// @Param request body service.BatchGradeRequest true "Grade batch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/batch [post]
func (h *GradeHandler) SubmitBatch(c *gin.Context) {
	var req service.BatchGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if req.SubmittedBy == "" {
		req.SubmittedBy = currentUserID(c)
	}

	result, err := h.grades.SubmitBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Finalize godoc
// @Summary Finalize a pending grade
// @Tags grades
// @Produce json
// @Param gradeId path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/{gradeId}/finalize [post]
func (h *GradeHandler) Finalize(c *gin.Context) {
	grade, err := h.grades.Finalize(c.Request.Context(), c.Param("gradeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grade)
}

// ListByStudent godoc
// @Summary List a student's grades
// @Tags grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/grades [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	grades, err := h.grades.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grades)
}

// ListByCourse godoc
// @Summary List grades recorded for a course
// @Tags grades
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/grades [get]
func (h *GradeHandler) ListByCourse(c *gin.Context) {
	grades, err := h.grades.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grades)
}
