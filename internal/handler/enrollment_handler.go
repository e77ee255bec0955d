package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/internal/service"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/metrics"
	"github.com/nexus-edu/nexus-enroll-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, enrollmentID string) error
	ForceEnroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error)
	Schedule(ctx context.Context, studentID, semester string) (*models.StudentSchedule, error)
	History(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

// EnrollmentHandler exposes the enrollment transaction endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, m *metrics.Metrics, logger *zap.Logger) *EnrollmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentHandler{enrollments: enrollments, metrics: m, logger: logger}
}

// Enroll godoc
// @Summary Enroll a student into a course
// @Tags enrollments
// @Accept json
// @Produce json
// @Param request body service.EnrollRequest true "Enrollment request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		h.record("enroll", err)
		response.Error(c, err)
		return
	}

	h.record("enroll", nil)
	response.OK(c, gin.H{"enrollment_id": enrollment.ID})
}

// Drop godoc
// @Summary Drop an enrollment
// @Tags enrollments
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enroll/{enrollmentId} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	enrollmentID := c.Param("enrollmentId")

	if err := h.enrollments.Drop(c.Request.Context(), enrollmentID); err != nil {
		h.record("drop", err)
		response.Error(c, err)
		return
	}

	h.record("drop", nil)
	response.OK(c, gin.H{"enrollment_id": enrollmentID, "status": "dropped"})
}

// Override godoc
// @Summary Force-enroll a student, bypassing checks
// @Tags enrollments
// @Accept json
// @Produce json
// @Param request body service.EnrollRequest true "Enrollment request"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/override [post]
func (h *EnrollmentHandler) Override(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	enrollment, err := h.enrollments.ForceEnroll(c.Request.Context(), req)
	if err != nil {
		h.record("override", err)
		response.Error(c, err)
		return
	}

	h.logger.Info("admin override applied",
		zap.String("admin_id", currentUserID(c)),
		zap.String("enrollment_id", enrollment.ID))
	h.record("override", nil)
	response.OK(c, gin.H{"enrollment_id": enrollment.ID})
}

// Schedule godoc
// @Summary Get a student's enrolled courses for a semester
// @Tags enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semester query string true "Semester"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/schedule [get]
func (h *EnrollmentHandler) Schedule(c *gin.Context) {
	schedule, err := h.enrollments.Schedule(c.Request.Context(), c.Param("studentId"), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, schedule)
}

// History godoc
// @Summary Get a student's enrollment history
// @Tags enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/enrollments [get]
func (h *EnrollmentHandler) History(c *gin.Context) {
	enrollments, err := h.enrollments.History(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}

func (h *EnrollmentHandler) record(action string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(appErrors.FromError(err).Code)
	}
	h.metrics.RecordEnrollment(action, outcome)
}
