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

type courseService interface {
	Browse(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
}

// CourseHandler exposes catalogue browse, CRUD and roster endpoints.
type CourseHandler struct {
	courses courseService
	logger  *zap.Logger
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, logger *zap.Logger) *CourseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseHandler{courses: courses, logger: logger}
}

// Browse godoc
// @Summary Browse the course catalogue
// @Tags courses
// @Produce json
// @Param department query string false "Department filter"
// @Param instructor query string false "Instructor name filter"
// @Param keyword query string false "Keyword filter"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) Browse(c *gin.Context) {
	filter := models.CourseFilter{
		Department: c.Query("department"),
		Instructor: c.Query("instructor"),
		Keyword:    c.Query("keyword"),
	}
	courses, err := h.courses.Browse(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Get godoc
// @Summary Get a course
// @Tags courses
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create godoc
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Param request body service.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Tags courses
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param request body service.UpdateCourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete a course without enrolled students
// @Tags courses
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	courseID := c.Param("courseId")
	if err := h.courses.Delete(c.Request.Context(), courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"course_id": courseID, "status": "deleted"})
}

// Roster godoc
// @Summary List enrolled students for a course
// @Tags courses
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/roster [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	roster, err := h.courses.Roster(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

// ListByInstructor godoc
// @Summary List courses taught by a faculty member
// @Tags courses
// @Produce json
// @Param facultyId path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/{facultyId}/courses [get]
func (h *CourseHandler) ListByInstructor(c *gin.Context) {
	courses, err := h.courses.ListByInstructor(c.Request.Context(), c.Param("facultyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}
