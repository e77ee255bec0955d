package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/jobs"
)

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	UpdateStatus(ctx context.Context, id string, status models.GradeStatus) error
}

type enrollmentExistsReader interface {
	ExistsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

// JobTypeGradeSubmitted labels grade finalization dispatch jobs; the
// payload is a GradeSubmittedJob.
const JobTypeGradeSubmitted = "grade_submitted"

// GradeSubmittedJob is the payload for grade notification dispatch.
type GradeSubmittedJob struct {
	StudentID string
	CourseID  string
}

// GradeEntry is one student's grade within a batch submission.
type GradeEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Grade     string `json:"grade" validate:"required"`
}

// BatchGradeRequest submits grades for a course in one call.
type BatchGradeRequest struct {
	CourseID    string       `json:"course_id" validate:"required"`
	Semester    string       `json:"semester" validate:"required"`
	SubmittedBy string       `json:"submitted_by" validate:"required"`
	Grades      []GradeEntry `json:"grades" validate:"required,min=1,dive"`
}

// BatchGradeError describes why one entry of a batch was rejected.
type BatchGradeError struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BatchGradeResult reports per-entry outcomes. Bad entries never abort
// the batch; each is reported and the rest proceed.
type BatchGradeResult struct {
	Submitted int               `json:"submitted"`
	Failed    int               `json:"failed"`
	Errors    []BatchGradeError `json:"errors"`
}

// GradeService records faculty grade submissions and their finalization.
// New grades land in status pending; Finalize flips them to submitted,
// which is when they start counting toward prerequisite completion.
type GradeService struct {
	repo        gradeRepository
	enrollments enrollmentExistsReader
	courses     courseReader
	queue       dispatchQueue
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService. The queue is optional.
func NewGradeService(repo gradeRepository, enrollments enrollmentExistsReader, courses courseReader, queue dispatchQueue, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, enrollments: enrollments, courses: courses, queue: queue, validator: validate, logger: logger}
}

// SubmitBatch records a set of grades for one course. Entries with an
// unknown grade letter or a student not enrolled in the course are
// reported in the result and skipped.
func (s *GradeService) SubmitBatch(ctx context.Context, req BatchGradeRequest) (*BatchGradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade batch payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	result := &BatchGradeResult{Errors: []BatchGradeError{}}
	for _, entry := range req.Grades {
		if reason := s.submitOne(ctx, req, entry); reason != "" {
			result.Failed++
			result.Errors = append(result.Errors, BatchGradeError{StudentID: entry.StudentID, Reason: reason})
			continue
		}
		result.Submitted++
	}

	s.logger.Info("grade batch processed",
		zap.String("course_id", req.CourseID),
		zap.Int("submitted", result.Submitted),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Finalize transitions a pending grade to submitted and requests the
// student's notification fire-and-forget.
func (s *GradeService) Finalize(ctx context.Context, gradeID string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if grade.Status == models.GradeStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "grade already submitted")
	}

	if err := s.repo.UpdateStatus(ctx, grade.ID, models.GradeStatusSubmitted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize grade")
	}
	grade.Status = models.GradeStatusSubmitted

	if s.queue != nil {
		job := jobs.Job{Type: JobTypeGradeSubmitted, Payload: GradeSubmittedJob{StudentID: grade.StudentID, CourseID: grade.CourseID}}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue grade dispatch", zap.String("grade_id", grade.ID), zap.Error(err))
		}
	}
	return grade, nil
}

// ListByStudent returns a student's grade history.
func (s *GradeService) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	grades, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	if grades == nil {
		grades = []models.Grade{}
	}
	return grades, nil
}

// ListByCourse returns all grades recorded against a course.
func (s *GradeService) ListByCourse(ctx context.Context, courseID string) ([]models.Grade, error) {
	grades, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	if grades == nil {
		grades = []models.Grade{}
	}
	return grades, nil
}

func (s *GradeService) submitOne(ctx context.Context, req BatchGradeRequest, entry GradeEntry) string {
	enrolled, err := s.enrollments.ExistsEnrolled(ctx, entry.StudentID, req.CourseID)
	if err != nil {
		s.logger.Error("failed to check enrollment for grade entry",
			zap.String("student_id", entry.StudentID), zap.Error(err))
		return "failed to verify enrollment"
	}
	if !enrolled {
		return "student not enrolled in course"
	}

	if _, ok := models.ValidGradeLetters[entry.Grade]; !ok {
		return fmt.Sprintf("invalid grade: %s", entry.Grade)
	}

	grade := &models.Grade{
		StudentID:   entry.StudentID,
		CourseID:    req.CourseID,
		Grade:       entry.Grade,
		Semester:    req.Semester,
		Status:      models.GradeStatusPending,
		SubmittedBy: req.SubmittedBy,
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		s.logger.Error("failed to create grade",
			zap.String("student_id", entry.StudentID), zap.Error(err))
		return "failed to record grade"
	}
	return ""
}
