package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type rosterReader interface {
	ListRosterByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error)
	CountEnrolledByCourse(ctx context.Context, courseID string) (int, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CacheStore abstracts the Redis cache layer so callers can disable
// caching by passing nil.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateCourseRequest is the payload for course creation.
type CreateCourseRequest struct {
	CourseCode    string   `json:"course_code" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	InstructorID  string   `json:"instructor_id" validate:"required"`
	Capacity      int      `json:"capacity" validate:"required,gt=0"`
	Schedule      string   `json:"schedule" validate:"required"`
	Location      string   `json:"location"`
	Prerequisites []string `json:"prerequisites"`
	Department    string   `json:"department" validate:"required"`
	Credits       int      `json:"credits" validate:"gte=0"`
}

// UpdateCourseRequest carries the mutable course fields. The enrolled
// counter is not among them.
type UpdateCourseRequest struct {
	CourseCode    string   `json:"course_code" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	InstructorID  string   `json:"instructor_id" validate:"required"`
	Capacity      int      `json:"capacity" validate:"required,gt=0"`
	Schedule      string   `json:"schedule" validate:"required"`
	Location      string   `json:"location"`
	Prerequisites []string `json:"prerequisites"`
	Department    string   `json:"department" validate:"required"`
	Credits       int      `json:"credits" validate:"gte=0"`
}

// CourseService owns the catalogue: browse, CRUD and rosters. Browse
// results are cached in Redis with a short TTL; course mutations
// invalidate the whole catalogue namespace. Seat counters change through
// the enrollment paths without invalidation, so a cached enrolled_count
// can lag by at most the TTL.
type CourseService struct {
	repo        courseRepository
	enrollments rosterReader
	users       userReader
	cache       CacheStore
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs CourseService. A nil cache disables
// catalogue caching.
func NewCourseService(repo courseRepository, enrollments rosterReader, users userReader, cache CacheStore, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		repo:        repo,
		enrollments: enrollments,
		users:       users,
		cache:       cache,
		cacheTTL:    cacheTTL,
		validator:   validate,
		logger:      logger,
	}
}

// Browse lists courses matching the filter, serving from cache when warm.
func (s *CourseService) Browse(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	key := catalogCacheKey(filter)
	if s.cache != nil {
		var cached []models.Course
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, courses, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return courses, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalogue, denormalising the instructor
// name onto the row.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	instructor, err := s.loadInstructor(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		CourseCode:     req.CourseCode,
		Name:           req.Name,
		Description:    req.Description,
		InstructorID:   instructor.ID,
		InstructorName: instructor.FullName,
		Capacity:       req.Capacity,
		Schedule:       req.Schedule,
		Location:       req.Location,
		Prerequisites:  pq.StringArray(req.Prerequisites),
		Department:     req.Department,
		Credits:        req.Credits,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("course_code", course.CourseCode))
	return course, nil
}

// Update replaces the mutable fields of an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	instructor, err := s.loadInstructor(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}

	course.CourseCode = req.CourseCode
	course.Name = req.Name
	course.Description = req.Description
	course.InstructorID = instructor.ID
	course.InstructorName = instructor.FullName
	course.Capacity = req.Capacity
	course.Schedule = req.Schedule
	course.Location = req.Location
	course.Prerequisites = pq.StringArray(req.Prerequisites)
	course.Department = req.Department
	course.Credits = req.Credits

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateCatalog(ctx)
	return course, nil
}

// Delete removes a course. A course that still has enrolled students
// cannot be deleted.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	enrolled, err := s.enrollments.CountEnrolledByCourse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if enrolled > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "course has enrolled students")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// Roster returns the enrolled students for a course.
func (s *CourseService) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	roster, err := s.enrollments.ListRosterByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	return roster, nil
}

// ListByInstructor returns the courses a faculty member teaches.
func (s *CourseService) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	courses, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

func (s *CourseService) loadInstructor(ctx context.Context, instructorID string) (*models.User, error) {
	instructor, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor must be a faculty member")
	}
	return instructor, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func catalogCacheKey(filter models.CourseFilter) string {
	return fmt.Sprintf("catalog:dept=%s:inst=%s:kw=%s",
		strings.ToLower(filter.Department),
		strings.ToLower(filter.Instructor),
		strings.ToLower(filter.Keyword))
}
