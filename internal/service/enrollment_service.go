package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/jobs"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	ListEnrolledByStudentAndSemester(ctx context.Context, studentID, semester string) ([]models.Enrollment, error)
	CreateWithCourseIncrement(ctx context.Context, enrollment *models.Enrollment) error
	MarkDroppedWithCourseDecrement(ctx context.Context, enrollmentID, courseID string) (enrolled, capacity int, ok bool, err error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type completionReader interface {
	ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type dispatchQueue interface {
	Enqueue(job jobs.Job) error
}

// JobTypeCourseAvailable labels seat-opened dispatch jobs; the payload is
// the course ID.
const JobTypeCourseAvailable = "course_available"

// EnrollRequest is the payload for the normal and override enrollment paths.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Semester  string `json:"semester" validate:"required"`
}

// EnrollmentService couples conflict validation with the atomic
// enrollment-create + capacity-update write. All three mutation paths
// (Enroll, Drop, ForceEnroll) hold the per-course lock across their
// read-check-write window so the enrolled_count counter never loses an
// update under concurrent requests for the same course.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	students  studentReader
	grades    completionReader
	queue     dispatchQueue
	locks     *courseLocks
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. The queue is optional;
// without it, capacity-opening drops simply skip the availability dispatch.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, students studentReader, grades completionReader, queue dispatchQueue, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		students:  students,
		grades:    grades,
		queue:     queue,
		locks:     newCourseLocks(),
		validator: validate,
		logger:    logger,
	}
}

// Enroll validates and commits a student's request to join a course.
// On any check failure the operation aborts with that error and no state
// is mutated; on success the new enrollment and the course counter are
// persisted as one transaction.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	// The lock covers everything from the course read to the commit:
	// the snapshot the checks see is the snapshot the write applies to.
	unlock := s.locks.Lock(req.CourseID)
	defer unlock()

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	snap, err := s.buildSnapshot(ctx, course, req.StudentID, req.Semester)
	if err != nil {
		return nil, err
	}
	if err := CheckEnrollment(req.CourseID, snap); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		CourseID:       req.CourseID,
		Semester:       req.Semester,
		Status:         models.EnrollmentStatusEnrolled,
		EnrollmentDate: time.Now().UTC(),
	}
	if err := s.repo.CreateWithCourseIncrement(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
		zap.String("semester", req.Semester))
	return enrollment, nil
}

// Drop marks an enrollment dropped and releases its seat. Dropping an
// already-dropped enrollment is not rejected; the counter decrement is
// floored at zero, which keeps the repeat call harmless.
func (s *EnrollmentService) Drop(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrEnrollmentNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	unlock := s.locks.Lock(enrollment.CourseID)
	defer unlock()

	enrolled, capacity, courseExists, err := s.repo.MarkDroppedWithCourseDecrement(ctx, enrollment.ID, enrollment.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}

	if courseExists && enrolled < capacity {
		s.notifySeatOpened(enrollment.CourseID)
	}

	s.logger.Info("enrollment dropped",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("course_id", enrollment.CourseID))
	return nil
}

// ForceEnroll is the admin override path: it validates only that the
// student and course exist, then commits unconditionally, even past
// capacity. Capacity stays a soft target enforced solely by Enroll.
func (s *EnrollmentService) ForceEnroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	unlock := s.locks.Lock(req.CourseID)
	defer unlock()

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		CourseID:       req.CourseID,
		Semester:       req.Semester,
		Status:         models.EnrollmentStatusEnrolled,
		EnrollmentDate: time.Now().UTC(),
	}
	if err := s.repo.CreateWithCourseIncrement(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("enrollment overridden",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID))
	return enrollment, nil
}

// Schedule returns the courses a student is enrolled in for a semester.
func (s *EnrollmentService) Schedule(ctx context.Context, studentID, semester string) (*models.StudentSchedule, error) {
	enrollments, err := s.repo.ListEnrolledByStudentAndSemester(ctx, studentID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	courses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	schedule := &models.StudentSchedule{StudentID: studentID, Semester: semester, Courses: []models.Course{}}
	for _, e := range enrollments {
		if course, ok := courses[e.CourseID]; ok {
			schedule.Courses = append(schedule.Courses, course)
		}
	}
	return schedule, nil
}

// History returns every enrollment a student holds, any status.
func (s *EnrollmentService) History(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) buildSnapshot(ctx context.Context, course *models.Course, studentID, semester string) (EnrollmentSnapshot, error) {
	snap := EnrollmentSnapshot{Course: course}

	enrollments, err := s.repo.ListEnrolledByStudentAndSemester(ctx, studentID, semester)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	snap.StudentEnrollments = enrollments

	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	enrolledCourses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled courses")
	}
	snap.EnrolledCourses = enrolledCourses

	completed, err := s.grades.ListCompletedCourseIDs(ctx, studentID)
	if err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed courses")
	}
	snap.CompletedCourseIDs = make(map[string]struct{}, len(completed))
	for _, id := range completed {
		snap.CompletedCourseIDs[id] = struct{}{}
	}

	if len(course.Prerequisites) > 0 {
		prereqCourses, err := s.courses.FindByIDs(ctx, course.Prerequisites)
		if err != nil {
			return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite courses")
		}
		snap.PrerequisiteNames = make(map[string]string, len(prereqCourses))
		for id, c := range prereqCourses {
			snap.PrerequisiteNames[id] = c.Name
		}
	}

	return snap, nil
}

// notifySeatOpened requests the availability fan-out fire-and-forget; a
// dispatch failure never fails the drop that freed the seat.
func (s *EnrollmentService) notifySeatOpened(courseID string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{Type: JobTypeCourseAvailable, Payload: courseID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue seat-opened dispatch",
			zap.String("course_id", courseID), zap.Error(err))
	}
}
