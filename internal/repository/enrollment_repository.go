package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, semester, status, enrollment_date`

// EnrollmentRepository handles persistence of enrollments and owns the two
// transactional write units that keep courses.enrolled_count consistent with
// the set of enrollments in status "enrolled".
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns every enrollment a student holds, any status.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 ORDER BY enrollment_date DESC`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListEnrolledByStudentAndSemester returns the student's enrollments in
// status "enrolled" for one semester.
func (r *EnrollmentRepository) ListEnrolledByStudentAndSemester(ctx context.Context, studentID, semester string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 AND semester = $2 AND status = $3`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, semester, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list semester enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsEnrolled reports whether the student holds an enrolled enrollment
// for the course, any semester.
func (r *EnrollmentRepository) ExistsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentStatusEnrolled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrolled: %w", err)
	}
	return true, nil
}

// ListRosterByCourse joins enrolled enrollments to student records.
func (r *EnrollmentRepository) ListRosterByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.student_id, u.full_name AS name, u.email, e.enrollment_date
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1 AND e.status = $2
        ORDER BY u.full_name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return roster, nil
}

// CountEnrolledByCourse counts enrollments in status "enrolled" for a course.
func (r *EnrollmentRepository) CountEnrolledByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return count, nil
}

// CountByStudent counts all enrollments held by a student, any status.
func (r *EnrollmentRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return count, nil
}

// CountWaitlistedByCourse counts waitlisted enrollments for a course.
func (r *EnrollmentRepository) CountWaitlistedByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusWaitlisted); err != nil {
		return 0, fmt.Errorf("count waitlisted: %w", err)
	}
	return count, nil
}

// ListWaitlistedByCourse returns waitlisted enrollments for a course.
func (r *EnrollmentRepository) ListWaitlistedByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE course_id = $1 AND status = $2`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID, models.EnrollmentStatusWaitlisted); err != nil {
		return nil, fmt.Errorf("list waitlisted: %w", err)
	}
	return enrollments, nil
}

// CreateWithCourseIncrement inserts the enrollment and increments the
// course counter in one transaction, so a persistence failure on either
// write leaves no partial state.
func (r *EnrollmentRepository) CreateWithCourseIncrement(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO enrollments (id, student_id, course_id, semester, status, enrollment_date)
        VALUES (:id, :student_id, :course_id, :semester, :status, :enrollment_date)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	const bump = `UPDATE courses SET enrolled_count = enrolled_count + 1 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, enrollment.CourseID); err != nil {
		return fmt.Errorf("increment enrolled count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll tx: %w", err)
	}
	return nil
}

// MarkDroppedWithCourseDecrement flips the enrollment to dropped and
// decrements the course counter, floored at zero, in one transaction.
// It returns the course's post-decrement enrolled_count and capacity so
// the caller can decide whether a seat opened; if the course row no
// longer exists both are zero and ok is false.
func (r *EnrollmentRepository) MarkDroppedWithCourseDecrement(ctx context.Context, enrollmentID, courseID string) (enrolled, capacity int, ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("begin drop tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const drop = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, drop, enrollmentID, models.EnrollmentStatusDropped); err != nil {
		return 0, 0, false, fmt.Errorf("mark dropped: %w", err)
	}

	const shrink = `UPDATE courses SET enrolled_count = GREATEST(enrolled_count - 1, 0)
        WHERE id = $1 RETURNING enrolled_count, capacity`
	row := tx.QueryRowxContext(ctx, shrink, courseID)
	if err := row.Scan(&enrolled, &capacity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The course was deleted after its enrollments were dropped;
			// only the status flip applies.
			if err := tx.Commit(); err != nil {
				return 0, 0, false, fmt.Errorf("commit drop tx: %w", err)
			}
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("decrement enrolled count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, false, fmt.Errorf("commit drop tx: %w", err)
	}
	return enrolled, capacity, true, nil
}
