package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
)

const gradeColumns = `id, student_id, course_id, grade, semester, status, submitted_by, submitted_date`

// GradeRepository handles persistence of grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByID returns a grade by its ID.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE id = $1`, gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListByStudent returns all grades recorded for a student.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE student_id = $1 ORDER BY semester, course_id`, gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListByCourse returns all grades recorded for a course.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE course_id = $1 ORDER BY student_id`, gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	return grades, nil
}

// ListCompletedCourseIDs returns the course IDs the student has passed:
// a submitted grade with letter A through D.
func (r *GradeRepository) ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM grades
        WHERE student_id = $1 AND status = $2 AND grade IN ('A', 'B', 'C', 'D')`
	var courseIDs []string
	if err := r.db.SelectContext(ctx, &courseIDs, query, studentID, models.GradeStatusSubmitted); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	return courseIDs, nil
}

// Create persists a new grade record.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.Status == "" {
		grade.Status = models.GradeStatusPending
	}
	if grade.SubmittedDate == nil {
		now := time.Now().UTC()
		grade.SubmittedDate = &now
	}
	const query = `INSERT INTO grades (id, student_id, course_id, grade, semester, status, submitted_by, submitted_date)
        VALUES (:id, :student_id, :course_id, :grade, :semester, :status, :submitted_by, :submitted_date)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// UpdateStatus transitions a grade between pending and submitted.
func (r *GradeRepository) UpdateStatus(ctx context.Context, id string, status models.GradeStatus) error {
	const query = `UPDATE grades SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update grade status: %w", err)
	}
	return nil
}
