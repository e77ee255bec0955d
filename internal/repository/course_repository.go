package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
)

const courseColumns = `id, course_code, name, description, instructor_id, instructor_name,
        capacity, enrolled_count, schedule, location, prerequisites, department, credits`

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDs returns the subset of courses matching the given IDs, keyed by ID.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error) {
	if len(ids) == 0 {
		return map[string]models.Course{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = ANY($1)`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	out := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		out[c.ID] = c
	}
	return out, nil
}

// List returns courses matching the catalogue browse filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(department) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Instructor != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_name ILIKE '%%' || $%d || '%%'", len(args)+1))
		args = append(args, filter.Instructor)
	}
	if filter.Keyword != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%' OR course_code ILIKE '%%' || $%d || '%%')", n, n, n))
		args = append(args, filter.Keyword)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM courses%s ORDER BY course_code`, courseColumns, clause)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByInstructor returns all courses taught by the given instructor.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE instructor_id = $1 ORDER BY course_code`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return courses, nil
}

// CountByInstructor returns how many courses the user instructs.
func (r *CourseRepository) CountByInstructor(ctx context.Context, instructorID string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE instructor_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, instructorID); err != nil {
		return 0, fmt.Errorf("count instructor courses: %w", err)
	}
	return count, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.Prerequisites == nil {
		course.Prerequisites = pq.StringArray{}
	}
	const query = `INSERT INTO courses (id, course_code, name, description, instructor_id, instructor_name,
        capacity, enrolled_count, schedule, location, prerequisites, department, credits)
        VALUES (:id, :course_code, :name, :description, :instructor_id, :instructor_name,
        :capacity, :enrolled_count, :schedule, :location, :prerequisites, :department, :credits)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists course fields. The enrolled_count column is deliberately
// excluded: only the enrollment write units may touch the counter.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET course_code = :course_code, name = :name, description = :description,
        instructor_id = :instructor_id, instructor_name = :instructor_name, capacity = :capacity,
        schedule = :schedule, location = :location, prerequisites = :prerequisites,
        department = :department, credits = :credits WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
