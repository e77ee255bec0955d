package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
)

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_code", "name", "description", "instructor_id", "instructor_name",
		"capacity", "enrolled_count", "schedule", "location", "prerequisites", "department", "credits",
	})
}

func TestCourseRepositoryListNoFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM courses ORDER BY course_code").
		WillReturnRows(courseRows().
			AddRow("cs101", "CS101", "Intro CS", "", "fac-1", "Grace Hopper",
				30, 10, "MWF 9:00-10:00", "Hall A", pq.StringArray{}, "CS", 3))

	courses, err := repo.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListDepartmentFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(department) = LOWER($1)")).
		WithArgs("cs").
		WillReturnRows(courseRows())

	_, err := repo.List(context.Background(), models.CourseFilter{Department: "cs"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListCombinedFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(department) = LOWER($1) AND instructor_name ILIKE '%' || $2 || '%'")).
		WithArgs("cs", "hopper").
		WillReturnRows(courseRows())

	_, err := repo.List(context.Background(), models.CourseFilter{Department: "cs", Instructor: "hopper"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	// No query should be issued for an empty ID list.
	out, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCourseRepositoryUpdateExcludesCounter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET course_code = (.+) WHERE id = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	course := &models.Course{ID: "cs101", CourseCode: "CS101", Name: "Intro CS", Capacity: 30, Prerequisites: pq.StringArray{}}
	require.NoError(t, repo.Update(context.Background(), course))
	require.NoError(t, mock.ExpectationsWereMet())
}
