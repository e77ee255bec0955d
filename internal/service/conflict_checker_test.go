package service

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

func snapshotFor(course *models.Course) EnrollmentSnapshot {
	return EnrollmentSnapshot{
		Course:             course,
		EnrolledCourses:    map[string]models.Course{},
		CompletedCourseIDs: map[string]struct{}{},
		PrerequisiteNames:  map[string]string{},
	}
}

func TestCheckEnrollmentAllClear(t *testing.T) {
	course := &models.Course{ID: "cs101", Capacity: 30, EnrolledCount: 10, Schedule: "MWF 9:00-10:00"}
	require.NoError(t, CheckEnrollment("cs101", snapshotFor(course)))
}

func TestCheckEnrollmentDuplicate(t *testing.T) {
	course := &models.Course{ID: "cs101", Capacity: 30, EnrolledCount: 10}
	snap := snapshotFor(course)
	snap.StudentEnrollments = []models.Enrollment{{CourseID: "cs101", Status: models.EnrollmentStatusEnrolled}}

	err := CheckEnrollment("cs101", snap)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
}

func TestCheckEnrollmentCourseFull(t *testing.T) {
	course := &models.Course{ID: "cs101", Capacity: 30, EnrolledCount: 30}
	err := CheckEnrollment("cs101", snapshotFor(course))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCourseFull.Code, appErr.Code)
}

func TestCheckEnrollmentOverCapacityStillFull(t *testing.T) {
	// Overrides may push the counter past capacity; the normal path
	// must keep rejecting.
	course := &models.Course{ID: "cs101", Capacity: 30, EnrolledCount: 32}
	err := CheckEnrollment("cs101", snapshotFor(course))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCourseFull.Code, appErr.Code)
}

func TestCheckEnrollmentPrerequisiteNotMet(t *testing.T) {
	course := &models.Course{
		ID:            "cs201",
		Capacity:      30,
		EnrolledCount: 5,
		Prerequisites: pq.StringArray{"cs101"},
	}
	snap := snapshotFor(course)
	snap.PrerequisiteNames = map[string]string{"cs101": "Intro to Computer Science"}

	err := CheckEnrollment("cs201", snap)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPrerequisiteNotMet.Code, appErr.Code)
	assert.Equal(t, "prerequisite not met: Intro to Computer Science", appErr.Message)
}

func TestCheckEnrollmentPrerequisiteSatisfied(t *testing.T) {
	course := &models.Course{
		ID:            "cs201",
		Capacity:      30,
		EnrolledCount: 5,
		Prerequisites: pq.StringArray{"cs101"},
	}
	snap := snapshotFor(course)
	snap.CompletedCourseIDs = map[string]struct{}{"cs101": {}}

	require.NoError(t, CheckEnrollment("cs201", snap))
}

func TestCheckEnrollmentScheduleConflict(t *testing.T) {
	course := &models.Course{ID: "cs102", Capacity: 30, EnrolledCount: 5, Schedule: "MWF 13:00-14:00"}
	snap := snapshotFor(course)
	snap.StudentEnrollments = []models.Enrollment{{CourseID: "math200", Status: models.EnrollmentStatusEnrolled}}
	snap.EnrolledCourses = map[string]models.Course{
		"math200": {ID: "math200", Name: "Calculus II", Schedule: "WF 9:00-10:30"},
	}

	err := CheckEnrollment("cs102", snap)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
	assert.Equal(t, "time conflict with Calculus II", appErr.Message)
}

func TestCheckEnrollmentNoScheduleConflictDisjointDays(t *testing.T) {
	course := &models.Course{ID: "cs102", Capacity: 30, EnrolledCount: 5, Schedule: "MWF 13:00-14:00"}
	snap := snapshotFor(course)
	snap.StudentEnrollments = []models.Enrollment{{CourseID: "hist110", Status: models.EnrollmentStatusEnrolled}}
	snap.EnrolledCourses = map[string]models.Course{
		// Same time window, different days: not a conflict, only day
		// letters are compared.
		"hist110": {ID: "hist110", Name: "World History", Schedule: "T 13:00-14:00"},
	}

	require.NoError(t, CheckEnrollment("cs102", snap))
}

func TestCheckEnrollmentCapacityCheckedBeforePrerequisites(t *testing.T) {
	// A full course with an unmet prerequisite reports the capacity
	// violation, not the prerequisite one.
	course := &models.Course{
		ID:            "cs201",
		Capacity:      2,
		EnrolledCount: 2,
		Prerequisites: pq.StringArray{"cs101"},
	}
	err := CheckEnrollment("cs201", snapshotFor(course))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCourseFull.Code, appErr.Code)
}

func TestCheckEnrollmentDuplicateCheckedFirst(t *testing.T) {
	course := &models.Course{ID: "cs101", Capacity: 1, EnrolledCount: 1}
	snap := snapshotFor(course)
	snap.StudentEnrollments = []models.Enrollment{{CourseID: "cs101"}}

	err := CheckEnrollment("cs101", snap)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
}

func TestScheduleDaysOverlap(t *testing.T) {
	cases := []struct {
		name    string
		a, b    string
		overlap bool
	}{
		{"shared weekday", "MWF 9:00-10:00", "WF 13:00-14:00", true},
		{"disjoint days", "MWF 9:00-10:00", "T 9:00-10:00", false},
		{"thursday code shares T with tuesday", "TTh 11:00-12:30", "T 8:00-9:00", true},
		{"empty schedule never conflicts", "", "MWF 9:00-10:00", false},
		{"identical days", "MW 10:00-11:00", "MW 15:00-16:00", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlap, scheduleDaysOverlap(tc.a, tc.b))
		})
	}
}
