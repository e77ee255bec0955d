package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

type reportStoreFake struct {
	courses    []models.Course
	waitlisted map[string]int
	users      map[string]*models.User
}

func (f *reportStoreFake) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if filter.Department == "" {
		return f.courses, nil
	}
	var out []models.Course
	for _, c := range f.courses {
		if c.Department == filter.Department {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *reportStoreFake) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range f.courses {
		if c.InstructorID == instructorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *reportStoreFake) CountWaitlistedByCourse(ctx context.Context, courseID string) (int, error) {
	return f.waitlisted[courseID], nil
}

func (f *reportStoreFake) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newReportFake() *reportStoreFake {
	return &reportStoreFake{
		courses: []models.Course{
			{ID: "cs101", CourseCode: "CS101", Name: "Intro CS", Department: "CS",
				Capacity: 30, EnrolledCount: 27, InstructorID: "fac-1", InstructorName: "Grace Hopper"},
			{ID: "cs201", CourseCode: "CS201", Name: "Data Structures", Department: "CS",
				Capacity: 20, EnrolledCount: 20, InstructorID: "fac-1", InstructorName: "Grace Hopper"},
			{ID: "hist110", CourseCode: "HIST110", Name: "World History", Department: "History",
				Capacity: 40, EnrolledCount: 10, InstructorID: "fac-2", InstructorName: "Howard Zinn"},
		},
		waitlisted: map[string]int{"cs201": 3},
		users: map[string]*models.User{
			"fac-1": {ID: "fac-1", Role: models.RoleFaculty, FullName: "Grace Hopper"},
		},
	}
}

func TestEnrollmentStatsMath(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.EnrollmentStats(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalCourses)
	assert.Equal(t, 90, report.Summary.TotalCapacity)
	assert.Equal(t, 57, report.Summary.TotalEnrolled)
	// Mean of the per-course percentages: (90 + 100 + 25) / 3.
	assert.InDelta(t, 71.67, report.Summary.AverageUtilization, 0.001)

	assert.InDelta(t, 90.0, report.Courses[0].UtilizationPercent, 0.001)
	assert.InDelta(t, 100.0, report.Courses[1].UtilizationPercent, 0.001)
	assert.InDelta(t, 25.0, report.Courses[2].UtilizationPercent, 0.001)
}

func TestEnrollmentStatsAverageUnweighted(t *testing.T) {
	// A full 10-seat seminar and an empty 90-seat lecture average to 50%,
	// regardless of how lopsided the capacities are.
	fake := &reportStoreFake{courses: []models.Course{
		{ID: "sem", Capacity: 10, EnrolledCount: 10},
		{ID: "lec", Capacity: 90, EnrolledCount: 0},
	}}
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.EnrollmentStats(context.Background(), "")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, report.Summary.AverageUtilization, 0.001)
}

func TestEnrollmentStatsDepartmentFilter(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.EnrollmentStats(context.Background(), "History")
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalCourses)
	assert.Equal(t, "HIST110", report.Courses[0].CourseCode)
}

func TestEnrollmentStatsZeroCapacity(t *testing.T) {
	fake := &reportStoreFake{courses: []models.Course{{ID: "x", Capacity: 0, EnrolledCount: 5}}}
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.EnrollmentStats(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, report.Courses[0].UtilizationPercent)
	assert.Zero(t, report.Summary.AverageUtilization)
}

func TestFacultyWorkloadTotals(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	workload, err := svc.FacultyWorkload(context.Background(), "fac-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", workload.InstructorName)
	assert.Equal(t, 2, workload.TotalCourses)
	assert.Equal(t, 47, workload.TotalStudents)
}

func TestAllFacultyWorkloadsGroupsByInstructor(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	workloads, err := svc.AllFacultyWorkloads(context.Background())
	require.NoError(t, err)
	require.Len(t, workloads, 2)

	assert.Equal(t, "Grace Hopper", workloads[0].InstructorName)
	assert.Equal(t, 2, workloads[0].TotalCourses)
	assert.Equal(t, 47, workloads[0].TotalStudents)

	assert.Equal(t, "Howard Zinn", workloads[1].InstructorName)
	assert.Equal(t, 1, workloads[1].TotalCourses)
	assert.Equal(t, 10, workloads[1].TotalStudents)
}

func TestAllFacultyWorkloadsEmptyCatalog(t *testing.T) {
	fake := &reportStoreFake{}
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	workloads, err := svc.AllFacultyWorkloads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workloads)
}

func TestFacultyWorkloadUnknownInstructor(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	_, err := svc.FacultyWorkload(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrCode(t, err))
}

func TestCoursePopularityScoring(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	ranking, err := svc.CoursePopularity(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ranking, 3)

	// cs201: 100% + 3 waitlisted * 10 = 130, ranked first.
	assert.Equal(t, "CS201", ranking[0].CourseCode)
	assert.InDelta(t, 130.0, ranking[0].PopularityScore, 0.001)
	assert.Equal(t, "CS101", ranking[1].CourseCode)
	assert.InDelta(t, 90.0, ranking[1].PopularityScore, 0.001)
}

func TestCoursePopularityLimit(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	ranking, err := svc.CoursePopularity(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, "CS201", ranking[0].CourseCode)
}

func TestHighUtilizationDefaultThreshold(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.HighUtilization(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultUtilizationThreshold, report.Threshold)
	// 90% makes the cut at the default threshold, inclusive.
	assert.Equal(t, 2, report.CoursesAboveThreshold)
}

func TestHighUtilizationCustomThreshold(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.HighUtilization(context.Background(), 95)
	require.NoError(t, err)
	require.Equal(t, 1, report.CoursesAboveThreshold)
	assert.Equal(t, "CS201", report.Courses[0].CourseCode)
}

func TestEnrollmentStatsDataset(t *testing.T) {
	fake := newReportFake()
	svc := NewReportService(fake, fake, fake, nil, 0, nil)

	report, err := svc.EnrollmentStats(context.Background(), "")
	require.NoError(t, err)

	data := EnrollmentStatsDataset(report)
	require.Len(t, data.Rows, 3)
	assert.Equal(t, "CS101", data.Rows[0]["Course Code"])
	assert.Equal(t, "90.00", data.Rows[0]["Utilization %"])
}
