package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/export"
)

// DefaultUtilizationThreshold is the cutoff for the high-utilization
// report when the caller does not supply one.
const DefaultUtilizationThreshold = 90.0

// DefaultPopularityLimit caps the popularity ranking when unspecified.
const DefaultPopularityLimit = 10

type reportCourseReader interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
}

type waitlistCounter interface {
	CountWaitlistedByCourse(ctx context.Context, courseID string) (int, error)
}

// ReportService computes the aggregate projections over the catalogue and
// its counters. Reports read the maintained enrolled_count column rather
// than re-counting enrollment rows. Results are cached in Redis with a
// TTL; staleness up to the TTL is accepted for reporting.
type ReportService struct {
	courses  reportCourseReader
	waitlist waitlistCounter
	users    userReader
	cache    CacheStore
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs ReportService. A nil cache disables report
// caching.
func NewReportService(courses reportCourseReader, waitlist waitlistCounter, users userReader, cache CacheStore, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{courses: courses, waitlist: waitlist, users: users, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// EnrollmentStats reports per-course seat utilization, optionally scoped
// to one department.
func (s *ReportService) EnrollmentStats(ctx context.Context, department string) (*models.EnrollmentStatsReport, error) {
	key := fmt.Sprintf("report:stats:dept=%s", department)
	var cached models.EnrollmentStatsReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	courses, err := s.courses.List(ctx, models.CourseFilter{Department: department})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	report := &models.EnrollmentStatsReport{
		TotalCourses: len(courses),
		Courses:      make([]models.CourseEnrollmentStat, 0, len(courses)),
	}
	var utilizationSum float64
	for _, course := range courses {
		stat := courseStat(course)
		report.Courses = append(report.Courses, stat)
		report.Summary.TotalCapacity += course.Capacity
		report.Summary.TotalEnrolled += course.EnrolledCount
		utilizationSum += stat.UtilizationPercent
	}
	// Unweighted mean of the per-course percentages, so a tiny full
	// seminar pulls the average up as much as a full lecture hall.
	if len(courses) > 0 {
		report.Summary.AverageUtilization = round2(utilizationSum / float64(len(courses)))
	}

	s.cacheSet(ctx, key, report)
	return report, nil
}

// FacultyWorkload reports head count per course for one instructor.
func (s *ReportService) FacultyWorkload(ctx context.Context, instructorID string) (*models.FacultyWorkload, error) {
	key := fmt.Sprintf("report:workload:%s", instructorID)
	var cached models.FacultyWorkload
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	instructor, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}

	courses, err := s.courses.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}

	workload := &models.FacultyWorkload{
		InstructorID:   instructor.ID,
		InstructorName: instructor.FullName,
		Courses:        make([]models.FacultyCourseLoad, 0, len(courses)),
		TotalCourses:   len(courses),
	}
	for _, course := range courses {
		workload.Courses = append(workload.Courses, models.FacultyCourseLoad{
			CourseCode:       course.CourseCode,
			CourseName:       course.Name,
			EnrolledStudents: course.EnrolledCount,
		})
		workload.TotalStudents += course.EnrolledCount
	}

	s.cacheSet(ctx, key, workload)
	return workload, nil
}

// AllFacultyWorkloads reports head count per course for every instructor
// with at least one course, grouped from the course catalog.
func (s *ReportService) AllFacultyWorkloads(ctx context.Context) ([]models.FacultyWorkload, error) {
	key := "report:workload:all"
	var cached []models.FacultyWorkload
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	courses, err := s.courses.List(ctx, models.CourseFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	byInstructor := make(map[string]*models.FacultyWorkload)
	var order []string
	for _, course := range courses {
		workload, ok := byInstructor[course.InstructorID]
		if !ok {
			workload = &models.FacultyWorkload{
				InstructorID:   course.InstructorID,
				InstructorName: course.InstructorName,
			}
			byInstructor[course.InstructorID] = workload
			order = append(order, course.InstructorID)
		}
		workload.Courses = append(workload.Courses, models.FacultyCourseLoad{
			CourseCode:       course.CourseCode,
			CourseName:       course.Name,
			EnrolledStudents: course.EnrolledCount,
		})
		workload.TotalStudents += course.EnrolledCount
		workload.TotalCourses++
	}

	workloads := make([]models.FacultyWorkload, 0, len(order))
	for _, id := range order {
		workloads = append(workloads, *byInstructor[id])
	}

	s.cacheSet(ctx, key, workloads)
	return workloads, nil
}

// CoursePopularity ranks courses by utilization plus a waitlist bonus of
// ten points per waitlisted student, highest first.
func (s *ReportService) CoursePopularity(ctx context.Context, limit int) ([]models.CoursePopularity, error) {
	if limit <= 0 {
		limit = DefaultPopularityLimit
	}
	key := fmt.Sprintf("report:popularity:limit=%d", limit)
	var cached []models.CoursePopularity
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	courses, err := s.courses.List(ctx, models.CourseFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	ranking := make([]models.CoursePopularity, 0, len(courses))
	for _, course := range courses {
		waitlisted, err := s.waitlist.CountWaitlistedByCourse(ctx, course.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlisted students")
		}
		util := utilization(course.EnrolledCount, course.Capacity)
		ranking = append(ranking, models.CoursePopularity{
			CourseCode:         course.CourseCode,
			CourseName:         course.Name,
			Department:         course.Department,
			EnrolledStudents:   course.EnrolledCount,
			Capacity:           course.Capacity,
			UtilizationPercent: util,
			WaitlistedStudents: waitlisted,
			PopularityScore:    round2(util + 10*float64(waitlisted)),
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].PopularityScore > ranking[j].PopularityScore
	})
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}

	s.cacheSet(ctx, key, ranking)
	return ranking, nil
}

// HighUtilization lists courses at or above the threshold, defaulting to
// ninety percent.
func (s *ReportService) HighUtilization(ctx context.Context, threshold float64) (*models.HighUtilizationReport, error) {
	if threshold <= 0 {
		threshold = DefaultUtilizationThreshold
	}
	key := fmt.Sprintf("report:highutil:threshold=%s", strconv.FormatFloat(threshold, 'f', -1, 64))
	var cached models.HighUtilizationReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	courses, err := s.courses.List(ctx, models.CourseFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	report := &models.HighUtilizationReport{Threshold: threshold, Courses: []models.CourseEnrollmentStat{}}
	for _, course := range courses {
		stat := courseStat(course)
		if stat.UtilizationPercent >= threshold {
			report.Courses = append(report.Courses, stat)
		}
	}
	report.CoursesAboveThreshold = len(report.Courses)

	s.cacheSet(ctx, key, report)
	return report, nil
}

// EnrollmentStatsDataset converts the stats report for CSV or PDF export.
func EnrollmentStatsDataset(report *models.EnrollmentStatsReport) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Department", "Capacity", "Enrolled", "Utilization %", "Instructor"},
		Rows:    make([]map[string]string, 0, len(report.Courses)),
	}
	for _, stat := range report.Courses {
		data.Rows = append(data.Rows, map[string]string{
			"Course Code":   stat.CourseCode,
			"Course Name":   stat.CourseName,
			"Department":    stat.Department,
			"Capacity":      strconv.Itoa(stat.Capacity),
			"Enrolled":      strconv.Itoa(stat.Enrolled),
			"Utilization %": strconv.FormatFloat(stat.UtilizationPercent, 'f', 2, 64),
			"Instructor":    stat.Instructor,
		})
	}
	return data
}

// FacultyWorkloadDataset converts a workload report for export.
func FacultyWorkloadDataset(workload *models.FacultyWorkload) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Enrolled Students"},
		Rows:    make([]map[string]string, 0, len(workload.Courses)),
	}
	for _, load := range workload.Courses {
		data.Rows = append(data.Rows, map[string]string{
			"Course Code":       load.CourseCode,
			"Course Name":       load.CourseName,
			"Enrolled Students": strconv.Itoa(load.EnrolledStudents),
		})
	}
	return data
}

// AllFacultyWorkloadsDataset flattens the per-instructor workloads for export,
// one row per instructor/course pair.
func AllFacultyWorkloadsDataset(workloads []models.FacultyWorkload) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Instructor", "Course Code", "Course Name", "Enrolled Students"},
	}
	for _, workload := range workloads {
		for _, load := range workload.Courses {
			data.Rows = append(data.Rows, map[string]string{
				"Instructor":        workload.InstructorName,
				"Course Code":       load.CourseCode,
				"Course Name":       load.CourseName,
				"Enrolled Students": strconv.Itoa(load.EnrolledStudents),
			})
		}
	}
	return data
}

// CoursePopularityDataset converts a popularity ranking for export.
func CoursePopularityDataset(ranking []models.CoursePopularity) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Department", "Enrolled", "Capacity", "Waitlisted", "Popularity"},
		Rows:    make([]map[string]string, 0, len(ranking)),
	}
	for _, entry := range ranking {
		data.Rows = append(data.Rows, map[string]string{
			"Course Code": entry.CourseCode,
			"Course Name": entry.CourseName,
			"Department":  entry.Department,
			"Enrolled":    strconv.Itoa(entry.EnrolledStudents),
			"Capacity":    strconv.Itoa(entry.Capacity),
			"Waitlisted":  strconv.Itoa(entry.WaitlistedStudents),
			"Popularity":  strconv.FormatFloat(entry.PopularityScore, 'f', 2, 64),
		})
	}
	return data
}

func (s *ReportService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *ReportService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func courseStat(course models.Course) models.CourseEnrollmentStat {
	return models.CourseEnrollmentStat{
		CourseCode:         course.CourseCode,
		CourseName:         course.Name,
		Department:         course.Department,
		Capacity:           course.Capacity,
		Enrolled:           course.EnrolledCount,
		UtilizationPercent: utilization(course.EnrolledCount, course.Capacity),
		Instructor:         course.InstructorName,
	}
}

func utilization(enrolled, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return round2(float64(enrolled) / float64(capacity) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
