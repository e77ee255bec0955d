package service

import (
	"fmt"
	"strings"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

// EnrollmentSnapshot is the state the conflict checks evaluate. It is
// assembled once per request; the checks never re-read storage, so all
// of them see the same view.
type EnrollmentSnapshot struct {
	// Course is the course the student wants to join.
	Course *models.Course
	// StudentEnrollments are the student's enrollments in status
	// "enrolled" for the requested semester, including any for the
	// requested course itself.
	StudentEnrollments []models.Enrollment
	// EnrolledCourses maps course ID to course for every course in
	// StudentEnrollments, used by the schedule comparison.
	EnrolledCourses map[string]models.Course
	// CompletedCourseIDs holds the courses the student has passed
	// (submitted grade, letter A through D).
	CompletedCourseIDs map[string]struct{}
	// PrerequisiteNames maps prerequisite course IDs to display names
	// for error details; missing entries fall back to the raw ID.
	PrerequisiteNames map[string]string
}

// CheckEnrollment runs the conflict checks against the snapshot and
// returns the first blocking violation. Order is significant and fixed:
// duplicate, capacity, prerequisites, then schedule.
func CheckEnrollment(courseID string, snap EnrollmentSnapshot) error {
	if err := checkDuplicate(courseID, snap.StudentEnrollments); err != nil {
		return err
	}
	if err := checkCapacity(snap.Course); err != nil {
		return err
	}
	if err := checkPrerequisites(snap.Course, snap.CompletedCourseIDs, snap.PrerequisiteNames); err != nil {
		return err
	}
	return checkSchedule(snap.Course, snap.StudentEnrollments, snap.EnrolledCourses)
}

func checkDuplicate(courseID string, enrollments []models.Enrollment) error {
	for _, e := range enrollments {
		if e.CourseID == courseID {
			return appErrors.ErrAlreadyEnrolled
		}
	}
	return nil
}

func checkCapacity(course *models.Course) error {
	if course.EnrolledCount >= course.Capacity {
		return appErrors.ErrCourseFull
	}
	return nil
}

func checkPrerequisites(course *models.Course, completed map[string]struct{}, names map[string]string) error {
	for _, prereq := range course.Prerequisites {
		if _, ok := completed[prereq]; ok {
			continue
		}
		name := names[prereq]
		if name == "" {
			name = prereq
		}
		return appErrors.Clone(appErrors.ErrPrerequisiteNotMet, fmt.Sprintf("prerequisite not met: %s", name))
	}
	return nil
}

func checkSchedule(course *models.Course, enrollments []models.Enrollment, courses map[string]models.Course) error {
	for _, e := range enrollments {
		other, ok := courses[e.CourseID]
		if !ok {
			continue
		}
		if scheduleDaysOverlap(course.Schedule, other.Schedule) {
			name := other.Name
			if name == "" {
				name = other.ID
			}
			return appErrors.Clone(appErrors.ErrScheduleConflict, fmt.Sprintf("time conflict with %s", name))
		}
	}
	return nil
}

// scheduleDaysOverlap compares only the first whitespace-delimited token
// of each schedule string, treated as a set of day letters, e.g.
// "MWF 9:00-10:00" vs "TTh 11:00-12:30". Time-of-day is ignored; any
// shared character counts as a conflict. This reproduces the historical
// behavior, including its treatment of multi-letter day codes like "Th".
func scheduleDaysOverlap(a, b string) bool {
	daysA := firstToken(a)
	daysB := firstToken(b)
	if daysA == "" || daysB == "" {
		return false
	}
	for _, day := range daysA {
		if strings.ContainsRune(daysB, day) {
			return true
		}
	}
	return false
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
