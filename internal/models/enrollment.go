package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Enrollments are never deleted, only
// status-transitioned: enrolled -> dropped is terminal. The waitlisted
// status is referenced by reporting and notification paths but no
// operation currently creates or promotes it.
const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped    EnrollmentStatus = "dropped"
	EnrollmentStatusWaitlisted EnrollmentStatus = "waitlisted"
)

// Enrollment captures a student's registration to a course for a semester.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	CourseID       string           `db:"course_id" json:"course_id"`
	Semester       string           `db:"semester" json:"semester"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
}

// RosterEntry joins an enrolled enrollment to its student record.
type RosterEntry struct {
	StudentID      string    `db:"student_id" json:"student_id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
}

// StudentSchedule lists the courses a student is enrolled in for a semester.
type StudentSchedule struct {
	StudentID string   `json:"student_id"`
	Semester  string   `json:"semester"`
	Courses   []Course `json:"courses"`
}
