package models

import "github.com/lib/pq"

// Course represents an offered course. The enrolled_count column is a
// derived counter kept consistent with the number of enrollments in
// status "enrolled"; it is maintained incrementally by the enrollment
// write paths rather than recomputed.
//
// Capacity is a soft limit: the normal enrollment path rejects when the
// counter reaches it, but the admin override path may push past it, so
// no storage-level constraint enforces enrolled_count <= capacity.
type Course struct {
	ID             string         `db:"id" json:"id"`
	CourseCode     string         `db:"course_code" json:"course_code"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	InstructorID   string         `db:"instructor_id" json:"instructor_id"`
	InstructorName string         `db:"instructor_name" json:"instructor_name"`
	Capacity       int            `db:"capacity" json:"capacity"`
	EnrolledCount  int            `db:"enrolled_count" json:"enrolled_count"`
	Schedule       string         `db:"schedule" json:"schedule"`
	Location       string         `db:"location" json:"location"`
	Prerequisites  pq.StringArray `db:"prerequisites" json:"prerequisites"`
	Department     string         `db:"department" json:"department"`
	Credits        int            `db:"credits" json:"credits"`
}

// CourseFilter provides catalogue browse filters. Department matches
// exactly (case-insensitive); Instructor and Keyword are substring
// matches against instructor name and name/description/code.
type CourseFilter struct {
	Department string
	Instructor string
	Keyword    string
}
