package models

import "time"

// GradeStatus tracks whether a grade has been finalized by faculty.
type GradeStatus string

const (
	GradeStatusPending   GradeStatus = "pending"
	GradeStatusSubmitted GradeStatus = "submitted"
)

// PassingGrades are the letters that satisfy a prerequisite once the
// grade is in status submitted.
var PassingGrades = map[string]struct{}{
	"A": {}, "B": {}, "C": {}, "D": {},
}

// ValidGradeLetters enumerates the grade letters faculty may submit.
var ValidGradeLetters = map[string]struct{}{
	"A": {}, "B": {}, "C": {}, "D": {}, "F": {}, "I": {}, "W": {},
}

// Grade represents a grade record for a student in a course.
type Grade struct {
	ID            string      `db:"id" json:"id"`
	StudentID     string      `db:"student_id" json:"student_id"`
	CourseID      string      `db:"course_id" json:"course_id"`
	Grade         string      `db:"grade" json:"grade"`
	Semester      string      `db:"semester" json:"semester"`
	Status        GradeStatus `db:"status" json:"status"`
	SubmittedBy   string      `db:"submitted_by" json:"submitted_by"`
	SubmittedDate *time.Time  `db:"submitted_date" json:"submitted_date,omitempty"`
}
