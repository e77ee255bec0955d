package models

// CourseEnrollmentStat is one row of the enrollment statistics report.
type CourseEnrollmentStat struct {
	CourseCode         string  `json:"course_code"`
	CourseName         string  `json:"course_name"`
	Department         string  `json:"department"`
	Capacity           int     `json:"capacity"`
	Enrolled           int     `json:"enrolled"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Instructor         string  `json:"instructor"`
}

// EnrollmentStatsSummary aggregates the stats report.
type EnrollmentStatsSummary struct {
	TotalCapacity      int     `json:"total_capacity"`
	TotalEnrolled      int     `json:"total_enrolled"`
	AverageUtilization float64 `json:"average_utilization"`
}

// EnrollmentStatsReport is the department-filterable utilization report.
type EnrollmentStatsReport struct {
	TotalCourses int                    `json:"total_courses"`
	Courses      []CourseEnrollmentStat `json:"courses"`
	Summary      EnrollmentStatsSummary `json:"summary"`
}

// FacultyCourseLoad is one course taught by a faculty member.
type FacultyCourseLoad struct {
	CourseCode       string `json:"course_code"`
	CourseName       string `json:"course_name"`
	EnrolledStudents int    `json:"enrolled_students"`
}

// FacultyWorkload aggregates enrolled head count per instructor.
type FacultyWorkload struct {
	InstructorID   string              `json:"instructor_id"`
	InstructorName string              `json:"instructor_name"`
	Courses        []FacultyCourseLoad `json:"courses"`
	TotalStudents  int                 `json:"total_students"`
	TotalCourses   int                 `json:"total_courses"`
}

// CoursePopularity scores demand as utilization plus a waitlist bonus.
type CoursePopularity struct {
	CourseCode         string  `json:"course_code"`
	CourseName         string  `json:"course_name"`
	Department         string  `json:"department"`
	EnrolledStudents   int     `json:"enrolled_students"`
	Capacity           int     `json:"capacity"`
	UtilizationPercent float64 `json:"utilization_percent"`
	WaitlistedStudents int     `json:"waitlisted_students"`
	PopularityScore    float64 `json:"popularity_score"`
}

// HighUtilizationReport lists courses at or above a utilization threshold.
type HighUtilizationReport struct {
	Threshold             float64                `json:"threshold"`
	CoursesAboveThreshold int                    `json:"courses_above_threshold"`
	Courses               []CourseEnrollmentStat `json:"courses"`
}
