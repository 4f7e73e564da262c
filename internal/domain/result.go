package domain

import "time"

// ResultStatus is a stage in the approval pipeline.
type ResultStatus string

const (
	ResultStatusDraft           ResultStatus = "draft"
	ResultStatusSubmitted       ResultStatus = "submitted"
	ResultStatusDeptApproved    ResultStatus = "dept_approved"
	ResultStatusFacultyApproved ResultStatus = "faculty_approved"
	ResultStatusPublished       ResultStatus = "published"
)

// Score bounds applied to both assessment components.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Result is a student's mark for one course in one period.
type Result struct {
	ID         int64
	StudentID  int64
	CourseID   int64
	LecturerID int64
	CAScore    *float64
	ExamScore  *float64
	Status     ResultStatus
	Term       string
	Year       int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusChange is an immutable audit entry written alongside each transition.
type StatusChange struct {
	ID            int64
	ResultID      int64
	FromStatus    ResultStatus
	ToStatus      ResultStatus
	ChangedBy     int64
	ChangedByRole Role
	CreatedAt     time.Time
}
