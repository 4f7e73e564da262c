package dto

import (
	"time"

	"github.com/spec-kit/result-service/internal/domain"
)

// UploadResultRequest is one element of the POST /results array.
type UploadResultRequest struct {
	StudentID int64    `json:"studentId"`
	CourseID  int64    `json:"courseId"`
	CAScore   *float64 `json:"caScore"`
	ExamScore *float64 `json:"examScore"`
	Term      string   `json:"term"`
	Year      int      `json:"year"`
}

// ResultResponse renders a result record.
type ResultResponse struct {
	ID         int64               `json:"id"`
	StudentID  int64               `json:"studentId"`
	CourseID   int64               `json:"courseId"`
	LecturerID int64               `json:"lecturerId"`
	CAScore    *float64            `json:"caScore"`
	ExamScore  *float64            `json:"examScore"`
	Status     domain.ResultStatus `json:"status"`
	Term       string              `json:"term"`
	Year       int                 `json:"year"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// TransitionResponse summarizes an applied batch.
type TransitionResponse struct {
	Status domain.ResultStatus `json:"status"`
	Count  int                 `json:"count"`
	IDs    []int64             `json:"ids"`
}

// StatusChangeResponse renders one history row.
type StatusChangeResponse struct {
	ID            int64               `json:"id"`
	ResultID      int64               `json:"resultId"`
	FromStatus    domain.ResultStatus `json:"fromStatus"`
	ToStatus      domain.ResultStatus `json:"toStatus"`
	ChangedBy     int64               `json:"changedBy"`
	ChangedByRole domain.Role         `json:"changedByRole"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// NewResultResponses maps results for output.
func NewResultResponses(results []domain.Result) []ResultResponse {
	out := make([]ResultResponse, len(results))
	for i, r := range results {
		out[i] = ResultResponse{
			ID:         r.ID,
			StudentID:  r.StudentID,
			CourseID:   r.CourseID,
			LecturerID: r.LecturerID,
			CAScore:    r.CAScore,
			ExamScore:  r.ExamScore,
			Status:     r.Status,
			Term:       r.Term,
			Year:       r.Year,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return out
}

// NewStatusChangeResponses maps history rows for output.
func NewStatusChangeResponses(changes []domain.StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, len(changes))
	for i, c := range changes {
		out[i] = StatusChangeResponse{
			ID:            c.ID,
			ResultID:      c.ResultID,
			FromStatus:    c.FromStatus,
			ToStatus:      c.ToStatus,
			ChangedBy:     c.ChangedBy,
			ChangedByRole: c.ChangedByRole,
			CreatedAt:     c.CreatedAt,
		}
	}
	return out
}
