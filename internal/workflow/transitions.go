package workflow

import (
	"github.com/spec-kit/result-service/internal/domain"
)

// Name identifies a forward edge of the pipeline.
type Name string

const (
	Submit            Name = "submit"
	DepartmentApprove Name = "department-approve"
	FacultyApprove    Name = "faculty-approve"
	FinalApprove      Name = "final-approve"
)

// Transition is one edge: records in From move to To when Role asks for it.
// RequireOwner limits the edge to records created by the caller.
type Transition struct {
	Name         Name
	From         domain.ResultStatus
	To           domain.ResultStatus
	Role         domain.Role
	RequireOwner bool
}

var stages = []domain.ResultStatus{
	domain.ResultStatusDraft,
	domain.ResultStatusSubmitted,
	domain.ResultStatusDeptApproved,
	domain.ResultStatusFacultyApproved,
	domain.ResultStatusPublished,
}

var transitions = []Transition{
	{Name: Submit, From: domain.ResultStatusDraft, To: domain.ResultStatusSubmitted, Role: domain.RoleLecturer, RequireOwner: true},
	{Name: DepartmentApprove, From: domain.ResultStatusSubmitted, To: domain.ResultStatusDeptApproved, Role: domain.RoleHOD},
	{Name: FacultyApprove, From: domain.ResultStatusDeptApproved, To: domain.ResultStatusFacultyApproved, Role: domain.RoleDean},
	{Name: FinalApprove, From: domain.ResultStatusFacultyApproved, To: domain.ResultStatusPublished, Role: domain.RoleExamOfficer},
}

// Stages returns the pipeline stages in order.
func Stages() []domain.ResultStatus {
	return append([]domain.ResultStatus(nil), stages...)
}

// Transitions returns every edge in pipeline order.
func Transitions() []Transition {
	return append([]Transition(nil), transitions...)
}

// Lookup returns the transition registered under name.
func Lookup(name Name) (Transition, bool) {
	for _, t := range transitions {
		if t.Name == name {
			return t, true
		}
	}
	return Transition{}, false
}

// Next returns the stage that directly follows status.
func Next(status domain.ResultStatus) (domain.ResultStatus, bool) {
	for i, s := range stages {
		if s == status && i+1 < len(stages) {
			return stages[i+1], true
		}
	}
	return "", false
}

// IsValidTransition reports whether to is the immediate successor of from.
func IsValidTransition(from, to domain.ResultStatus) bool {
	next, ok := Next(from)
	return ok && next == to
}

// ValidStatus reports whether status is a pipeline stage.
func ValidStatus(status domain.ResultStatus) bool {
	for _, s := range stages {
		if s == status {
			return true
		}
	}
	return false
}

// PendingStatusFor returns the stage waiting on role, if role approves anything.
func PendingStatusFor(role domain.Role) (domain.ResultStatus, bool) {
	for _, t := range transitions {
		if t.Role == role && !t.RequireOwner {
			return t.From, true
		}
	}
	return "", false
}
