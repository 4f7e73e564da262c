package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/result-service/internal/domain"
	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

// Operation names a protected action for the role policy.
type Operation string

const (
	OpUploadResults     Operation = "results.upload"
	OpSubmitResults     Operation = "results.submit"
	OpDepartmentApprove Operation = "results.department_approve"
	OpFacultyApprove    Operation = "results.faculty_approve"
	OpFinalApprove      Operation = "results.final_approve"
	OpListOwnResults    Operation = "results.list_mine"
	OpListPending       Operation = "results.list_pending"
	OpViewStudentResult Operation = "results.student_view"
	OpViewHistory       Operation = "results.history"
	OpViewProfile       Operation = "auth.me"
)

// Policy maps every protected operation to the roles allowed to call it.
var Policy = map[Operation][]domain.Role{
	OpUploadResults:     {domain.RoleLecturer},
	OpSubmitResults:     {domain.RoleLecturer},
	OpDepartmentApprove: {domain.RoleHOD},
	OpFacultyApprove:    {domain.RoleDean},
	OpFinalApprove:      {domain.RoleExamOfficer},
	OpListOwnResults:    {domain.RoleLecturer},
	OpListPending:       {domain.RoleHOD, domain.RoleDean, domain.RoleExamOfficer},
	OpViewStudentResult: {domain.RoleStudent},
	OpViewHistory:       {domain.RoleLecturer, domain.RoleHOD, domain.RoleDean, domain.RoleExamOfficer, domain.RoleAdmin},
	OpViewProfile:       domain.AllRoles,
}

// Authorize reports whether caller appears in allowed. An empty list allows nobody.
func Authorize(allowed []domain.Role, caller domain.Role) bool {
	if !caller.Valid() {
		return false
	}
	for _, role := range allowed {
		if role == caller {
			return true
		}
	}
	return false
}

// Allowed checks caller against the policy entry for op. Unknown operations are denied.
func Allowed(op Operation, caller domain.Role) bool {
	return Authorize(Policy[op], caller)
}

// RequireOperation rejects callers whose role is not allowed to perform op.
// It must run after AuthMiddleware.Handle.
func RequireOperation(op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("missing token")
		}
		if !Allowed(op, principal.Role) {
			return apperrors.NewForbidden("insufficient role", map[string]any{
				"operation": op,
				"role":      principal.Role,
			})
		}
		return c.Next()
	}
}
