package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/result-service/internal/api/dto"
	"github.com/spec-kit/result-service/internal/auth"
	"github.com/spec-kit/result-service/internal/domain"
	"github.com/spec-kit/result-service/internal/service"
	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

type transitionFunc func(context.Context, domain.Principal, []int64) (*service.TransitionSummary, error)

// ResultsHandler exposes the approval workflow.
type ResultsHandler struct {
	results *service.ResultService
}

// NewResultsHandler constructs handler.
func NewResultsHandler(results *service.ResultService) *ResultsHandler {
	return &ResultsHandler{results: results}
}

// Upload handles POST /results.
func (h *ResultsHandler) Upload(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}

	var req []dto.UploadResultRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body must be an array of results", nil)
	}

	rows := make([]service.UploadRow, len(req))
	for i, r := range req {
		rows[i] = service.UploadRow{
			StudentID: r.StudentID,
			CourseID:  r.CourseID,
			CAScore:   r.CAScore,
			ExamScore: r.ExamScore,
			Term:      r.Term,
			Year:      r.Year,
		}
	}

	created, err := h.results.Upload(c.UserContext(), caller, rows)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewResultResponses(created)})
}

// Submit handles PUT /results/submit.
func (h *ResultsHandler) Submit(c *fiber.Ctx) error {
	return h.transition(c, h.results.Submit)
}

// DepartmentApprove handles PUT /results/department-approve.
func (h *ResultsHandler) DepartmentApprove(c *fiber.Ctx) error {
	return h.transition(c, h.results.DepartmentApprove)
}

// FacultyApprove handles PUT /results/faculty-approve.
func (h *ResultsHandler) FacultyApprove(c *fiber.Ctx) error {
	return h.transition(c, h.results.FacultyApprove)
}

// FinalApprove handles PUT /results/final-approve.
func (h *ResultsHandler) FinalApprove(c *fiber.Ctx) error {
	return h.transition(c, h.results.FinalApprove)
}

func (h *ResultsHandler) transition(c *fiber.Ctx, apply transitionFunc) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}

	var req dto.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ids, err := req.ParseIDs()
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"fields": map[string]string{"ids": err.Error()}})
	}

	summary, err := apply(c.UserContext(), caller, ids)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{
		Status: summary.Status,
		Count:  len(summary.IDs),
		IDs:    summary.IDs,
	}})
}

// Mine handles GET /results/mine.
func (h *ResultsHandler) Mine(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.results.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResultResponses(list)})
}

// Pending handles GET /results/pending.
func (h *ResultsHandler) Pending(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.results.ListPending(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResultResponses(list)})
}

// ForStudent handles GET /results/student/:id.
func (h *ResultsHandler) ForStudent(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	studentID, err := pathID(c)
	if err != nil {
		return err
	}
	list, err := h.results.ListForStudent(c.UserContext(), caller, studentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResultResponses(list)})
}

// History handles GET /results/:id/history.
func (h *ResultsHandler) History(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	resultID, err := pathID(c)
	if err != nil {
		return err
	}
	history, err := h.results.History(c.UserContext(), caller, resultID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusChangeResponses(history)})
}

func principal(c *fiber.Ctx) (domain.Principal, error) {
	caller, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("missing token")
	}
	return caller, nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"fields": map[string]string{"id": "must be a positive integer"}})
	}
	return int64(id), nil
}
