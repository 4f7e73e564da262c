package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/result-service/internal/domain"
	"github.com/spec-kit/result-service/internal/events"
	"github.com/spec-kit/result-service/internal/observability"
	"github.com/spec-kit/result-service/internal/repository"
	"github.com/spec-kit/result-service/internal/workflow"
	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

const (
	minYear = 2000
	maxYear = 2100
)

// UploadRow is one result line submitted by a lecturer.
type UploadRow struct {
	StudentID int64
	CourseID  int64
	CAScore   *float64
	ExamScore *float64
	Term      string
	Year      int
}

// RowError reports the invalid fields of one upload row.
type RowError struct {
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// TransitionSummary describes an applied batch transition.
type TransitionSummary struct {
	Transition workflow.Name
	Status     domain.ResultStatus
	IDs        []int64
}

// ResultService runs the approval workflow.
type ResultService struct {
	results    repository.ResultRepository
	identities repository.IdentityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ResultDependencies bundles collaborators for the result service.
type ResultDependencies struct {
	ResultRepo   repository.ResultRepository
	IdentityRepo repository.IdentityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewResultService constructs the service.
func NewResultService(deps ResultDependencies) *ResultService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:    deps.ResultRepo,
		identities: deps.IdentityRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Upload validates every row, then creates all of them as drafts owned by caller.
func (s *ResultService) Upload(ctx context.Context, caller domain.Principal, rows []UploadRow) ([]domain.Result, error) {
	if caller.Role != domain.RoleLecturer {
		return nil, apperrors.NewForbidden("only lecturers may upload results", nil)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewValidationError("at least one result row is required", nil)
	}
	if len(rows) > workflow.MaxBatchSize {
		return nil, apperrors.NewValidationError("too many result rows", map[string]any{"max_rows": workflow.MaxBatchSize})
	}

	rowErrors := make(map[int]map[string]string)
	addErr := func(i int, field, msg string) {
		if rowErrors[i] == nil {
			rowErrors[i] = map[string]string{}
		}
		rowErrors[i][field] = msg
	}

	studentIDs := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for i, row := range rows {
		if row.StudentID <= 0 {
			addErr(i, "studentId", "must be a positive integer")
		} else if _, ok := seen[row.StudentID]; !ok {
			seen[row.StudentID] = struct{}{}
			studentIDs = append(studentIDs, row.StudentID)
		}
		if row.CourseID <= 0 {
			addErr(i, "courseId", "must be a positive integer")
		}
		if !scoreInRange(row.CAScore) {
			addErr(i, "caScore", "must be between 0 and 100")
		}
		if !scoreInRange(row.ExamScore) {
			addErr(i, "examScore", "must be between 0 and 100")
		}
		if strings.TrimSpace(row.Term) == "" {
			addErr(i, "term", "required")
		}
		if row.Year < minYear || row.Year > maxYear {
			addErr(i, "year", "must be between 2000 and 2100")
		}
	}

	students, err := s.identities.GetByIDs(ctx, studentIDs)
	if err != nil {
		return nil, storeFailure(err)
	}
	for i, row := range rows {
		if row.StudentID <= 0 {
			continue
		}
		if student, ok := students[row.StudentID]; !ok || student.Role != domain.RoleStudent {
			addErr(i, "studentId", "unknown student")
		}
	}

	if len(rowErrors) > 0 {
		details := make([]RowError, 0, len(rowErrors))
		for i := range rows {
			if fields, ok := rowErrors[i]; ok {
				details = append(details, RowError{Index: i, Fields: fields})
			}
		}
		return nil, apperrors.NewValidationError("invalid result rows", map[string]any{"rows": details})
	}

	records := make([]*domain.Result, len(rows))
	for i, row := range rows {
		records[i] = &domain.Result{
			StudentID:  row.StudentID,
			CourseID:   row.CourseID,
			LecturerID: caller.IdentityID,
			CAScore:    row.CAScore,
			ExamScore:  row.ExamScore,
			Status:     domain.ResultStatusDraft,
			Term:       strings.TrimSpace(row.Term),
			Year:       row.Year,
		}
	}
	if err := s.results.CreateBatch(ctx, records); err != nil {
		return nil, storeFailure(err)
	}

	created := make([]domain.Result, len(records))
	ids := make([]int64, len(records))
	for i, rec := range records {
		created[i] = *rec
		ids[i] = rec.ID
	}

	s.metrics.RecordUpload(len(created))
	s.publish(ctx, events.NewEvent(events.EventResultUploaded, caller, ids, events.ResultUploadedPayload{
		Count:      len(created),
		StudentIDs: studentIDs,
	}))
	return created, nil
}

// Submit moves the caller's drafts to submitted.
func (s *ResultService) Submit(ctx context.Context, caller domain.Principal, ids []int64) (*TransitionSummary, error) {
	return s.advance(ctx, caller, workflow.Submit, ids)
}

// DepartmentApprove moves submitted results to dept_approved.
func (s *ResultService) DepartmentApprove(ctx context.Context, caller domain.Principal, ids []int64) (*TransitionSummary, error) {
	return s.advance(ctx, caller, workflow.DepartmentApprove, ids)
}

// FacultyApprove moves dept_approved results to faculty_approved.
func (s *ResultService) FacultyApprove(ctx context.Context, caller domain.Principal, ids []int64) (*TransitionSummary, error) {
	return s.advance(ctx, caller, workflow.FacultyApprove, ids)
}

// FinalApprove publishes faculty_approved results.
func (s *ResultService) FinalApprove(ctx context.Context, caller domain.Principal, ids []int64) (*TransitionSummary, error) {
	return s.advance(ctx, caller, workflow.FinalApprove, ids)
}

// advance applies one transition to the whole batch or to none of it.
func (s *ResultService) advance(ctx context.Context, caller domain.Principal, name workflow.Name, rawIDs []int64) (*TransitionSummary, error) {
	t, ok := workflow.Lookup(name)
	if !ok {
		return nil, apperrors.NewInternalError(errors.New("unknown transition " + string(name)))
	}
	if caller.Role != t.Role {
		return nil, apperrors.NewForbidden("insufficient role", map[string]any{
			"transition": t.Name,
			"role":       caller.Role,
		})
	}

	ids, err := workflow.NormalizeIDs(rawIDs)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"fields": map[string]string{"ids": err.Error()}})
	}

	records, err := s.results.GetByIDs(ctx, ids)
	if err != nil {
		s.metrics.RecordTransition(string(name), observability.OutcomeError)
		return nil, storeFailure(err)
	}

	if rejected := workflow.Evaluate(t, caller, ids, records); len(rejected) > 0 {
		s.metrics.RecordTransition(string(name), observability.OutcomeRejected)
		details := map[string]any{
			"transition":      t.Name,
			"expected_status": t.From,
			"rejected":        rejected,
		}
		if workflow.HasReason(rejected, workflow.ReasonNotOwner) {
			return nil, apperrors.NewForbidden("results not owned by caller", details)
		}
		return nil, apperrors.NewConflict("results not in expected status", details)
	}

	req := repository.TransitionRequest{
		IDs:       ids,
		From:      t.From,
		To:        t.To,
		ActorID:   caller.IdentityID,
		ActorRole: caller.Role,
	}
	if t.RequireOwner {
		req.OwnerID = caller.IdentityID
	}
	if err := s.results.Transition(ctx, req); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			s.metrics.RecordTransition(string(name), observability.OutcomeConflict)
			return nil, apperrors.NewConflict("results changed concurrently", map[string]any{
				"transition":      t.Name,
				"expected_status": t.From,
			})
		}
		s.metrics.RecordTransition(string(name), observability.OutcomeError)
		return nil, storeFailure(err)
	}

	s.metrics.RecordTransition(string(name), observability.OutcomeApplied)
	s.logger.Info("results transitioned",
		zap.String("transition", string(name)),
		zap.Int64("actor_id", caller.IdentityID),
		zap.Int64s("result_ids", ids))
	s.publish(ctx, events.NewEvent(events.EventResultStatusChanged, caller, ids, events.ResultStatusChangedPayload{
		Transition: string(name),
		OldStatus:  t.From,
		NewStatus:  t.To,
	}))

	return &TransitionSummary{Transition: name, Status: t.To, IDs: ids}, nil
}

// ListMine returns every result uploaded by the calling lecturer.
func (s *ResultService) ListMine(ctx context.Context, caller domain.Principal) ([]domain.Result, error) {
	if caller.Role != domain.RoleLecturer {
		return nil, apperrors.NewForbidden("only lecturers own results", nil)
	}
	list, err := s.results.ListByLecturer(ctx, caller.IdentityID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return list, nil
}

// ListPending returns the results waiting on the caller's approval step.
func (s *ResultService) ListPending(ctx context.Context, caller domain.Principal) ([]domain.Result, error) {
	status, ok := workflow.PendingStatusFor(caller.Role)
	if !ok {
		return nil, apperrors.NewForbidden("role has no pending approvals", map[string]any{"role": caller.Role})
	}
	list, err := s.results.ListByStatus(ctx, status)
	if err != nil {
		return nil, storeFailure(err)
	}
	return list, nil
}

// ListForStudent returns published results of studentID; students only see their own.
func (s *ResultService) ListForStudent(ctx context.Context, caller domain.Principal, studentID int64) ([]domain.Result, error) {
	if caller.Role != domain.RoleStudent || caller.IdentityID != studentID {
		return nil, apperrors.NewForbidden("students may only view their own results", nil)
	}
	list, err := s.results.ListForStudent(ctx, studentID, domain.ResultStatusPublished)
	if err != nil {
		return nil, storeFailure(err)
	}
	return list, nil
}

// History returns the status changes of one result. Lecturers only see their own.
func (s *ResultService) History(ctx context.Context, caller domain.Principal, resultID int64) ([]domain.StatusChange, error) {
	if resultID <= 0 {
		return nil, apperrors.NewValidationError("invalid result id", map[string]any{"fields": map[string]string{"id": "must be a positive integer"}})
	}
	records, err := s.results.GetByIDs(ctx, []int64{resultID})
	if err != nil {
		return nil, storeFailure(err)
	}
	record, ok := records[resultID]
	if !ok {
		return nil, apperrors.NewNotFound("result", map[string]any{"id": resultID})
	}
	if caller.Role == domain.RoleLecturer && record.LecturerID != caller.IdentityID {
		return nil, apperrors.NewForbidden("result not owned by caller", nil)
	}

	history, err := s.results.ListHistory(ctx, resultID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return history, nil
}

func (s *ResultService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func scoreInRange(score *float64) bool {
	return score == nil || (*score >= domain.MinScore && *score <= domain.MaxScore)
}
