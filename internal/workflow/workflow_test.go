package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/result-service/internal/domain"
)

func TestTransitionsFormSingleForwardChain(t *testing.T) {
	stages := Stages()
	all := Transitions()
	require.Len(t, all, len(stages)-1)

	for i, tr := range all {
		assert.Equal(t, stages[i], tr.From, tr.Name)
		assert.Equal(t, stages[i+1], tr.To, tr.Name)
		assert.True(t, IsValidTransition(tr.From, tr.To))
	}
}

func TestEachEdgeOwnedByOneRole(t *testing.T) {
	owners := map[Name]domain.Role{
		Submit:            domain.RoleLecturer,
		DepartmentApprove: domain.RoleHOD,
		FacultyApprove:    domain.RoleDean,
		FinalApprove:      domain.RoleExamOfficer,
	}
	for name, role := range owners {
		tr, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, role, tr.Role, name)
	}

	_, ok := Lookup("publish")
	assert.False(t, ok)
}

func TestIsValidTransitionRejectsSkipsAndBackwards(t *testing.T) {
	stages := Stages()
	for i, from := range stages {
		for j, to := range stages {
			assert.Equal(t, j == i+1, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
	_, ok := Next(domain.ResultStatusPublished)
	assert.False(t, ok)
}

func TestPendingStatusFor(t *testing.T) {
	tests := []struct {
		role   domain.Role
		status domain.ResultStatus
		ok     bool
	}{
		{domain.RoleHOD, domain.ResultStatusSubmitted, true},
		{domain.RoleDean, domain.ResultStatusDeptApproved, true},
		{domain.RoleExamOfficer, domain.ResultStatusFacultyApproved, true},
		{domain.RoleLecturer, "", false},
		{domain.RoleStudent, "", false},
		{domain.RoleAdmin, "", false},
	}
	for _, tt := range tests {
		status, ok := PendingStatusFor(tt.role)
		assert.Equal(t, tt.ok, ok, tt.role)
		assert.Equal(t, tt.status, status, tt.role)
	}
}

func TestNormalizeIDs(t *testing.T) {
	ids, err := NormalizeIDs([]int64{3, 1, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	_, err = NormalizeIDs(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = NormalizeIDs([]int64{1, 0})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NormalizeIDs([]int64{-4})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNormalizeIDsBoundsBatchSize(t *testing.T) {
	ids := make([]int64, MaxBatchSize)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	out, err := NormalizeIDs(append(ids, ids...))
	require.NoError(t, err)
	assert.Len(t, out, MaxBatchSize)

	_, err = NormalizeIDs(append(ids, MaxBatchSize+1))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestEvaluate(t *testing.T) {
	lecturer := domain.Principal{IdentityID: 10, Role: domain.RoleLecturer}
	records := map[int64]domain.Result{
		1: {ID: 1, LecturerID: 10, Status: domain.ResultStatusDraft},
		2: {ID: 2, LecturerID: 11, Status: domain.ResultStatusDraft},
		3: {ID: 3, LecturerID: 10, Status: domain.ResultStatusSubmitted},
	}

	submit, _ := Lookup(Submit)

	t.Run("all eligible", func(t *testing.T) {
		assert.Empty(t, Evaluate(submit, lecturer, []int64{1}, records))
	})

	t.Run("reports every blocking id", func(t *testing.T) {
		rejected := Evaluate(submit, lecturer, []int64{1, 2, 3, 4}, records)
		assert.Equal(t, []Rejection{
			{ID: 2, Reason: ReasonNotOwner, Status: domain.ResultStatusDraft},
			{ID: 3, Reason: ReasonInvalidStatus, Status: domain.ResultStatusSubmitted},
			{ID: 4, Reason: ReasonNotFound},
		}, rejected)
		assert.True(t, HasReason(rejected, ReasonNotOwner))
	})

	t.Run("ownership ignored for approvals", func(t *testing.T) {
		hod := domain.Principal{IdentityID: 20, Role: domain.RoleHOD}
		approve, _ := Lookup(DepartmentApprove)
		assert.Empty(t, Evaluate(approve, hod, []int64{3}, records))
	})

	t.Run("stage skip rejected", func(t *testing.T) {
		officer := domain.Principal{IdentityID: 30, Role: domain.RoleExamOfficer}
		final, _ := Lookup(FinalApprove)
		rejected := Evaluate(final, officer, []int64{1, 3}, records)
		require.Len(t, rejected, 2)
		assert.False(t, HasReason(rejected, ReasonNotOwner))
		for _, r := range rejected {
			assert.Equal(t, ReasonInvalidStatus, r.Reason)
		}
	})
}
