package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/result-service/internal/domain"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrProfileNumberTaken = errors.New("profile number already registered")
	ErrStaleTransition    = errors.New("records no longer in expected status")
)

// IdentityRepository persists identities together with their role profile.
type IdentityRepository interface {
	// CreateWithProfile inserts the identity and its profile atomically and fills
	// identity.ID and identity.CreatedAt.
	CreateWithProfile(ctx context.Context, identity *domain.Identity, profile domain.Profile) error
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Identity, error)
}

// TransitionRequest moves every id from From to To in one unit. When OwnerID is
// non-zero every record must also belong to that lecturer.
type TransitionRequest struct {
	IDs       []int64
	From      domain.ResultStatus
	To        domain.ResultStatus
	OwnerID   int64
	ActorID   int64
	ActorRole domain.Role
}

// ResultRepository persists result records and their status history.
type ResultRepository interface {
	// CreateBatch inserts all results atomically, filling IDs and timestamps.
	CreateBatch(ctx context.Context, results []*domain.Result) error
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Result, error)
	ListByLecturer(ctx context.Context, lecturerID int64) ([]domain.Result, error)
	ListByStatus(ctx context.Context, status domain.ResultStatus) ([]domain.Result, error)
	ListForStudent(ctx context.Context, studentID int64, status domain.ResultStatus) ([]domain.Result, error)
	// Transition applies the request or nothing. ErrStaleTransition signals that at
	// least one record was not in From (or not owned) at write time.
	Transition(ctx context.Context, req TransitionRequest) error
	ListHistory(ctx context.Context, resultID int64) ([]domain.StatusChange, error)
}

// NormalizeEmail is the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// inClause appends values to args and returns "$n,$n+1,..." placeholders.
func inClause(args []any, ids []int64) ([]any, string) {
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	return args, strings.Join(placeholders, ",")
}
