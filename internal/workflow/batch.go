package workflow

import (
	"errors"
	"fmt"

	"github.com/spec-kit/result-service/internal/domain"
)

// MaxBatchSize bounds the distinct ids one transition or upload may carry.
const MaxBatchSize = 1000

var (
	ErrEmptyBatch    = errors.New("ids must be a non-empty array")
	ErrInvalidID     = errors.New("ids must be positive integers")
	ErrBatchTooLarge = fmt.Errorf("ids must not contain more than %d distinct values", MaxBatchSize)
)

// RejectReason explains why a record cannot take part in a batch.
type RejectReason string

const (
	ReasonNotFound      RejectReason = "not_found"
	ReasonNotOwner      RejectReason = "not_owner"
	ReasonInvalidStatus RejectReason = "invalid_status"
)

// Rejection is reported for every id that blocks a batch.
type Rejection struct {
	ID     int64               `json:"id"`
	Reason RejectReason        `json:"reason"`
	Status domain.ResultStatus `json:"status,omitempty"`
}

// NormalizeIDs drops duplicate ids while keeping request order.
func NormalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, ErrInvalidID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if len(out) == MaxBatchSize {
			return nil, ErrBatchTooLarge
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Evaluate checks every requested id against the transition. A nil result means the
// whole batch may advance; otherwise nothing should be written.
func Evaluate(t Transition, caller domain.Principal, ids []int64, records map[int64]domain.Result) []Rejection {
	var rejected []Rejection
	for _, id := range ids {
		record, ok := records[id]
		if !ok {
			rejected = append(rejected, Rejection{ID: id, Reason: ReasonNotFound})
			continue
		}
		if t.RequireOwner && record.LecturerID != caller.IdentityID {
			rejected = append(rejected, Rejection{ID: id, Reason: ReasonNotOwner, Status: record.Status})
			continue
		}
		if record.Status != t.From {
			rejected = append(rejected, Rejection{ID: id, Reason: ReasonInvalidStatus, Status: record.Status})
		}
	}
	return rejected
}

// HasReason reports whether any rejection carries reason.
func HasReason(rejected []Rejection, reason RejectReason) bool {
	for _, r := range rejected {
		if r.Reason == reason {
			return true
		}
	}
	return false
}
