package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/result-service/internal/domain"
)

type memoryIdentityRepository struct {
	mu             sync.RWMutex
	nextID         int64
	identities     map[int64]domain.Identity
	byEmail        map[string]int64
	students       map[int64]domain.StudentProfile
	staff          map[int64]domain.StaffProfile
	profileNumbers map[string]struct{}
	now            func() time.Time
}

// NewMemoryIdentityRepository returns an in-process store used when STORAGE_MODE=memory
// and by tests.
func NewMemoryIdentityRepository() IdentityRepository {
	return &memoryIdentityRepository{
		identities:     make(map[int64]domain.Identity),
		byEmail:        make(map[string]int64),
		students:       make(map[int64]domain.StudentProfile),
		staff:          make(map[int64]domain.StaffProfile),
		profileNumbers: make(map[string]struct{}),
		now:            time.Now,
	}
}

func (r *memoryIdentityRepository) CreateWithProfile(ctx context.Context, identity *domain.Identity, profile domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(identity.Email)
	if _, taken := r.byEmail[email]; taken {
		return ErrEmailTaken
	}

	var number string
	switch {
	case profile.Student != nil:
		number = "student:" + profile.Student.EnrollmentNumber
	case profile.Staff != nil:
		number = "staff:" + profile.Staff.StaffNumber
	}
	if _, taken := r.profileNumbers[number]; number != "" && taken {
		return ErrProfileNumberTaken
	}

	r.nextID++
	identity.ID = r.nextID
	identity.Email = email
	identity.CreatedAt = r.now().UTC()

	r.identities[identity.ID] = *identity
	r.byEmail[email] = identity.ID
	if number != "" {
		r.profileNumbers[number] = struct{}{}
	}
	if profile.Student != nil {
		profile.Student.IdentityID = identity.ID
		r.students[identity.ID] = *profile.Student
	}
	if profile.Staff != nil {
		profile.Staff.IdentityID = identity.ID
		r.staff[identity.ID] = *profile.Staff
	}
	return nil
}

func (r *memoryIdentityRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &identity, nil
}

func (r *memoryIdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	identity := r.identities[id]
	return &identity, nil
}

func (r *memoryIdentityRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[int64]domain.Identity, len(ids))
	for _, id := range ids {
		if identity, ok := r.identities[id]; ok {
			found[id] = identity
		}
	}
	return found, nil
}

type memoryResultRepository struct {
	mu            sync.RWMutex
	nextID        int64
	nextHistoryID int64
	results       map[int64]domain.Result
	history       map[int64][]domain.StatusChange
	now           func() time.Time
}

// NewMemoryResultRepository returns an in-process result store. A transition batch is
// checked and applied under a single lock.
func NewMemoryResultRepository() ResultRepository {
	return &memoryResultRepository{
		results: make(map[int64]domain.Result),
		history: make(map[int64][]domain.StatusChange),
		now:     time.Now,
	}
}

func (r *memoryResultRepository) CreateBatch(ctx context.Context, results []*domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	for _, result := range results {
		r.nextID++
		result.ID = r.nextID
		result.CreatedAt = now
		result.UpdatedAt = now
		r.results[result.ID] = cloneResult(*result)
	}
	return nil
}

func (r *memoryResultRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[int64]domain.Result, len(ids))
	for _, id := range ids {
		if result, ok := r.results[id]; ok {
			found[id] = cloneResult(result)
		}
	}
	return found, nil
}

func (r *memoryResultRepository) ListByLecturer(ctx context.Context, lecturerID int64) ([]domain.Result, error) {
	return r.filter(ctx, func(res domain.Result) bool { return res.LecturerID == lecturerID })
}

func (r *memoryResultRepository) ListByStatus(ctx context.Context, status domain.ResultStatus) ([]domain.Result, error) {
	return r.filter(ctx, func(res domain.Result) bool { return res.Status == status })
}

func (r *memoryResultRepository) ListForStudent(ctx context.Context, studentID int64, status domain.ResultStatus) ([]domain.Result, error) {
	return r.filter(ctx, func(res domain.Result) bool {
		return res.StudentID == studentID && res.Status == status
	})
}

func (r *memoryResultRepository) Transition(ctx context.Context, req TransitionRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range req.IDs {
		current, ok := r.results[id]
		if !ok || current.Status != req.From {
			return ErrStaleTransition
		}
		if req.OwnerID != 0 && current.LecturerID != req.OwnerID {
			return ErrStaleTransition
		}
	}

	now := r.now().UTC()
	for _, id := range req.IDs {
		current := r.results[id]
		current.Status = req.To
		current.UpdatedAt = now
		r.results[id] = current

		r.nextHistoryID++
		r.history[id] = append(r.history[id], domain.StatusChange{
			ID:            r.nextHistoryID,
			ResultID:      id,
			FromStatus:    req.From,
			ToStatus:      req.To,
			ChangedBy:     req.ActorID,
			ChangedByRole: req.ActorRole,
			CreatedAt:     now,
		})
	}
	return nil
}

func (r *memoryResultRepository) ListHistory(ctx context.Context, resultID int64) ([]domain.StatusChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := make([]domain.StatusChange, len(r.history[resultID]))
	copy(history, r.history[resultID])
	return history, nil
}

func (r *memoryResultRepository) filter(ctx context.Context, keep func(domain.Result) bool) ([]domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := []domain.Result{}
	for _, result := range r.results {
		if keep(result) {
			list = append(list, cloneResult(result))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func cloneResult(result domain.Result) domain.Result {
	if result.CAScore != nil {
		score := *result.CAScore
		result.CAScore = &score
	}
	if result.ExamScore != nil {
		score := *result.ExamScore
		result.ExamScore = &score
	}
	return result
}
