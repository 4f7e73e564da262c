package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spec-kit/result-service/internal/domain"
)

const resultColumns = `id, student_id, course_id, lecturer_id, ca_score, exam_score, status, term, year, created_at, updated_at`

type resultRepository struct {
	db *sql.DB
}

// NewResultRepository instantiates the Postgres repository.
func NewResultRepository(db *sql.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) CreateBatch(ctx context.Context, results []*domain.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `
        INSERT INTO results (student_id, course_id, lecturer_id, ca_score, exam_score, status, term, year)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	for _, result := range results {
		if err := tx.QueryRowContext(ctx, query,
			result.StudentID,
			result.CourseID,
			result.LecturerID,
			result.CAScore,
			result.ExamScore,
			result.Status,
			result.Term,
			result.Year,
		).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *resultRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Result, error) {
	found := make(map[int64]domain.Result, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	args, placeholders := inClause(nil, ids)
	query := fmt.Sprintf(`SELECT %s FROM results WHERE id IN (%s)`, resultColumns, placeholders)

	list, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, result := range list {
		found[result.ID] = result
	}
	return found, nil
}

func (r *resultRepository) ListByLecturer(ctx context.Context, lecturerID int64) ([]domain.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE lecturer_id=$1 ORDER BY id`, resultColumns)
	return r.list(ctx, query, lecturerID)
}

func (r *resultRepository) ListByStatus(ctx context.Context, status domain.ResultStatus) ([]domain.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE status=$1 ORDER BY id`, resultColumns)
	return r.list(ctx, query, status)
}

func (r *resultRepository) ListForStudent(ctx context.Context, studentID int64, status domain.ResultStatus) ([]domain.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE student_id=$1 AND status=$2 ORDER BY id`, resultColumns)
	return r.list(ctx, query, studentID, status)
}

func (r *resultRepository) Transition(ctx context.Context, req TransitionRequest) error {
	if len(req.IDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	args := []any{req.To, req.From}
	clauses := []string{"status=$2"}
	if req.OwnerID != 0 {
		args = append(args, req.OwnerID)
		clauses = append(clauses, fmt.Sprintf("lecturer_id=$%d", len(args)))
	}
	args, placeholders := inClause(args, req.IDs)
	clauses = append(clauses, fmt.Sprintf("id IN (%s)", placeholders))

	update := fmt.Sprintf(`UPDATE results SET status=$1, updated_at=NOW() WHERE %s`, strings.Join(clauses, " AND "))
	res, err := tx.ExecContext(ctx, update, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(req.IDs)) {
		return ErrStaleTransition
	}

	historyArgs := make([]any, 0, len(req.IDs)*5)
	rows := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		n := len(historyArgs)
		historyArgs = append(historyArgs, id, req.From, req.To, req.ActorID, req.ActorRole)
		rows = append(rows, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5))
	}
	insert := `INSERT INTO result_status_history (result_id, from_status, to_status, changed_by, changed_by_role) VALUES ` +
		strings.Join(rows, ",")
	if _, err := tx.ExecContext(ctx, insert, historyArgs...); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *resultRepository) ListHistory(ctx context.Context, resultID int64) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, result_id, from_status, to_status, changed_by, changed_by_role, created_at
        FROM result_status_history WHERE result_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []domain.StatusChange{}
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.ResultID,
			&change.FromStatus,
			&change.ToStatus,
			&change.ChangedBy,
			&change.ChangedByRole,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, change)
	}
	return history, rows.Err()
}

func (r *resultRepository) list(ctx context.Context, query string, args ...any) ([]domain.Result, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]domain.Result, error) {
	result := []domain.Result{}
	for rows.Next() {
		var rec domain.Result
		if err := rows.Scan(
			&rec.ID,
			&rec.StudentID,
			&rec.CourseID,
			&rec.LecturerID,
			&rec.CAScore,
			&rec.ExamScore,
			&rec.Status,
			&rec.Term,
			&rec.Year,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
