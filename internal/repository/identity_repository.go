package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/result-service/internal/domain"
)

const (
	uniqueViolation       = "23505"
	identitiesEmailUnique = "identities_email_key"
)

type identityRepository struct {
	db *sql.DB
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(db *sql.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) CreateWithProfile(ctx context.Context, identity *domain.Identity, profile domain.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	const insertIdentity = `
        INSERT INTO identities (name, email, password_hash, role, disabled)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	if err := tx.QueryRowContext(ctx, insertIdentity,
		identity.Name,
		NormalizeEmail(identity.Email),
		identity.PasswordHash,
		identity.Role,
		identity.Disabled,
	).Scan(&identity.ID, &identity.CreatedAt); err != nil {
		return mapUniqueViolation(err)
	}

	switch {
	case profile.Student != nil:
		const insertStudent = `
            INSERT INTO student_profiles (identity_id, enrollment_number, program, level)
            VALUES ($1, $2, $3, $4)`
		profile.Student.IdentityID = identity.ID
		if _, err := tx.ExecContext(ctx, insertStudent,
			identity.ID,
			profile.Student.EnrollmentNumber,
			profile.Student.Program,
			profile.Student.Level,
		); err != nil {
			return mapUniqueViolation(err)
		}
	case profile.Staff != nil:
		const insertStaff = `
            INSERT INTO staff_profiles (identity_id, staff_number, department, faculty)
            VALUES ($1, $2, $3, $4)`
		profile.Staff.IdentityID = identity.ID
		if _, err := tx.ExecContext(ctx, insertStaff,
			identity.ID,
			profile.Staff.StaffNumber,
			profile.Staff.Department,
			profile.Staff.Faculty,
		); err != nil {
			return mapUniqueViolation(err)
		}
	default:
		return errors.New("identity profile required")
	}

	return tx.Commit()
}

func (r *identityRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	const query = `
        SELECT id, name, email, password_hash, role, disabled, created_at
        FROM identities WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	const query = `
        SELECT id, name, email, password_hash, role, disabled, created_at
        FROM identities WHERE email=$1`
	return r.fetchSingle(ctx, query, NormalizeEmail(email))
}

func (r *identityRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Identity, error) {
	result := make(map[int64]domain.Identity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	args, placeholders := inClause(nil, ids)
	query := fmt.Sprintf(`
        SELECT id, name, email, password_hash, role, disabled, created_at
        FROM identities WHERE id IN (%s)`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result[identity.ID] = *identity
	}
	return result, rows.Err()
}

func (r *identityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return identity, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Role,
		&identity.Disabled,
		&identity.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if pgErr.ConstraintName == identitiesEmailUnique {
		return ErrEmailTaken
	}
	return ErrProfileNumberTaken
}
