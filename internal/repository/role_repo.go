package repository

import (
	"context"
	"database/sql"

	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/models"
)

const roleColumns = `user_id, role, created_by, created_at, updated_at`

// roleRepo is the concrete implementation of RoleRepository
type roleRepo struct {
	db *database.DB
}

// NewRoleRepo creates a new role repository
func NewRoleRepo(db *database.DB) RoleRepository {
	return &roleRepo{db: db}
}

func scanRole(row rowScanner, extra ...interface{}) (*models.UserRole, error) {
	var ur models.UserRole
	dest := []interface{}{&ur.UserID, &ur.Role, &ur.CreatedBy, &ur.CreatedAt, &ur.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &ur, nil
}

// Get retrieves the role row of a user
func (r *roleRepo) Get(ctx context.Context, userID string) (*models.UserRole, error) {
	query := `SELECT ` + roleColumns + ` FROM user_roles WHERE user_id = $1`

	ur, err := scanRole(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ur, nil
}

// EnsureDefault inserts role for userID unless a row already exists, and returns the
// stored row. The no-op update makes RETURNING yield the existing row on conflict, so
// concurrent callers converge on one row; created reports whether this call inserted it.
func (r *roleRepo) EnsureDefault(ctx context.Context, userID string, role models.Role) (*models.UserRole, bool, error) {
	query := `
		INSERT INTO user_roles (user_id, role, created_by, created_at, updated_at)
		VALUES ($1, $2, 'system', NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + roleColumns + `, (xmax = 0) AS inserted`

	var created bool
	ur, err := scanRole(r.db.QueryRowContext(ctx, query, userID, role), &created)
	if err != nil {
		return nil, false, err
	}
	return ur, created, nil
}

// Upsert assigns role to userID, recording the acting user on first creation
func (r *roleRepo) Upsert(ctx context.Context, userID string, role models.Role, actorID string) (*models.UserRole, error) {
	query := `
		INSERT INTO user_roles (user_id, role, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + roleColumns

	return scanRole(r.db.QueryRowContext(ctx, query, userID, role, actorID))
}

// List returns every role assignment
func (r *roleRepo) List(ctx context.Context) ([]*models.UserRole, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM user_roles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]*models.UserRole, 0)
	for rows.Next() {
		ur, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, ur)
	}
	return roles, rows.Err()
}

// Delete removes the role row of a user
func (r *roleRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = $1", userID)
	return err
}
