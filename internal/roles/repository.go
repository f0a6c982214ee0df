package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all roles with their assigned-user counts. Grants are not
// loaded here; use Get for the full picture of one role.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ro.id, ro.name, ro.description, ro.is_superuser,
		        (SELECT COUNT(*) FROM users u WHERE u.role_id = ro.id),
		        ro.created_at, ro.updated_at
		   FROM roles ro
		  ORDER BY ro.name, ro.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Superuser, &role.UserCount, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Get fetches a single role with its grants.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT ro.id, ro.name, ro.description, ro.is_superuser,
		        (SELECT COUNT(*) FROM users u WHERE u.role_id = ro.id),
		        ro.created_at, ro.updated_at
		   FROM roles ro WHERE ro.id = $1`,
		id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.Superuser, &role.UserCount, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, httpx.ErrNotFound
		}
		return Role{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.module, p.action, p.resource
		   FROM role_permissions rp
		   JOIN permissions p ON p.id = rp.permission_id
		  WHERE rp.role_id = $1
		  ORDER BY p.module, p.action`,
		id)
	if err != nil {
		return Role{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Module, &g.Action, &g.Resource); err != nil {
			return Role{}, err
		}
		role.Grants = append(role.Grants, g)
	}
	return role, rows.Err()
}

// Create inserts a role and returns the stored row.
func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, is_superuser, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		role.Name, role.Description, role.Superuser,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, httpx.ErrDuplicate
		}
		return Role{}, err
	}
	return role, nil
}

// Update replaces the mutable fields of a role.
func (r *Repository) Update(ctx context.Context, id int64, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, is_superuser = $4, updated_at = NOW() WHERE id = $1`,
		id, role.Name, role.Description, role.Superuser,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return httpx.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ReplaceGrants swaps the role's grant set atomically. Permission rows are
// created on first use and shared across roles thereafter.
func (r *Repository) ReplaceGrants(ctx context.Context, roleID int64, grants []Grant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return httpx.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, g := range grants {
			var permID int64
			err := tx.QueryRow(ctx,
				`INSERT INTO permissions (module, action, resource)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (module, action, resource) DO UPDATE SET module = EXCLUDED.module
				 RETURNING id`,
				g.Module, g.Action, g.Resource,
			).Scan(&permID)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				roleID, permID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
		return err
	})
}

// AssignedUsers counts accounts currently pointing at the role.
func (r *Repository) AssignedUsers(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

// Delete removes the role and its grant links.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
