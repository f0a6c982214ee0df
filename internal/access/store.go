package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store loads user snapshots from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FetchUser assembles the user, its role and the role's grants. Permission
// rows whose action falls outside the canonical enumeration are discarded
// here, at the boundary, so evaluation never sees them.
func (s *Store) FetchUser(ctx context.Context, userID int64) (*User, error) {
	var user User
	var roleID *int64
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, is_active, role_id FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.IsActive, &roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoUser
		}
		return nil, err
	}
	if roleID == nil {
		return &user, nil
	}

	var role Role
	err = s.pool.QueryRow(ctx,
		`SELECT id, name, description, is_superuser FROM roles WHERE id = $1`,
		*roleID,
	).Scan(&role.ID, &role.Name, &role.Description, &role.Superuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &user, nil
		}
		return nil, err
	}
	// Rows provisioned by the previous console predate the capability
	// column; their admin status was carried by the display name alone.
	if !role.Superuser && LegacySuperuserName(role.Name) {
		role.Superuser = true
	}

	rows, err := s.pool.Query(ctx,
		`SELECT p.module, p.action, p.resource
		   FROM role_permissions rp
		   JOIN permissions p ON p.id = rp.permission_id
		  WHERE rp.role_id = $1
		  ORDER BY p.module, p.action`,
		role.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var module, rawAction, resource string
		if err := rows.Scan(&module, &rawAction, &resource); err != nil {
			return nil, err
		}
		action, ok := ParseAction(rawAction)
		if !ok {
			continue
		}
		role.Permissions = append(role.Permissions, Permission{
			Module:   module,
			Action:   action,
			Resource: resource,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	user.Role = &role
	return &user, nil
}

var _ Source = (*Store)(nil)
