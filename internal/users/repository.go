package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

// List returns users matching the filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	base := ` FROM users u LEFT JOIN roles ro ON ro.id = u.role_id WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		base += ` AND (u.name ILIKE $` + strconv.Itoa(argCount) + ` OR u.email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Active != nil {
		argCount++
		base += ` AND u.is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.Active)
	}
	if filters.RoleID != nil {
		argCount++
		base += ` AND u.role_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.RoleID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT u.id, u.email, u.name, u.is_active, u.role_id, COALESCE(ro.name, ''), u.created_at, u.updated_at` + base + ` ORDER BY u.name, u.id`
	if filters.PerPage > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.PerPage)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.PerPage
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Get fetches a single user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.email, u.name, u.is_active, u.role_id, COALESCE(ro.name, ''), u.created_at, u.updated_at
		   FROM users u LEFT JOIN roles ro ON ro.id = u.role_id WHERE u.id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts a user with its password hash and returns the stored row.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, is_active, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, passwordHash, u.IsActive, u.RoleID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, httpx.ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

// Update replaces the mutable fields of a user.
func (r *Repository) Update(ctx context.Context, id int64, u User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, name = $3, is_active = $4, role_id = $5, updated_at = NOW() WHERE id = $1`,
		id, u.Email, u.Name, u.IsActive, u.RoleID,
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

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// AssignRole points the user at a role; a nil roleID clears the assignment.
func (r *Repository) AssignRole(ctx context.Context, id int64, roleID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, id, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
