package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the count queries behind the summary widgets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CountActiveUsers(ctx context.Context) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM users WHERE is_active`)
}

func (r *Repository) CountRoles(ctx context.Context) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM roles`)
}

func (r *Repository) CountDocuments(ctx context.Context) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM documents`)
}

func (r *Repository) CountDocumentsExpiring(ctx context.Context, now, until time.Time) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM documents WHERE expires_at > $1 AND expires_at < $2`, now, until)
}

func (r *Repository) CountDocumentsExpired(ctx context.Context, now time.Time) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM documents WHERE expires_at <= $1`, now)
}

func (r *Repository) CountPermitsPending(ctx context.Context) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM permits WHERE status = 'submitted'`)
}

func (r *Repository) countRow(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}
