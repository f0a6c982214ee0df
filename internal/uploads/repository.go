package uploads

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for upload metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the metadata row.
func (r *Repository) Create(ctx context.Context, u Upload) (Upload, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO uploads (id, file_name, content_type, size, object_name, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING created_at`,
		u.ID, u.FileName, u.ContentType, u.Size, u.ObjectName, u.UploadedBy,
	).Scan(&u.CreatedAt)
	if err != nil {
		return Upload{}, err
	}
	return u, nil
}

// Get fetches metadata for one upload.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Upload, error) {
	var u Upload
	err := r.pool.QueryRow(ctx,
		`SELECT id, file_name, content_type, size, object_name, uploaded_by, created_at
		   FROM uploads WHERE id = $1`, id,
	).Scan(&u.ID, &u.FileName, &u.ContentType, &u.Size, &u.ObjectName, &u.UploadedBy, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Upload{}, httpx.ErrNotFound
		}
		return Upload{}, err
	}
	return u, nil
}

// Delete removes the metadata row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
