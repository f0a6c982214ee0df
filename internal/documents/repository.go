package documents

import (
	"context"
	"errors"
	"strconv"
	"time"

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

const selectColumns = `d.id, d.number, d.title, d.doc_type, d.owner_name, d.owner_email,
	d.issued_at, d.expires_at, d.notes, d.upload_id, d.created_at, d.updated_at`

// List returns documents matching the filters plus the unpaged total.
// Status filtering happens in SQL against the supplied moment so the page
// and the count agree.
func (r *Repository) List(ctx context.Context, filters ListFilters, now time.Time, warnWindow time.Duration) ([]Document, int, error) {
	base := ` FROM documents d WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		base += ` AND (d.title ILIKE $` + n + ` OR d.number ILIKE $` + n + ` OR d.owner_name ILIKE $` + n + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Type != "" {
		argCount++
		base += ` AND d.doc_type = $` + strconv.Itoa(argCount)
		args = append(args, filters.Type)
	}
	switch filters.Status {
	case StatusExpired:
		argCount++
		base += ` AND d.expires_at <= $` + strconv.Itoa(argCount)
		args = append(args, now)
	case StatusExpiring:
		argCount++
		base += ` AND d.expires_at > $` + strconv.Itoa(argCount)
		args = append(args, now)
		argCount++
		base += ` AND d.expires_at < $` + strconv.Itoa(argCount)
		args = append(args, now.Add(warnWindow))
	case StatusValid:
		argCount++
		base += ` AND d.expires_at >= $` + strconv.Itoa(argCount)
		args = append(args, now.Add(warnWindow))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectColumns + base + ` ORDER BY d.expires_at, d.id`
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

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Get fetches a single document.
func (r *Repository) Get(ctx context.Context, id int64) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM documents d WHERE d.id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, httpx.ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Create inserts a document and returns the stored row.
func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO documents (number, title, doc_type, owner_name, owner_email, issued_at, expires_at, notes, upload_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		d.Number, d.Title, d.Type, d.OwnerName, d.OwnerEmail, d.IssuedAt, d.ExpiresAt, d.Notes, d.UploadID,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Document{}, httpx.ErrDuplicate
		}
		return Document{}, err
	}
	return d, nil
}

// Update replaces the mutable fields of a document.
func (r *Repository) Update(ctx context.Context, id int64, d Document) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET number = $2, title = $3, doc_type = $4, owner_name = $5, owner_email = $6,
		        issued_at = $7, expires_at = $8, notes = $9, upload_id = $10, updated_at = NOW()
		  WHERE id = $1`,
		id, d.Number, d.Title, d.Type, d.OwnerName, d.OwnerEmail, d.IssuedAt, d.ExpiresAt, d.Notes, d.UploadID,
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

// Delete removes a document.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ListExpiring returns documents whose expiry falls inside (now, until],
// ordered soonest first. Used by the list export and the nightly scan.
func (r *Repository) ListExpiring(ctx context.Context, now, until time.Time) ([]Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM documents d
		  WHERE d.expires_at > $1 AND d.expires_at <= $2
		  ORDER BY d.expires_at, d.id`,
		now, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Number, &d.Title, &d.Type, &d.OwnerName, &d.OwnerEmail,
		&d.IssuedAt, &d.ExpiresAt, &d.Notes, &d.UploadID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
