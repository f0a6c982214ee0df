package permits

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

const selectColumns = `p.id, p.ref, p.title, p.kind, p.description, p.requester_id,
	COALESCE(u.name, ''), p.status, p.decision_note, p.decided_by, p.decided_at,
	p.submitted_at, p.created_at, p.updated_at`

// List returns permits matching the filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Permit, int, error) {
	base := ` FROM permits p LEFT JOIN users u ON u.id = p.requester_id WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		base += ` AND p.status = $` + strconv.Itoa(argCount)
		args = append(args, string(filters.Status))
	}
	if filters.RequesterID != nil {
		argCount++
		base += ` AND p.requester_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.RequesterID)
	}
	if filters.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		base += ` AND (p.title ILIKE $` + n + ` OR p.kind ILIKE $` + n + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectColumns + base + ` ORDER BY p.created_at DESC, p.id DESC`
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

	var permits []Permit
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, 0, err
		}
		permits = append(permits, p)
	}
	return permits, total, rows.Err()
}

// Get fetches a single permit.
func (r *Repository) Get(ctx context.Context, id int64) (Permit, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM permits p LEFT JOIN users u ON u.id = p.requester_id WHERE p.id = $1`, id)
	p, err := scanPermit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permit{}, httpx.ErrNotFound
		}
		return Permit{}, err
	}
	return p, nil
}

// Create inserts a draft and returns the stored row.
func (r *Repository) Create(ctx context.Context, p Permit) (Permit, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permits (ref, title, kind, description, requester_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		p.Ref, p.Title, p.Kind, p.Description, p.RequesterID, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Permit{}, err
	}
	return p, nil
}

// UpdateDraft replaces the editable fields while the permit is still a
// draft.
func (r *Repository) UpdateDraft(ctx context.Context, id int64, p Permit) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permits SET title = $2, kind = $3, description = $4, updated_at = NOW()
		  WHERE id = $1 AND status = $5`,
		id, p.Title, p.Kind, p.Description, string(StatusDraft),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Transition moves a permit between states, guarding the expected source
// state in the WHERE clause so concurrent deciders cannot double-apply.
func (r *Repository) Transition(ctx context.Context, id int64, from, to Status, actorID int64, note string, at time.Time) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	switch to {
	case StatusSubmitted:
		tag, err = r.pool.Exec(ctx,
			`UPDATE permits SET status = $3, submitted_at = $4, updated_at = NOW()
			  WHERE id = $1 AND status = $2`,
			id, string(from), string(to), at)
	default:
		tag, err = r.pool.Exec(ctx,
			`UPDATE permits SET status = $3, decision_note = $4, decided_by = $5, decided_at = $6, updated_at = NOW()
			  WHERE id = $1 AND status = $2`,
			id, string(from), string(to), note, actorID, at)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanPermit(row pgx.Row) (Permit, error) {
	var p Permit
	var status string
	err := row.Scan(&p.ID, &p.Ref, &p.Title, &p.Kind, &p.Description, &p.RequesterID,
		&p.RequesterName, &status, &p.DecisionNote, &p.DecidedBy, &p.DecidedAt,
		&p.SubmittedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Permit{}, err
	}
	p.Status = Status(status)
	return p, nil
}
