package psoc

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-rbi/registry/internal/shared/database"
	"github.com/barangay-rbi/registry/internal/shared/errors"
)

const uniqueViolation = "23505"

// Repository provides database operations for occupations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PSOC repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const occupationColumns = `code, title, level, COALESCE(parent_code, ''), hierarchy, custom,
	COALESCE(created_by::text, ''), created_at`

func scanOccupation(row pgx.Row) (*Occupation, error) {
	o := &Occupation{}
	err := row.Scan(&o.Code, &o.Title, &o.Level, &o.ParentCode, &o.Hierarchy, &o.Custom, &o.CreatedBy, &o.CreatedAt)
	return o, err
}

// Search finds occupations whose title contains the query.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]Occupation, error) {
	sql := `
		SELECT ` + occupationColumns + `
		FROM psoc_occupations
		WHERE title ILIKE $1
		ORDER BY lower(title) = lower($2) DESC,
			title ILIKE $3 DESC,
			similarity(title, $2) DESC,
			title
		LIMIT $4`

	rows, err := r.pool.Query(ctx, sql, database.LikePattern(query), query, database.PrefixPattern(query), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search occupations")
	}
	defer rows.Close()

	var out []Occupation
	for rows.Next() {
		o, err := scanOccupation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan occupation")
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate occupations")
	}
	return out, nil
}

// Get retrieves an occupation by code
func (r *Repository) Get(ctx context.Context, code string) (*Occupation, error) {
	o, err := scanOccupation(r.pool.QueryRow(ctx,
		`SELECT `+occupationColumns+` FROM psoc_occupations WHERE code = $1`, code))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("occupation", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get occupation")
	}
	return o, nil
}

// Create inserts an occupation; a duplicate custom title is a conflict.
func (r *Repository) Create(ctx context.Context, o *Occupation) error {
	query := `
		INSERT INTO psoc_occupations (code, title, level, parent_code, hierarchy, custom, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		o.Code, o.Title, o.Level, o.ParentCode, o.Hierarchy, o.Custom, o.CreatedBy,
	).Scan(&o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.Conflict("occupation with this title already exists")
		}
		return errors.Wrap(err, "failed to create occupation")
	}
	return nil
}

// Upsert writes reference occupations in one batch, parents first.
func (r *Repository) Upsert(ctx context.Context, occupations []Occupation) error {
	query := `
		INSERT INTO psoc_occupations (code, title, level, parent_code, hierarchy)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (code) DO UPDATE SET
			title = EXCLUDED.title,
			level = EXCLUDED.level,
			parent_code = EXCLUDED.parent_code,
			hierarchy = EXCLUDED.hierarchy`

	batch := &pgx.Batch{}
	for _, o := range occupations {
		batch.Queue(query, o.Code, o.Title, o.Level, o.ParentCode, o.Hierarchy)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "failed to upsert occupations")
	}
	return nil
}
