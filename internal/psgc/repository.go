package psgc

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-rbi/registry/internal/shared/database"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

// Repository provides database operations for PSGC places
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PSGC repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const placeColumns = `code, name, level, COALESCE(parent_code, ''),
	COALESCE(city_name, ''), COALESCE(province_name, ''), COALESCE(region_name, '')`

// Search finds places whose name contains the query. Exact and prefix
// matches rank first, then trigram similarity.
func (r *Repository) Search(ctx context.Context, params SearchParams) ([]Place, error) {
	query := `
		SELECT ` + placeColumns + `
		FROM psgc_places
		WHERE name ILIKE $1
		  AND ($2 = '' OR level = $2)
		  AND ($3 = '' OR parent_code = $3)
		ORDER BY lower(name) = lower($4) DESC,
			name ILIKE $5 DESC,
			similarity(name, $4) DESC,
			name
		LIMIT $6`

	q := strings.TrimSpace(params.Query)
	rows, err := r.pool.Query(ctx, query,
		database.LikePattern(q), string(params.Level), string(params.ParentCode),
		q, database.PrefixPattern(q), params.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search places")
	}
	defer rows.Close()

	places := make([]Place, 0, params.Limit)
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.Code, &p.Name, &p.Level, &p.ParentCode, &p.CityName, &p.ProvinceName, &p.RegionName); err != nil {
			return nil, errors.Wrap(err, "failed to scan place")
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate places")
	}
	return places, nil
}

// Get retrieves a place by code
func (r *Repository) Get(ctx context.Context, code types.PSGCCode) (*Place, error) {
	query := `SELECT ` + placeColumns + ` FROM psgc_places WHERE code = $1`

	var p Place
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&p.Code, &p.Name, &p.Level, &p.ParentCode, &p.CityName, &p.ProvinceName, &p.RegionName,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("place", code.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get place")
	}
	return &p, nil
}

// Upsert writes places in one batch; rows must be ordered parents first.
func (r *Repository) Upsert(ctx context.Context, places []Place) error {
	query := `
		INSERT INTO psgc_places (code, name, level, parent_code, city_name, province_name, region_name)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			level = EXCLUDED.level,
			parent_code = EXCLUDED.parent_code,
			city_name = EXCLUDED.city_name,
			province_name = EXCLUDED.province_name,
			region_name = EXCLUDED.region_name`

	batch := &pgx.Batch{}
	for _, p := range places {
		batch.Queue(query, p.Code, p.Name, p.Level, string(p.ParentCode), p.CityName, p.ProvinceName, p.RegionName)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "failed to upsert places")
	}
	return nil
}
