package resident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-rbi/registry/internal/shared/database"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

// sectorColumns maps the short sector names to their flag columns.
var sectorColumns = map[string]string{
	"labor_force":       "is_labor_force_employed",
	"unemployed":        "is_unemployed",
	"osc":               "is_out_of_school_children",
	"osy":               "is_out_of_school_youth",
	"senior":            "is_senior_citizen",
	"ip":                "is_indigenous_people",
	"ofw":               "is_overseas_filipino_worker",
	"pwd":               "is_person_with_disability",
	"solo_parent":       "is_solo_parent",
	"migrant":           "is_migrant",
	"registered_senior": "is_registered_senior_citizen",
}

// ValidSector reports whether name is a known sector filter.
func ValidSector(name string) bool {
	_, ok := sectorColumns[name]
	return ok
}

// Repository provides database operations for residents
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new resident repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const residentColumns = `id, first_name, middle_name, last_name, extension_name, sex, civil_status,
	birthdate, COALESCE(birth_place_code, ''), birth_place_label, citizenship,
	employment_status, education_level, COALESCE(occupation_code, ''), occupation_label, ethnicity,
	barangay_code, household_code,
	is_labor_force_employed, is_unemployed, is_out_of_school_children, is_out_of_school_youth,
	is_senior_citizen, is_indigenous_people, is_overseas_filipino_worker, is_person_with_disability,
	is_solo_parent, is_migrant, is_registered_senior_citizen,
	created_by, created_at, updated_at`

func scanResident(row pgx.Row) (*Resident, error) {
	r := &Resident{}
	var birthdate *time.Time
	s := &r.Sectoral
	err := row.Scan(
		&r.ID, &r.FirstName, &r.MiddleName, &r.LastName, &r.ExtensionName, &r.Sex, &r.CivilStatus,
		&birthdate, &r.BirthPlaceCode, &r.BirthPlaceLabel, &r.Citizenship,
		&r.EmploymentStatus, &r.EducationLevel, &r.OccupationCode, &r.OccupationLabel, &r.Ethnicity,
		&r.BarangayCode, &r.HouseholdCode,
		&s.IsEmployedInLaborForce, &s.IsUnemployed, &s.IsOutOfSchoolChildren, &s.IsOutOfSchoolYouth,
		&s.IsSeniorCitizen, &s.IsIndigenousPerson, &s.IsOverseasWorker, &s.IsPersonWithDisability,
		&s.IsSoloParent, &s.IsMigrant, &s.IsRegisteredSeniorCitizen,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birthdate != nil {
		r.Birthdate = Date{*birthdate}
	}
	return r, nil
}

func nullableDate(d Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	return &d.Time
}

// Create inserts a resident
func (r *Repository) Create(ctx context.Context, res *Resident) error {
	query := `
		INSERT INTO residents (
			id, first_name, middle_name, last_name, extension_name, sex, civil_status,
			birthdate, birth_place_code, birth_place_label, citizenship,
			employment_status, education_level, occupation_code, occupation_label, ethnicity,
			barangay_code, household_code,
			is_labor_force_employed, is_unemployed, is_out_of_school_children, is_out_of_school_youth,
			is_senior_citizen, is_indigenous_people, is_overseas_filipino_worker, is_person_with_disability,
			is_solo_parent, is_migrant, is_registered_senior_citizen,
			created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, NULLIF($9, ''), $10, $11,
			$12, $13, NULLIF($14, ''), $15, $16,
			$17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
			$30
		)
		RETURNING created_at, updated_at`

	s := res.Sectoral
	err := r.pool.QueryRow(ctx, query,
		res.ID, res.FirstName, res.MiddleName, res.LastName, res.ExtensionName, res.Sex, res.CivilStatus,
		nullableDate(res.Birthdate), res.BirthPlaceCode, res.BirthPlaceLabel, res.Citizenship,
		res.EmploymentStatus, res.EducationLevel, res.OccupationCode, res.OccupationLabel, res.Ethnicity,
		res.BarangayCode, res.HouseholdCode,
		s.IsEmployedInLaborForce, s.IsUnemployed, s.IsOutOfSchoolChildren, s.IsOutOfSchoolYouth,
		s.IsSeniorCitizen, s.IsIndigenousPerson, s.IsOverseasWorker, s.IsPersonWithDisability,
		s.IsSoloParent, s.IsMigrant, s.IsRegisteredSeniorCitizen,
		res.CreatedBy,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create resident")
	}
	return nil
}

// Get retrieves a resident by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Resident, error) {
	res, err := scanResident(r.pool.QueryRow(ctx, `SELECT `+residentColumns+` FROM residents WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("resident", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get resident")
	}
	return res, nil
}

// Update replaces a resident's fields and flags
func (r *Repository) Update(ctx context.Context, res *Resident) error {
	query := `
		UPDATE residents SET
			first_name = $2, middle_name = $3, last_name = $4, extension_name = $5,
			sex = $6, civil_status = $7, birthdate = $8,
			birth_place_code = NULLIF($9, ''), birth_place_label = $10, citizenship = $11,
			employment_status = $12, education_level = $13,
			occupation_code = NULLIF($14, ''), occupation_label = $15, ethnicity = $16,
			barangay_code = $17, household_code = $18,
			is_labor_force_employed = $19, is_unemployed = $20,
			is_out_of_school_children = $21, is_out_of_school_youth = $22,
			is_senior_citizen = $23, is_indigenous_people = $24,
			is_overseas_filipino_worker = $25, is_person_with_disability = $26,
			is_solo_parent = $27, is_migrant = $28, is_registered_senior_citizen = $29,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	s := res.Sectoral
	err := r.pool.QueryRow(ctx, query,
		res.ID, res.FirstName, res.MiddleName, res.LastName, res.ExtensionName,
		res.Sex, res.CivilStatus, nullableDate(res.Birthdate),
		res.BirthPlaceCode, res.BirthPlaceLabel, res.Citizenship,
		res.EmploymentStatus, res.EducationLevel,
		res.OccupationCode, res.OccupationLabel, res.Ethnicity,
		res.BarangayCode, res.HouseholdCode,
		s.IsEmployedInLaborForce, s.IsUnemployed,
		s.IsOutOfSchoolChildren, s.IsOutOfSchoolYouth,
		s.IsSeniorCitizen, s.IsIndigenousPerson,
		s.IsOverseasWorker, s.IsPersonWithDisability,
		s.IsSoloParent, s.IsMigrant, s.IsRegisteredSeniorCitizen,
	).Scan(&res.UpdatedAt)
	if err == pgx.ErrNoRows {
		return errors.NotFound("resident", res.ID.String())
	}
	if err != nil {
		return errors.Wrap(err, "failed to update resident")
	}
	return nil
}

// Delete removes a resident
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM residents WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete resident")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("resident", id.String())
	}
	return nil
}

// List lists residents with optional filters
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Resident, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.BarangayCode != "" {
		conditions = append(conditions, fmt.Sprintf("barangay_code = $%d", argNum))
		args = append(args, filter.BarangayCode)
		argNum++
	}

	if filter.HouseholdCode != "" {
		conditions = append(conditions, fmt.Sprintf("household_code = $%d", argNum))
		args = append(args, filter.HouseholdCode)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR middle_name ILIKE $%d)", argNum, argNum, argNum))
		args = append(args, database.LikePattern(filter.Search))
		argNum++
	}

	if col, ok := sectorColumns[filter.Sector]; ok {
		conditions = append(conditions, col)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM residents "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count residents")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM residents
		%s
		ORDER BY last_name, first_name, id
		LIMIT $%d OFFSET $%d`, residentColumns, whereClause, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list residents")
	}
	defer rows.Close()

	var residents []Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan resident")
		}
		residents = append(residents, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to iterate residents")
	}
	return residents, total, nil
}
