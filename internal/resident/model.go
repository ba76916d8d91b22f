// Package resident manages the Records of Barangay Inhabitants. Sectoral
// flags on a resident are recomputed on every write.
package resident

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Resident is one RBI record.
type Resident struct {
	ID            types.ID `json:"id"`
	FirstName     string   `json:"first_name"`
	MiddleName    string   `json:"middle_name,omitempty"`
	LastName      string   `json:"last_name"`
	ExtensionName string   `json:"extension_name,omitempty"`
	Sex           string   `json:"sex"`
	CivilStatus   string   `json:"civil_status,omitempty"`
	Birthdate     Date     `json:"birthdate"`
	// Age is computed on read and not stored.
	Age *int `json:"age,omitempty"`

	BirthPlaceCode   string                    `json:"birth_place_code,omitempty"`
	BirthPlaceLabel  string                    `json:"birth_place_label,omitempty"`
	Citizenship      string                    `json:"citizenship"`
	EmploymentStatus sectoral.EmploymentStatus `json:"employment_status,omitempty"`
	EducationLevel   sectoral.EducationLevel   `json:"education_level,omitempty"`
	OccupationCode   string                    `json:"occupation_code,omitempty"`
	OccupationLabel  string                    `json:"occupation_label,omitempty"`
	Ethnicity        string                    `json:"ethnicity,omitempty"`

	BarangayCode  string `json:"barangay_code"`
	HouseholdCode string `json:"household_code,omitempty"`

	Sectoral sectoral.Information `json:"sectoral"`

	CreatedBy types.ID  `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName renders "Last, First Middle Ext".
func (r Resident) FullName() string {
	given := strings.Join(strings.Fields(strings.Join([]string{r.FirstName, r.MiddleName, r.ExtensionName}, " ")), " ")
	if given == "" {
		return r.LastName
	}
	return r.LastName + ", " + given
}

// SectoralContext is the trigger input of the classification.
func (r Resident) SectoralContext() sectoral.Context {
	return sectoral.Context{
		Birthdate:        r.Birthdate.Time,
		EmploymentStatus: r.EmploymentStatus,
		Education:        r.EducationLevel,
		Ethnicity:        r.Ethnicity,
	}
}

// BirthPlace is the stored birth place as a picker option.
func (r Resident) BirthPlace() typeahead.Option {
	return typeahead.Option{Value: r.BirthPlaceCode, Label: r.BirthPlaceLabel}
}

// Occupation is the stored occupation as a picker option.
func (r Resident) Occupation() typeahead.Option {
	return typeahead.Option{Value: r.OccupationCode, Label: r.OccupationLabel}
}

// Request is the body of create and update. Update replaces every field.
type Request struct {
	FirstName        string                    `json:"first_name"`
	MiddleName       string                    `json:"middle_name"`
	LastName         string                    `json:"last_name"`
	ExtensionName    string                    `json:"extension_name"`
	Sex              string                    `json:"sex"`
	CivilStatus      string                    `json:"civil_status"`
	Birthdate        Date                      `json:"birthdate"`
	BirthPlaceCode   string                    `json:"birth_place_code"`
	BirthPlaceLabel  string                    `json:"birth_place_label"`
	Citizenship      string                    `json:"citizenship"`
	EmploymentStatus sectoral.EmploymentStatus `json:"employment_status"`
	EducationLevel   sectoral.EducationLevel   `json:"education_level"`
	OccupationCode   string                    `json:"occupation_code"`
	OccupationLabel  string                    `json:"occupation_label"`
	Ethnicity        string                    `json:"ethnicity"`
	BarangayCode     string                    `json:"barangay_code"`
	HouseholdCode    string                    `json:"household_code"`
	// Manual replaces the manual sectoral flags when present.
	Manual *sectoral.Manual `json:"manual_flags,omitempty"`
}

// PreviewRequest asks for the flags a form would get without saving.
type PreviewRequest struct {
	Birthdate        Date                      `json:"birthdate"`
	Age              *int                      `json:"age"`
	EmploymentStatus sectoral.EmploymentStatus `json:"employment_status"`
	EducationLevel   sectoral.EducationLevel   `json:"education_level"`
	Ethnicity        string                    `json:"ethnicity"`
	Manual           sectoral.Manual           `json:"manual_flags"`
}

// ListFilter narrows a resident listing.
type ListFilter struct {
	BarangayCode  string
	HouseholdCode string
	Search        string
	// Sector is a short flag name such as "senior" or "pwd".
	Sector string
	Limit  int
	Offset int
}
