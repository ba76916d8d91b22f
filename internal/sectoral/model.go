// Package sectoral derives the RBI sectoral classification flags from a
// resident's age, education, employment and ethnicity, layering the manually
// maintained flags on top.
package sectoral

import (
	"strings"
	"time"
)

// EmploymentStatus as recorded in the RBI form.
type EmploymentStatus string

const (
	Employed        EmploymentStatus = "employed"
	SelfEmployed    EmploymentStatus = "self_employed"
	Unemployed      EmploymentStatus = "unemployed"
	LookingForWork  EmploymentStatus = "looking_for_work"
	NotInLaborForce EmploymentStatus = "not_in_labor_force"
	Student         EmploymentStatus = "student"
	Retired         EmploymentStatus = "retired"
)

var employmentLabels = map[EmploymentStatus]string{
	Employed:        "Employed",
	SelfEmployed:    "Self-employed",
	Unemployed:      "Unemployed",
	LookingForWork:  "Looking for work",
	NotInLaborForce: "Not in the labor force",
	Student:         "Student",
	Retired:         "Retired",
}

// EmploymentStatuses lists the statuses in form order.
func EmploymentStatuses() []EmploymentStatus {
	return []EmploymentStatus{Employed, SelfEmployed, Unemployed, LookingForWork, NotInLaborForce, Student, Retired}
}

func (s EmploymentStatus) Valid() bool {
	_, ok := employmentLabels[s]
	return ok
}

func (s EmploymentStatus) Label() string {
	if l, ok := employmentLabels[s]; ok {
		return l
	}
	return string(s)
}

// EducationLevel is the highest educational attainment.
type EducationLevel string

const (
	NoFormalEducation  EducationLevel = "no_formal_education"
	Elementary         EducationLevel = "elementary"
	ElementaryGraduate EducationLevel = "elementary_graduate"
	HighSchool         EducationLevel = "high_school"
	HighSchoolGraduate EducationLevel = "high_school_graduate"
	Vocational         EducationLevel = "vocational"
	College            EducationLevel = "college"
	CollegeGraduate    EducationLevel = "college_graduate"
	PostGraduate       EducationLevel = "post_graduate"
)

var educationLabels = map[EducationLevel]string{
	NoFormalEducation:  "No formal education",
	Elementary:         "Elementary level",
	ElementaryGraduate: "Elementary graduate",
	HighSchool:         "High school level",
	HighSchoolGraduate: "High school graduate",
	Vocational:         "Vocational / technical",
	College:            "College level",
	CollegeGraduate:    "College graduate",
	PostGraduate:       "Post-graduate",
}

// EducationLevels lists the levels from lowest to highest.
func EducationLevels() []EducationLevel {
	return []EducationLevel{
		NoFormalEducation, Elementary, ElementaryGraduate, HighSchool, HighSchoolGraduate,
		Vocational, College, CollegeGraduate, PostGraduate,
	}
}

func (e EducationLevel) Valid() bool {
	_, ok := educationLabels[e]
	return ok
}

func (e EducationLevel) Label() string {
	if l, ok := educationLabels[e]; ok {
		return l
	}
	return string(e)
}

// Context holds the trigger inputs of a recomputation. It never contains
// flags, so feeding the output back cannot retrigger the engine.
type Context struct {
	Birthdate        time.Time        `json:"birthdate,omitempty"`
	Age              *int             `json:"age,omitempty"`
	EmploymentStatus EmploymentStatus `json:"employment_status,omitempty"`
	Education        EducationLevel   `json:"education,omitempty"`
	Ethnicity        string           `json:"ethnicity,omitempty"`
}

// Equal reports whether both contexts would derive the same flags on the same day.
func (c Context) Equal(o Context) bool {
	if (c.Age == nil) != (o.Age == nil) || (c.Age != nil && *c.Age != *o.Age) {
		return false
	}
	return c.Birthdate.Equal(o.Birthdate) &&
		c.EmploymentStatus == o.EmploymentStatus &&
		c.Education == o.Education &&
		strings.EqualFold(strings.TrimSpace(c.Ethnicity), strings.TrimSpace(o.Ethnicity))
}

// AgeOn resolves the age on now: the explicit age if given, otherwise from
// the birthdate. ok is false when neither is usable.
func (c Context) AgeOn(now time.Time) (age int, ok bool) {
	if c.Age != nil {
		if *c.Age < 0 {
			return 0, false
		}
		return *c.Age, true
	}
	if c.Birthdate.IsZero() {
		return 0, false
	}
	age = AgeAt(c.Birthdate, now)
	if age < 0 {
		return 0, false
	}
	return age, true
}

// AgeAt is the number of whole years between birthdate and now. A birthday
// not yet reached this year does not count. Only calendar fields are
// compared: the birthdate is a date, and today is the day now falls on in
// its own location.
func AgeAt(birthdate, now time.Time) int {
	by, bm, bd := birthdate.Date()
	ny, nm, nd := now.Date()

	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	return age
}

// Derived are the flags owned by the engine.
type Derived struct {
	EmployedInLaborForce bool
	Unemployed           bool
	OutOfSchoolChildren  bool
	OutOfSchoolYouth     bool
	SeniorCitizen        bool
	IndigenousPerson     bool
}

// Manual are the flags maintained by the encoder.
type Manual struct {
	OverseasWorker          bool `json:"is_overseas_worker"`
	PersonWithDisability    bool `json:"is_person_with_disability"`
	SoloParent              bool `json:"is_solo_parent"`
	Migrant                 bool `json:"is_migrant"`
	RegisteredSeniorCitizen bool `json:"is_registered_senior_citizen"`
}

// Information is the persisted sectoral record.
type Information struct {
	IsEmployedInLaborForce    bool `json:"is_employed_in_labor_force"`
	IsUnemployed              bool `json:"is_unemployed"`
	IsOutOfSchoolChildren     bool `json:"is_out_of_school_children"`
	IsOutOfSchoolYouth        bool `json:"is_out_of_school_youth"`
	IsSeniorCitizen           bool `json:"is_senior_citizen"`
	IsIndigenousPerson        bool `json:"is_indigenous_person"`
	IsOverseasWorker          bool `json:"is_overseas_worker"`
	IsPersonWithDisability    bool `json:"is_person_with_disability"`
	IsSoloParent              bool `json:"is_solo_parent"`
	IsMigrant                 bool `json:"is_migrant"`
	IsRegisteredSeniorCitizen bool `json:"is_registered_senior_citizen"`
}

// Derived returns the engine-owned part.
func (i Information) Derived() Derived {
	return Derived{
		EmployedInLaborForce: i.IsEmployedInLaborForce,
		Unemployed:           i.IsUnemployed,
		OutOfSchoolChildren:  i.IsOutOfSchoolChildren,
		OutOfSchoolYouth:     i.IsOutOfSchoolYouth,
		SeniorCitizen:        i.IsSeniorCitizen,
		IndigenousPerson:     i.IsIndigenousPerson,
	}
}

// Manual returns the encoder-owned part.
func (i Information) Manual() Manual {
	return Manual{
		OverseasWorker:          i.IsOverseasWorker,
		PersonWithDisability:    i.IsPersonWithDisability,
		SoloParent:              i.IsSoloParent,
		Migrant:                 i.IsMigrant,
		RegisteredSeniorCitizen: i.IsRegisteredSeniorCitizen,
	}
}

// Sectors lists the set flags by their short names, in form order.
func (i Information) Sectors() []string {
	var out []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{i.IsEmployedInLaborForce, "labor_force"},
		{i.IsUnemployed, "unemployed"},
		{i.IsOutOfSchoolChildren, "osc"},
		{i.IsOutOfSchoolYouth, "osy"},
		{i.IsSeniorCitizen, "senior"},
		{i.IsIndigenousPerson, "ip"},
		{i.IsOverseasWorker, "ofw"},
		{i.IsPersonWithDisability, "pwd"},
		{i.IsSoloParent, "solo_parent"},
		{i.IsMigrant, "migrant"},
		{i.IsRegisteredSeniorCitizen, "registered_senior"},
	} {
		if f.set {
			out = append(out, f.name)
		}
	}
	return out
}
