// Package lookup serves the fixed option lists of the RBI form.
package lookup

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

// Option list kinds.
const (
	KindSex              = "sex"
	KindCivilStatus      = "civil_status"
	KindCitizenship      = "citizenship"
	KindEmploymentStatus = "employment_status"
	KindEducationLevel   = "education_level"
	KindEthnicity        = "ethnicity"
)

var (
	sexEntries = []typeahead.EnumEntry{
		{Value: "male", Label: "Male"},
		{Value: "female", Label: "Female"},
	}

	civilStatusEntries = []typeahead.EnumEntry{
		{Value: "single", Label: "Single"},
		{Value: "married", Label: "Married"},
		{Value: "live_in", Label: "Live-in"},
		{Value: "widowed", Label: "Widowed"},
		{Value: "separated", Label: "Separated"},
		{Value: "annulled", Label: "Annulled"},
	}

	citizenshipEntries = []typeahead.EnumEntry{
		{Value: "filipino", Label: "Filipino"},
		{Value: "dual", Label: "Dual citizen"},
		{Value: "foreigner", Label: "Foreign national"},
	}

	// majority groups listed alongside the configured indigenous groups
	majorityEthnicities = []string{
		"bicolano", "cebuano", "hiligaynon", "ilocano", "kapampangan",
		"maguindanao", "maranao", "pangasinense", "tagalog", "tausug", "waray",
	}
)

// Catalog holds every option list, built once at startup.
type Catalog struct {
	lists map[string][]typeahead.Option
}

// NewCatalog builds the lists; ethnicities come from the sectoral rules so
// the picker and the indigenous-person flag agree.
func NewCatalog(rules *sectoral.Rules) *Catalog {
	if rules == nil {
		rules = sectoral.DefaultRules()
	}

	employment := make([]typeahead.EnumEntry, 0, len(sectoral.EmploymentStatuses()))
	for _, s := range sectoral.EmploymentStatuses() {
		employment = append(employment, typeahead.EnumEntry{Value: string(s), Label: s.Label()})
	}
	education := make([]typeahead.EnumEntry, 0, len(sectoral.EducationLevels()))
	for _, l := range sectoral.EducationLevels() {
		education = append(education, typeahead.EnumEntry{Value: string(l), Label: l.Label()})
	}

	return &Catalog{lists: map[string][]typeahead.Option{
		KindSex:              typeahead.FromEnumEntries(sexEntries),
		KindCivilStatus:      typeahead.FromEnumEntries(civilStatusEntries),
		KindCitizenship:      typeahead.FromEnumEntries(citizenshipEntries),
		KindEmploymentStatus: typeahead.FromEnumEntries(employment),
		KindEducationLevel:   typeahead.FromEnumEntries(education),
		KindEthnicity:        ethnicityOptions(rules),
	}}
}

func ethnicityOptions(rules *sectoral.Rules) []typeahead.Option {
	title := cases.Title(language.English)
	seen := make(map[string]bool)
	var opts []typeahead.Option
	add := func(value string) {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		opt := typeahead.Option{Value: value, Label: title.String(strings.ReplaceAll(value, "_", " "))}
		if rules.IsIndigenous(value) {
			opt.Badge = "IP"
		}
		opts = append(opts, opt)
	}
	for _, g := range majorityEthnicities {
		add(g)
	}
	for _, g := range rules.IndigenousGroups {
		add(g)
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Label < opts[j].Label })
	return opts
}

// Kinds lists the available option lists.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.lists))
	for k := range c.lists {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Options returns the list for kind filtered by query.
func (c *Catalog) Options(kind, query string) ([]typeahead.Option, error) {
	list, ok := c.lists[kind]
	if !ok {
		return nil, errors.NotFound("option list", kind)
	}
	return typeahead.Filter(list, query), nil
}

// Valid reports whether value belongs to the kind's list. Empty values are valid.
func (c *Catalog) Valid(kind, value string) bool {
	if value == "" {
		return true
	}
	for _, o := range c.lists[kind] {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Label returns the display label for value, or value itself when unknown.
func (c *Catalog) Label(kind, value string) string {
	for _, o := range c.lists[kind] {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
