package sectoral

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// AgeRange is inclusive on both ends.
type AgeRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// Rules parameterise the classification.
type Rules struct {
	SchoolAge          AgeRange           `yaml:"school_age"`
	YouthAge           AgeRange           `yaml:"youth_age"`
	SeniorAge          int                `yaml:"senior_age"`
	EnrolledLevels     []EducationLevel   `yaml:"enrolled_levels"`
	TertiaryLevels     []EducationLevel   `yaml:"tertiary_levels"`
	LaborForceStatuses []EmploymentStatus `yaml:"labor_force_statuses"`
	UnemployedStatuses []EmploymentStatus `yaml:"unemployed_statuses"`
	IndigenousGroups   []string           `yaml:"indigenous_groups"`

	indigenous map[string]struct{}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	r, err := parseRules(defaultRulesYAML, &Rules{})
	if err != nil {
		panic(fmt.Sprintf("sectoral: embedded rules invalid: %v", err))
	}
	return r
}

// LoadRules reads a YAML rules file on top of the defaults.
// An empty path returns the defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sectoral rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses YAML rules on top of the defaults.
func ParseRules(data []byte) (*Rules, error) {
	return parseRules(data, DefaultRules())
}

func parseRules(data []byte, base *Rules) (*Rules, error) {
	r := *base
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse sectoral rules: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	r.indigenous = make(map[string]struct{}, len(r.IndigenousGroups))
	for _, g := range r.IndigenousGroups {
		r.indigenous[normalizeGroup(g)] = struct{}{}
	}
	return &r, nil
}

func (r *Rules) validate() error {
	if r.SchoolAge.Min > r.SchoolAge.Max || r.YouthAge.Min > r.YouthAge.Max {
		return fmt.Errorf("sectoral rules: age range min above max")
	}
	if r.SeniorAge <= 0 {
		return fmt.Errorf("sectoral rules: senior_age must be positive")
	}
	for _, levels := range [][]EducationLevel{r.EnrolledLevels, r.TertiaryLevels} {
		for _, l := range levels {
			if !l.Valid() {
				return fmt.Errorf("sectoral rules: unknown education level %q", l)
			}
		}
	}
	for _, statuses := range [][]EmploymentStatus{r.LaborForceStatuses, r.UnemployedStatuses} {
		for _, s := range statuses {
			if !s.Valid() {
				return fmt.Errorf("sectoral rules: unknown employment status %q", s)
			}
		}
	}
	return nil
}

// IsIndigenous reports whether ethnicity names a configured indigenous group.
func (r *Rules) IsIndigenous(ethnicity string) bool {
	_, ok := r.indigenous[normalizeGroup(ethnicity)]
	return ok
}

func normalizeGroup(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "'", "", " ", "_").Replace(s)
	return s
}
