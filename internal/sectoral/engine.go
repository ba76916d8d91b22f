package sectoral

import (
	"slices"
	"sync"
	"time"
)

// Derive computes the engine-owned flags. Missing inputs leave their flags false.
func (r *Rules) Derive(c Context, now time.Time) Derived {
	d := Derived{
		EmployedInLaborForce: slices.Contains(r.LaborForceStatuses, c.EmploymentStatus),
		Unemployed:           slices.Contains(r.UnemployedStatuses, c.EmploymentStatus),
		IndigenousPerson:     c.Ethnicity != "" && r.IsIndigenous(c.Ethnicity),
	}

	age, ok := c.AgeOn(now)
	if !ok {
		return d
	}
	d.SeniorCitizen = age >= r.SeniorAge
	if c.Education == "" {
		return d
	}
	d.OutOfSchoolChildren = r.SchoolAge.Contains(age) && !slices.Contains(r.EnrolledLevels, c.Education)
	d.OutOfSchoolYouth = r.YouthAge.Contains(age) &&
		!slices.Contains(r.TertiaryLevels, c.Education) &&
		!d.EmployedInLaborForce
	return d
}

// Merge writes d into the engine-owned slots of current. Manual flags are
// kept, except that a registered senior citizen must be a senior citizen.
func Merge(current Information, d Derived) Information {
	next := current
	next.IsEmployedInLaborForce = d.EmployedInLaborForce
	next.IsUnemployed = d.Unemployed
	next.IsOutOfSchoolChildren = d.OutOfSchoolChildren
	next.IsOutOfSchoolYouth = d.OutOfSchoolYouth
	next.IsSeniorCitizen = d.SeniorCitizen
	next.IsIndigenousPerson = d.IndigenousPerson
	if !next.IsSeniorCitizen {
		next.IsRegisteredSeniorCitizen = false
	}
	return next
}

// ApplyManual replaces the manual flags of current under the same constraint.
func ApplyManual(current Information, m Manual) Information {
	next := current
	next.IsOverseasWorker = m.OverseasWorker
	next.IsPersonWithDisability = m.PersonWithDisability
	next.IsSoloParent = m.SoloParent
	next.IsMigrant = m.Migrant
	next.IsRegisteredSeniorCitizen = m.RegisteredSeniorCitizen && next.IsSeniorCitizen
	return next
}

// Calculator recomputes stored flags from a context.
type Calculator struct {
	rules *Rules
	now   func() time.Time
}

// NewCalculator uses DefaultRules when rules is nil and the wall clock when now is nil.
func NewCalculator(rules *Rules, now func() time.Time) *Calculator {
	if rules == nil {
		rules = DefaultRules()
	}
	if now == nil {
		now = time.Now
	}
	return &Calculator{rules: rules, now: now}
}

// Rules returns the active rule set.
func (c *Calculator) Rules() *Rules {
	return c.rules
}

// Recompute merges freshly derived flags into current and reports whether
// anything changed. Recomputing its own output is a no-op.
func (c *Calculator) Recompute(ctx Context, current Information) (Information, bool) {
	next := Merge(current, c.rules.Derive(ctx, c.now()))
	return next, next != current
}

// Tracker holds one record's flags and recomputes them only when the trigger
// context changes. OnChange fires only when the flags actually differ.
type Tracker struct {
	calc     *Calculator
	onChange func(Information)

	mu   sync.Mutex
	last *Context
	info Information
}

// NewTracker starts from the stored flags.
func NewTracker(calc *Calculator, stored Information, onChange func(Information)) *Tracker {
	return &Tracker{calc: calc, info: stored, onChange: onChange}
}

// Update feeds a context. The returned bool reports whether flags changed.
func (t *Tracker) Update(ctx Context) (Information, bool) {
	t.mu.Lock()
	if t.last != nil && t.last.Equal(ctx) {
		info := t.info
		t.mu.Unlock()
		return info, false
	}
	key := ctx
	if ctx.Age != nil {
		age := *ctx.Age
		key.Age = &age
	}
	t.last = &key

	next, changed := t.calc.Recompute(ctx, t.info)
	t.info = next
	t.mu.Unlock()

	if changed && t.onChange != nil {
		t.onChange(next)
	}
	return next, changed
}

// SetManual updates the manual flags.
func (t *Tracker) SetManual(m Manual) (Information, bool) {
	t.mu.Lock()
	prev := t.info
	t.info = ApplyManual(prev, m)
	next := t.info
	t.mu.Unlock()

	changed := next != prev
	if changed && t.onChange != nil {
		t.onChange(next)
	}
	return next, changed
}

// Information returns the current flags.
func (t *Tracker) Information() Information {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}
