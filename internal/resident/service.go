package resident

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/lookup"
	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/events"
	"github.com/barangay-rbi/registry/internal/shared/metrics"
	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	refreshPageSize = 200
)

// Store is the storage the service uses; *Repository implements it.
type Store interface {
	Create(ctx context.Context, r *Resident) error
	Get(ctx context.Context, id types.ID) (*Resident, error)
	Update(ctx context.Context, r *Resident) error
	Delete(ctx context.Context, id types.ID) error
	List(ctx context.Context, filter ListFilter) ([]Resident, int, error)
}

// Deps are the collaborators of a Service. Resolvers may be nil, which
// disables label reconciliation for that field.
type Deps struct {
	Store             Store
	Calculator        *sectoral.Calculator
	Catalog           *lookup.Catalog
	ResolvePlace      typeahead.ResolveFunc
	ResolveOccupation typeahead.ResolveFunc
	Publisher         events.Publisher
	Logger            *zap.Logger
}

// Service implements resident registration.
type Service struct {
	store       Store
	calc        *sectoral.Calculator
	catalog     *lookup.Catalog
	birthPlaces typeahead.Reconciler
	occupations typeahead.Reconciler
	publisher   events.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a resident service
func NewService(d Deps) *Service {
	if d.Calculator == nil {
		d.Calculator = sectoral.NewCalculator(nil, nil)
	}
	if d.Catalog == nil {
		d.Catalog = lookup.NewCatalog(d.Calculator.Rules())
	}
	if d.Publisher == nil {
		d.Publisher = events.Discard{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		store:   d.Store,
		calc:    d.Calculator,
		catalog: d.Catalog,
		// a saved birth place should read at least "City, Province"
		birthPlaces: typeahead.Reconciler{Incomplete: typeahead.LabelLacksHierarchy(2), Resolve: d.ResolvePlace, Logger: d.Logger},
		occupations: typeahead.Reconciler{Incomplete: typeahead.LabelMissing, Resolve: d.ResolveOccupation, Logger: d.Logger},
		publisher:   d.Publisher,
		logger:      d.Logger,
		now:         time.Now,
	}
}

// Create registers a resident, deriving the sectoral flags.
func (s *Service) Create(ctx context.Context, req Request, actor *auth.User) (*Resident, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := authorize(actor, req.BarangayCode); err != nil {
		return nil, err
	}

	res := &Resident{ID: types.NewID()}
	apply(res, req)
	if actor != nil {
		res.CreatedBy = actor.ID
	}

	res.Sectoral, _ = s.calc.Recompute(res.SectoralContext(), sectoral.Information{})
	if req.Manual != nil {
		res.Sectoral = sectoral.ApplyManual(res.Sectoral, *req.Manual)
	}
	metrics.RecordSectoralRecompute(res.Sectoral != sectoral.Information{})

	if err := s.store.Create(ctx, res); err != nil {
		return nil, err
	}
	metrics.RecordResidentCreated(res.BarangayCode)
	s.publish(ctx, events.TypeResidentCreated, res, actor, map[string]any{
		"resident_id": res.ID,
		"sectors":     res.Sectoral.Sectors(),
	})

	s.logger.Info("resident created",
		zap.String("resident_id", res.ID.String()),
		zap.String("barangay_code", res.BarangayCode),
		zap.Strings("sectors", res.Sectoral.Sectors()),
	)
	return s.decorate(res), nil
}

// Update replaces a resident's fields. Flags are recomputed from the new
// trigger inputs; manual flags are kept unless the request carries them.
func (s *Service) Update(ctx context.Context, id types.ID, req Request, actor *auth.User) (*Resident, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, res.BarangayCode); err != nil {
		return nil, err
	}
	if err := authorize(actor, req.BarangayCode); err != nil {
		return nil, err
	}

	before := res.Sectoral
	apply(res, req)
	res.Sectoral, _ = s.calc.Recompute(res.SectoralContext(), before)
	if req.Manual != nil {
		res.Sectoral = sectoral.ApplyManual(res.Sectoral, *req.Manual)
	}

	if err := s.save(ctx, res, before, actor); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeResidentUpdated, res, actor, map[string]any{"resident_id": res.ID})
	return s.decorate(res), nil
}

// UpdateManualFlags sets the five manual flags. Auto flags are refreshed
// first so a birthday since the last save is taken into account.
func (s *Service) UpdateManualFlags(ctx context.Context, id types.ID, manual sectoral.Manual, actor *auth.User) (*Resident, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, res.BarangayCode); err != nil {
		return nil, err
	}

	before := res.Sectoral
	res.Sectoral, _ = s.calc.Recompute(res.SectoralContext(), before)
	res.Sectoral = sectoral.ApplyManual(res.Sectoral, manual)
	if manual.RegisteredSeniorCitizen && !res.Sectoral.IsRegisteredSeniorCitizen {
		return nil, errors.Validation("validation failed", map[string]string{
			"is_registered_senior_citizen": "resident is not a senior citizen",
		})
	}

	if res.Sectoral == before {
		return s.decorate(res), nil
	}
	if err := s.save(ctx, res, before, actor); err != nil {
		return nil, err
	}
	return s.decorate(res), nil
}

// save writes res and announces a flag change when there was one.
func (s *Service) save(ctx context.Context, res *Resident, before sectoral.Information, actor *auth.User) error {
	changed := res.Sectoral != before
	metrics.RecordSectoralRecompute(changed)

	if err := s.store.Update(ctx, res); err != nil {
		return err
	}
	if changed {
		s.publish(ctx, events.TypeResidentSectoralChanged, res, actor, map[string]any{
			"resident_id": res.ID,
			"before":      before.Sectors(),
			"after":       res.Sectoral.Sectors(),
		})
	}
	return nil
}

// Get returns a resident with reconciled labels.
func (s *Service) Get(ctx context.Context, id types.ID, actor *auth.User) (*Resident, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, res.BarangayCode); err != nil {
		return nil, err
	}
	s.reconcile(ctx, res, nil)
	return s.decorate(res), nil
}

// List returns a page of residents. Non-admin officials only see their barangay.
func (s *Service) List(ctx context.Context, filter ListFilter, actor *auth.User) ([]Resident, int, error) {
	if filter.Sector != "" && !ValidSector(filter.Sector) {
		return nil, 0, errors.BadRequest("unknown sector " + filter.Sector)
	}
	if actor != nil && !actor.IsAdmin() && actor.BarangayCode != "" {
		filter.BarangayCode = actor.BarangayCode
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}

	residents, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[string]typeahead.Option)
	for i := range residents {
		s.reconcile(ctx, &residents[i], seen)
		s.decorate(&residents[i])
	}
	return residents, total, nil
}

// Delete removes a resident.
func (s *Service) Delete(ctx context.Context, id types.ID, actor *auth.User) error {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, res.BarangayCode); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.TypeResidentDeleted, res, actor, map[string]any{"resident_id": id})
	return nil
}

// Preview computes the flags a form would save, without persisting.
func (s *Service) Preview(req PreviewRequest) sectoral.Information {
	ctx := sectoral.Context{
		Birthdate:        req.Birthdate.Time,
		Age:              req.Age,
		EmploymentStatus: req.EmploymentStatus,
		Education:        req.EducationLevel,
		Ethnicity:        req.Ethnicity,
	}
	info, _ := s.calc.Recompute(ctx, sectoral.Information{})
	return sectoral.ApplyManual(info, req.Manual)
}

// Refresh recomputes stored flags for every resident matching filter, which
// picks up residents whose age crossed a threshold since their last save.
// It returns the number of residents whose flags changed. The sector filter
// is ignored since refreshed residents would move in and out of it mid-scan.
func (s *Service) Refresh(ctx context.Context, filter ListFilter) (int, error) {
	filter.Limit = refreshPageSize
	filter.Offset = 0
	filter.Sector = ""
	changed := 0
	for {
		page, _, err := s.store.List(ctx, filter)
		if err != nil {
			return changed, err
		}
		for i := range page {
			res := &page[i]
			before := res.Sectoral
			next, ok := s.calc.Recompute(res.SectoralContext(), before)
			if !ok {
				continue
			}
			res.Sectoral = next
			if err := s.save(ctx, res, before, nil); err != nil {
				return changed, err
			}
			changed++
		}
		if len(page) < filter.Limit {
			return changed, nil
		}
		filter.Offset += filter.Limit
	}
}

// Export writes the filtered residents as an xlsx workbook.
func (s *Service) Export(ctx context.Context, filter ListFilter, actor *auth.User, w io.Writer) error {
	filter.Limit = maxPageSize
	filter.Offset = 0
	var all []Resident
	for {
		page, _, err := s.List(ctx, filter, actor)
		if err != nil {
			return err
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.Offset += filter.Limit
	}
	return WriteWorkbook(w, all, s.catalog)
}

func (s *Service) validate(req Request) error {
	details := make(map[string]string)

	if strings.TrimSpace(req.FirstName) == "" {
		details["first_name"] = "first name is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		details["last_name"] = "last name is required"
	}
	if req.Sex == "" {
		details["sex"] = "sex is required"
	} else if !s.catalog.Valid(lookup.KindSex, req.Sex) {
		details["sex"] = "unknown sex"
	}
	if !s.catalog.Valid(lookup.KindCivilStatus, req.CivilStatus) {
		details["civil_status"] = "unknown civil status"
	}
	if !s.catalog.Valid(lookup.KindCitizenship, req.Citizenship) {
		details["citizenship"] = "unknown citizenship"
	}
	if req.EmploymentStatus != "" && !req.EmploymentStatus.Valid() {
		details["employment_status"] = "unknown employment status"
	}
	if req.EducationLevel != "" && !req.EducationLevel.Valid() {
		details["education_level"] = "unknown education level"
	}
	if !req.Birthdate.IsZero() && sectoral.AgeAt(req.Birthdate.Time, s.now()) < 0 {
		details["birthdate"] = "birthdate is in the future"
	}
	if code, err := types.ParsePSGCCode(req.BarangayCode); err != nil || code.Level() != types.GeoLevelBarangay {
		details["barangay_code"] = "a barangay PSGC code is required"
	}
	if req.BirthPlaceCode != "" {
		if _, err := types.ParsePSGCCode(req.BirthPlaceCode); err != nil {
			details["birth_place_code"] = "invalid PSGC code"
		}
	}

	if len(details) > 0 {
		return errors.Validation("validation failed", details)
	}
	return nil
}

func apply(res *Resident, req Request) {
	res.FirstName = strings.TrimSpace(req.FirstName)
	res.MiddleName = strings.TrimSpace(req.MiddleName)
	res.LastName = strings.TrimSpace(req.LastName)
	res.ExtensionName = strings.TrimSpace(req.ExtensionName)
	res.Sex = req.Sex
	res.CivilStatus = req.CivilStatus
	res.Birthdate = req.Birthdate
	res.BirthPlaceCode = req.BirthPlaceCode
	res.BirthPlaceLabel = strings.TrimSpace(req.BirthPlaceLabel)
	res.Citizenship = req.Citizenship
	if res.Citizenship == "" {
		res.Citizenship = "filipino"
	}
	res.EmploymentStatus = req.EmploymentStatus
	res.EducationLevel = req.EducationLevel
	res.OccupationCode = req.OccupationCode
	res.OccupationLabel = strings.TrimSpace(req.OccupationLabel)
	res.Ethnicity = strings.TrimSpace(req.Ethnicity)
	res.BarangayCode = req.BarangayCode
	if code, err := types.ParsePSGCCode(req.BarangayCode); err == nil {
		res.BarangayCode = code.String()
	}
	res.HouseholdCode = strings.TrimSpace(req.HouseholdCode)
}

// reconcile upgrades incomplete stored labels. seen memoises lookups
// across a page; it may be nil.
func (s *Service) reconcile(ctx context.Context, res *Resident, seen map[string]typeahead.Option) {
	resolve := func(r typeahead.Reconciler, kind string, opt typeahead.Option) typeahead.Option {
		if opt.Value == "" {
			return opt
		}
		key := kind + ":" + opt.Value
		if cached, ok := seen[key]; ok {
			return cached
		}
		out := r.Reconcile(ctx, opt)
		if seen != nil {
			seen[key] = out
		}
		return out
	}
	res.BirthPlaceLabel = resolve(s.birthPlaces, "place", res.BirthPlace()).Label
	res.OccupationLabel = resolve(s.occupations, "occupation", res.Occupation()).Label
}

// decorate fills read-only computed fields.
func (s *Service) decorate(res *Resident) *Resident {
	res.Age = nil
	if age, ok := res.SectoralContext().AgeOn(s.now()); ok {
		res.Age = &age
	}
	return res
}

func (s *Service) publish(ctx context.Context, eventType string, res *Resident, actor *auth.User, data map[string]any) {
	event := events.NewEvent(eventType, "resident", data)
	if actor != nil {
		event = event.WithActor(actor.ID, res.BarangayCode)
	} else {
		event.BarangayCode = res.BarangayCode
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// authorize keeps non-admin officials inside their own barangay.
func authorize(actor *auth.User, barangayCode string) error {
	if actor == nil || actor.IsAdmin() || actor.BarangayCode == "" {
		return nil
	}
	if actor.BarangayCode != barangayCode {
		return errors.Forbidden("resident belongs to another barangay")
	}
	return nil
}
