package resident

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/events"
	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const (
	barangayA = "1374040001"
	barangayB = "1374040002"
)

var today = time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu        sync.Mutex
	residents map[types.ID]Resident
	updates   int
	lists     []ListFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{residents: make(map[types.ID]Resident)}
}

func (f *fakeStore) Create(ctx context.Context, r *Resident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.CreatedAt = today
	r.UpdatedAt = today
	f.residents[r.ID] = *r
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id types.ID) (*Resident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.residents[id]
	if !ok {
		return nil, errors.NotFound("resident", id.String())
	}
	return &r, nil
}

func (f *fakeStore) Update(ctx context.Context, r *Resident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.residents[r.ID]; !ok {
		return errors.NotFound("resident", r.ID.String())
	}
	f.updates++
	f.residents[r.ID] = *r
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id types.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.residents[id]; !ok {
		return errors.NotFound("resident", id.String())
	}
	delete(f.residents, id)
	return nil
}

func (f *fakeStore) List(ctx context.Context, filter ListFilter) ([]Resident, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, filter)

	var all []Resident
	for _, r := range f.residents {
		if filter.BarangayCode != "" && r.BarangayCode != filter.BarangayCode {
			continue
		}
		if filter.Sector != "" && !slices.Contains(r.Sectoral.Sectors(), filter.Sector) {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastName != all[j].LastName {
			return all[i].LastName < all[j].LastName
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(store Store, pub events.Publisher, resolvePlace typeahead.ResolveFunc) *Service {
	svc := NewService(Deps{
		Store:        store,
		Calculator:   sectoral.NewCalculator(nil, func() time.Time { return today }),
		ResolvePlace: resolvePlace,
		Publisher:    pub,
		Logger:       zap.NewNop(),
	})
	svc.now = func() time.Time { return today }
	return svc
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func seniorRequest(t *testing.T) Request {
	return Request{
		FirstName:        "Leonora",
		LastName:         "Basyang",
		Sex:              "female",
		CivilStatus:      "widowed",
		Birthdate:        mustDate(t, "1950-03-01"),
		EmploymentStatus: sectoral.Employed,
		Ethnicity:        "Ifugao",
		BarangayCode:     barangayA,
		Manual:           &sectoral.Manual{PersonWithDisability: true},
	}
}

func TestCreateDerivesFlags(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, nil)

	res, err := svc.Create(context.Background(), seniorRequest(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"labor_force", "senior", "ip", "pwd"}, res.Sectoral.Sectors())
	assert.Equal(t, "filipino", res.Citizenship)
	require.NotNil(t, res.Age)
	assert.Equal(t, 76, *res.Age)
	assert.Equal(t, []string{events.TypeResidentCreated}, pub.eventTypes())

	stored, err := store.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Sectoral, stored.Sectoral)
}

func TestCreateDropsRegisteredSeniorForNonSenior(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	req := seniorRequest(t)
	req.Birthdate = mustDate(t, "1990-01-01")
	req.Manual = &sectoral.Manual{RegisteredSeniorCitizen: true}

	res, err := svc.Create(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, res.Sectoral.IsSeniorCitizen)
	assert.False(t, res.Sectoral.IsRegisteredSeniorCitizen)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)

	_, err := svc.Create(context.Background(), Request{
		Sex:          "robot",
		Birthdate:    Date{today.AddDate(0, 0, 1)},
		BarangayCode: "1374040000",
	}, nil)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	for _, field := range []string{"first_name", "last_name", "sex", "birthdate", "barangay_code"} {
		assert.Contains(t, appErr.Details, field)
	}
}

func TestCreateBirthdateUsesLocalDay(t *testing.T) {
	// 06:00 in Manila on the 17th is still the 16th in UTC
	manilaMorning := time.Date(2026, time.October, 17, 6, 0, 0, 0, time.FixedZone("PHT", 8*60*60))
	svc := NewService(Deps{
		Store:      newFakeStore(),
		Calculator: sectoral.NewCalculator(nil, func() time.Time { return manilaMorning }),
		Logger:     zap.NewNop(),
	})
	svc.now = func() time.Time { return manilaMorning }

	req := seniorRequest(t)
	req.Birthdate = mustDate(t, "1966-10-17")
	r, err := svc.Create(context.Background(), req, nil)
	require.NoError(t, err)
	require.NotNil(t, r.Age)
	assert.Equal(t, 60, *r.Age)
	assert.True(t, r.Sectoral.IsSeniorCitizen)

	req.Birthdate = mustDate(t, "2026-10-17")
	_, err = svc.Create(context.Background(), req, nil)
	require.NoError(t, err)
}

func TestUpdateKeepsManualFlags(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, seniorRequest(t), nil)
	require.NoError(t, err)

	req := seniorRequest(t)
	req.Manual = nil
	req.EmploymentStatus = sectoral.Retired
	updated, err := svc.Update(ctx, res.ID, req, nil)
	require.NoError(t, err)

	assert.False(t, updated.Sectoral.IsEmployedInLaborForce)
	assert.True(t, updated.Sectoral.IsPersonWithDisability, "manual flag survives recompute")
	assert.Equal(t, []string{
		events.TypeResidentCreated,
		events.TypeResidentSectoralChanged,
		events.TypeResidentUpdated,
	}, pub.eventTypes())
}

func TestUpdateWithoutFlagChangeSkipsSectoralEvent(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, seniorRequest(t), nil)
	require.NoError(t, err)

	req := seniorRequest(t)
	req.HouseholdCode = "HH-0042"
	_, err = svc.Update(ctx, res.ID, req, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{events.TypeResidentCreated, events.TypeResidentUpdated}, pub.eventTypes())
}

func TestUpdateManualFlags(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, seniorRequest(t), nil)
	require.NoError(t, err)

	updated, err := svc.UpdateManualFlags(ctx, res.ID, sectoral.Manual{SoloParent: true, RegisteredSeniorCitizen: true}, nil)
	require.NoError(t, err)
	assert.True(t, updated.Sectoral.IsSoloParent)
	assert.True(t, updated.Sectoral.IsRegisteredSeniorCitizen)
	assert.False(t, updated.Sectoral.IsPersonWithDisability)
	assert.True(t, updated.Sectoral.IsSeniorCitizen, "auto flags untouched")
	assert.Equal(t, 1, store.updates)

	_, err = svc.UpdateManualFlags(ctx, res.ID, sectoral.Manual{SoloParent: true, RegisteredSeniorCitizen: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.updates, "unchanged flags are not rewritten")
}

func TestUpdateManualFlagsRejectsRegisteredNonSenior(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	req := seniorRequest(t)
	req.Birthdate = mustDate(t, "1985-06-15")
	res, err := svc.Create(ctx, req, nil)
	require.NoError(t, err)

	_, err = svc.UpdateManualFlags(ctx, res.ID, sectoral.Manual{RegisteredSeniorCitizen: true}, nil)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Contains(t, appErr.Details, "is_registered_senior_citizen")
	assert.Zero(t, store.updates)
}

func TestGetReconcilesBirthPlace(t *testing.T) {
	store := newFakeStore()
	calls := 0
	resolve := func(ctx context.Context, value string) (typeahead.Option, error) {
		calls++
		return typeahead.Option{Value: value, Label: "Quezon City, Metro Manila, NCR"}, nil
	}
	svc := newTestService(store, nil, resolve)
	ctx := context.Background()

	req := seniorRequest(t)
	req.BirthPlaceCode = "1374040000"
	req.BirthPlaceLabel = "Quezon City"
	res, err := svc.Create(ctx, req, nil)
	require.NoError(t, err)

	got, err := svc.Get(ctx, res.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "1374040000", got.BirthPlaceCode)
	assert.Equal(t, "Quezon City, Metro Manila, NCR", got.BirthPlaceLabel)
	assert.Equal(t, 1, calls)
}

func TestListMemoisesReconciliation(t *testing.T) {
	store := newFakeStore()
	calls := 0
	resolve := func(ctx context.Context, value string) (typeahead.Option, error) {
		calls++
		return typeahead.Option{}, errors.NotFound("place", value)
	}
	svc := newTestService(store, nil, resolve)
	ctx := context.Background()

	for _, last := range []string{"Cruz", "Reyes", "Santos"} {
		req := seniorRequest(t)
		req.LastName = last
		req.BirthPlaceCode = "0722170000"
		req.BirthPlaceLabel = "Cebu City"
		_, err := svc.Create(ctx, req, nil)
		require.NoError(t, err)
	}

	residents, total, err := svc.List(ctx, ListFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, residents, 3)
	assert.Equal(t, "Cebu City", residents[0].BirthPlaceLabel, "failed lookups keep the stored label")
	assert.Equal(t, 1, calls)
	assert.Equal(t, defaultPageSize, store.lists[0].Limit)
}

func TestBarangayScoping(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, seniorRequest(t), nil)
	require.NoError(t, err)

	outsider := &auth.User{ID: types.NewID(), BarangayCode: barangayB, Roles: []string{auth.RoleEncoder}}
	_, err = svc.Get(ctx, res.ID, outsider)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)

	_, err = svc.Create(ctx, seniorRequest(t), outsider)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)

	residents, _, err := svc.List(ctx, ListFilter{BarangayCode: barangayA}, outsider)
	require.NoError(t, err)
	assert.Empty(t, residents)
	assert.Equal(t, barangayB, store.lists[len(store.lists)-1].BarangayCode)

	admin := &auth.User{ID: types.NewID(), Roles: []string{auth.RoleAdmin}}
	got, err := svc.Get(ctx, res.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestListRejectsUnknownSector(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	_, _, err := svc.List(context.Background(), ListFilter{Sector: "astronaut"}, nil)
	assert.Error(t, err)
}

func TestRefreshPicksUpBirthdays(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub, nil)

	// turned 60 a week ago, stored before the birthday
	turned := Resident{
		ID:           types.NewID(),
		FirstName:    "Ramon",
		LastName:     "Dizon",
		Birthdate:    mustDate(t, "1966-10-10"),
		BarangayCode: barangayA,
	}
	steady := Resident{
		ID:           types.NewID(),
		FirstName:    "Ana",
		LastName:     "Lim",
		Birthdate:    mustDate(t, "1999-01-01"),
		BarangayCode: barangayA,
	}
	require.NoError(t, store.Create(context.Background(), &turned))
	require.NoError(t, store.Create(context.Background(), &steady))

	changed, err := svc.Refresh(context.Background(), ListFilter{Sector: "senior"})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := store.Get(context.Background(), turned.ID)
	require.NoError(t, err)
	assert.True(t, got.Sectoral.IsSeniorCitizen)
	assert.Equal(t, []string{events.TypeResidentSectoralChanged}, pub.eventTypes())

	changed, err = svc.Refresh(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, changed, "second pass is a no-op")
}

func TestPreview(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	age := 16

	info := svc.Preview(PreviewRequest{
		Age:            &age,
		EducationLevel: sectoral.ElementaryGraduate,
		Ethnicity:      "manobo",
		Manual:         sectoral.Manual{Migrant: true, RegisteredSeniorCitizen: true},
	})

	assert.Equal(t, []string{"osc", "ip", "migrant"}, info.Sectors())
}

func TestDateJSON(t *testing.T) {
	var r Request
	require.NoError(t, json.Unmarshal([]byte(`{"birthdate":"2001-02-03"}`), &r))
	assert.Equal(t, "2001-02-03", r.Birthdate.String())

	require.NoError(t, json.Unmarshal([]byte(`{"birthdate":""}`), &r))
	assert.True(t, r.Birthdate.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"birthdate":"03/02/2001"}`), &r))

	out, err := json.Marshal(Resident{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"birthdate":null`)
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Dela Cruz, Juan Santos Jr.", Resident{FirstName: "Juan", MiddleName: "Santos", LastName: "Dela Cruz", ExtensionName: "Jr."}.FullName())
	assert.Equal(t, "Dela Cruz", Resident{LastName: "Dela Cruz"}.FullName())
}

func TestWriteWorkbook(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	res, err := svc.Create(context.Background(), seniorRequest(t), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, []Resident{*res}, svc.catalog))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Last Name", rows[0][0])
	assert.Equal(t, "Sectors", rows[0][len(rows[0])-1])

	row := rows[1]
	assert.Equal(t, "Basyang", row[0])
	assert.Equal(t, "Female", row[4])
	assert.Equal(t, "1950-03-01", row[5])
	assert.Equal(t, "76", row[6])
	assert.Equal(t, "Widowed", row[7])
	assert.Equal(t, "labor_force, senior, ip, pwd", row[len(row)-1])
}

func newRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Mount("/residents", NewHandler(svc).Routes())
	return r
}

func TestHandlerCreateAndGet(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	router := newRouter(svc)

	body := `{"first_name":"Leonora","last_name":"Basyang","sex":"female","birthdate":"1950-03-01",
		"employment_status":"employed","barangay_code":"1374040001","manual_flags":{"is_solo_parent":true}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/residents", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data Resident `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Data.Sectoral.IsSeniorCitizen)
	assert.True(t, created.Data.Sectoral.IsSoloParent)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/residents/"+created.Data.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/residents?sector=senior", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data  []Resident `json:"data"`
		Total int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}

func TestHandlerErrors(t *testing.T) {
	router := newRouter(newTestService(newFakeStore(), nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/residents/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/residents/"+types.NewID().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/residents", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	viewer := httptest.NewRequest(http.MethodPost, "/residents", strings.NewReader(`{}`))
	viewer = viewer.WithContext(auth.WithUser(viewer.Context(), &auth.User{Roles: []string{auth.RoleViewer}}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerManualFlagsAndDelete(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	router := newRouter(svc)

	res, err := svc.Create(context.Background(), seniorRequest(t), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/residents/"+res.ID.String()+"/sectoral",
		strings.NewReader(`{"is_overseas_worker":true}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data Resident `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Sectoral.IsOverseasWorker)
	assert.False(t, body.Data.Sectoral.IsPersonWithDisability)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/residents/"+res.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerPreviewAndExport(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/residents/sectoral/preview",
		strings.NewReader(`{"age":20,"education_level":"high_school_graduate","employment_status":"unemployed"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var preview struct {
		Data sectoral.Information `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, []string{"unemployed", "osy"}, preview.Data.Sectors())

	_, err := svc.Create(context.Background(), seniorRequest(t), nil)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/residents/export?barangay="+barangayA, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rbi-"+barangayA+".xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
