package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

func TestClassify(t *testing.T) {
	res, err := classify(classifyOptions{
		birthdate:  "1961-05-02",
		employment: "retired",
		ethnicity:  "Ifugao",
		asOf:       "2026-10-17",
		manual:     sectoral.Manual{PersonWithDisability: true, RegisteredSeniorCitizen: true},
	}, false)
	require.NoError(t, err)

	require.NotNil(t, res.Age)
	assert.Equal(t, 65, *res.Age)
	assert.Equal(t, []string{"senior", "ip", "pwd", "registered_senior"}, res.Sectors)
}

func TestClassifyExplicitAge(t *testing.T) {
	res, err := classify(classifyOptions{age: 0, education: "no_formal_education"}, true)
	require.NoError(t, err)
	require.NotNil(t, res.Age)
	assert.Zero(t, *res.Age)
	assert.Equal(t, []string{}, res.Sectors)
}

func TestClassifyRejectsUnknownValues(t *testing.T) {
	_, err := classify(classifyOptions{employment: "astronaut"}, false)
	assert.Error(t, err)

	_, err = classify(classifyOptions{birthdate: "05/02/1961"}, false)
	assert.Error(t, err)
}

func TestClassifyCommandPrintsJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"classify", "--age", "70", "--solo-parent"})
	require.NoError(t, cmd.Execute())

	var res classifyResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, []string{"senior", "solo_parent"}, res.Sectors)
}

func TestRunPickerStatic(t *testing.T) {
	sel := typeahead.New(typeahead.Config{
		Searchable: true,
		Options: []typeahead.Option{
			{Value: "single", Label: "Single"},
			{Value: "widowed", Label: "Widowed"},
			{Value: "separated", Label: "Separated"},
		},
	})
	defer sel.Close()

	var out bytes.Buffer
	in := strings.NewReader("e\n/down\n/down\n/enter\n")
	require.NoError(t, runPicker(context.Background(), sel, in, &out))

	assert.Contains(t, out.String(), "> Single")
	assert.Contains(t, out.String(), "selected: Widowed (widowed)")
}

func TestRunPickerQuit(t *testing.T) {
	sel := typeahead.New(typeahead.Config{Options: []typeahead.Option{{Value: "a", Label: "A"}}})
	defer sel.Close()

	var out bytes.Buffer
	require.NoError(t, runPicker(context.Background(), sel, strings.NewReader("zzz\n/quit\n/enter\n"), &out))
	assert.NotContains(t, out.String(), "selected:")
}

func testApp() *App {
	return &App{
		Config: &config.Config{
			Server: config.ServerConfig{Env: "development"},
			Search: config.SearchConfig{MinQueryLength: 2, DefaultLimit: 20, MaxLimit: 100, RateLimit: 10, RateBurst: 10},
		},
		Logger: zap.NewNop(),
		Rules:  sectoral.DefaultRules(),
	}
}

func TestRouterWithoutDatabase(t *testing.T) {
	router := testApp().Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/options/sex", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "female")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/residents", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterRequiresAuthInProduction(t *testing.T) {
	app := testApp()
	app.Config.Server.Env = "production"
	app.Config.Auth = config.AuthConfig{JWTSecret: "s3cret"}

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/options/sex", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
