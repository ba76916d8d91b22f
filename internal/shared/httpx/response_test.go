package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barangay-rbi/registry/internal/shared/errors"
)

func TestWriteErrorAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.NotFound("place", "0101"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestWriteErrorWrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("lookup: %w", errors.BadRequest("bad")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorPlain(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("db down"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Barber"}`))
	var body struct {
		Title string `json:"title"`
	}
	assert.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "Barber", body.Title)

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, DecodeJSON(bad, &body))
}

func TestQueryIntAndClamp(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=x", nil)

	assert.Equal(t, 500, QueryInt(req, "limit", 20))
	assert.Equal(t, 0, QueryInt(req, "offset", 0))
	assert.Equal(t, 100, ClampLimit(500, 20, 100))
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 5, ClampLimit(5, 20, 100))
}
