package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(r.Context(), w, NewError("route_not_found", "no route\nfor /x", http.StatusNotFound))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "route_not_found", body["error"])
	require.Equal(t, "no route for /x", body["message"])
	require.EqualValues(t, http.StatusNotFound, body["status"])
	require.NotEmpty(t, body["request_id"])
	require.NotContains(t, body, "trace_id")
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	err := NewError("boom", strings.Repeat("x", 600), 0)
	require.Equal(t, http.StatusInternalServerError, err.Status)
	require.Len(t, err.Message, 512)
	require.Equal(t, "not_ready: catalog not loaded", NewError("not_ready", "catalog not loaded", 503).Error())
}

func TestWriteJSONDisablesCaching(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]int{"count": 2})
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"count":2}`, rec.Body.String())
}
