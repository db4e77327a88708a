package journal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/daybook/internal/handler/handlertest"
)

func setup() (*chi.Mux, *handlertest.Fixture) {
	fx := handlertest.New(time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC))
	r := chi.NewRouter()
	New(fx.Coordinator, fx.Insights, nil).RegisterRoutes(r)
	return r, fx
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var decoded map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &decoded)
	return resp, decoded
}

func TestSaveEntryAndStats(t *testing.T) {
	r, _ := setup()

	resp, body := do(r, http.MethodPost, "/entries", `{"content": "Wrote by hand today."}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "2025-03-10", body["date"])
	assert.EqualValues(t, 1, body["streak"])

	resp, body = do(r, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, resp.Code)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["totalEntries"])
	assert.Equal(t, "2025-03-10", stats["lastEntryDate"])
}

func TestSaveEntryRejectsEmpty(t *testing.T) {
	r, _ := setup()
	resp, _ := do(r, http.MethodPost, "/entries", `{"content": "   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRecentEntries(t *testing.T) {
	r, _ := setup()
	do(r, http.MethodPost, "/entries", `{"content": "A good day."}`)

	resp, body := do(r, http.MethodGet, "/entries/recent?days=3", "")
	require.Equal(t, http.StatusOK, resp.Code)
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	first := entries[0].(map[string]any)
	assert.Equal(t, "A good day.", first["entry"])
	assert.Contains(t, first, "mood")

	resp, _ = do(r, http.MethodGet, "/entries/recent?days=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCalendar(t *testing.T) {
	r, _ := setup()
	do(r, http.MethodPost, "/entries", `{"content": "March entry."}`)

	resp, body := do(r, http.MethodGet, "/calendar?month=2025-03", "")
	require.Equal(t, http.StatusOK, resp.Code)
	cal := body["calendar"].(map[string]any)
	assert.Equal(t, []any{"2025-03-10"}, cal["completedDates"])

	resp, _ = do(r, http.MethodGet, "/calendar?month=03-2025", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSentiment(t *testing.T) {
	r, _ := setup()
	do(r, http.MethodPost, "/entries", `{"content": "Felt great."}`)

	resp, body := do(r, http.MethodGet, "/sentiment?days=30", "")
	require.Equal(t, http.StatusOK, resp.Code)
	data := body["sentiment"].(map[string]any)
	series := data["series"].(map[string]any)
	assert.Equal(t, []any{"10/03"}, series["labels"])
	assert.Equal(t, []any{8.0}, series["happiness"])
}
