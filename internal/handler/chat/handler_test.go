package chat

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
	"github.com/zhouzirui/daybook/internal/service/session"
)

var fixedNow = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

func setupRouter() (*chi.Mux, *handlertest.Fixture) {
	fx := handlertest.New(fixedNow)
	r := chi.NewRouter()
	New(fx.Coordinator, nil).RegisterRoutes(r)
	return r, fx
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func start(t *testing.T, r http.Handler) session.StartResult {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/chat/start", map[string]string{"userName": "Ada"})
	require.Equal(t, http.StatusCreated, resp.Code)

	var result session.StartResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.NotEmpty(t, result.SessionID)
	return result
}

func TestStartSession(t *testing.T) {
	r, _ := setupRouter()
	result := start(t, r)
	assert.True(t, result.Success)
	assert.Contains(t, result.Greeting, "Ada")
}

func TestStartSessionEmptyBody(t *testing.T) {
	r, _ := setupRouter()
	req := httptest.NewRequest(http.MethodPost, "/chat/start", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestMessageAndClose(t *testing.T) {
	r, fx := setupRouter()
	id := start(t, r).SessionID

	resp := do(t, r, http.MethodPost, "/chat/"+id+"/message", map[string]string{"message": "walked by the river"})
	require.Equal(t, http.StatusOK, resp.Code)
	var turn session.TurnResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &turn))
	assert.Equal(t, handlertest.Reply, turn.Reply)
	require.NotNil(t, turn.Emotions)

	resp = do(t, r, http.MethodPost, "/chat/"+id+"/close", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &turn))
	assert.True(t, turn.ShouldEnd)
	require.NotNil(t, turn.Closing)
	assert.True(t, turn.Closing.Saved)

	entry, err := fx.Store.ReadEntry(t.Context(), "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, handlertest.Narrative, entry.Text)

	resp = do(t, r, http.MethodPost, "/chat/"+id+"/message", map[string]string{"message": "again"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestMessageErrors(t *testing.T) {
	r, _ := setupRouter()

	resp := do(t, r, http.MethodPost, "/chat/unknown/message", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	id := start(t, r).SessionID
	resp = do(t, r, http.MethodPost, "/chat/"+id+"/message", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/chat/"+id+"/message", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrisisMessage(t *testing.T) {
	r, fx := setupRouter()
	id := start(t, r).SessionID

	resp := do(t, r, http.MethodPost, "/chat/"+id+"/message", map[string]string{"message": "I want to end my life"})
	require.Equal(t, http.StatusOK, resp.Code)

	var turn session.TurnResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &turn))
	assert.True(t, turn.CrisisDetected)
	assert.True(t, turn.ShouldEnd)
	assert.Zero(t, fx.Dialogue.CallCount())
}

func TestEndAndStatus(t *testing.T) {
	r, fx := setupRouter()
	id := start(t, r).SessionID

	resp := do(t, r, http.MethodGet, "/chat/"+id, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var status session.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.True(t, status.Active)
	assert.Equal(t, "Ada", status.UserName)

	resp = do(t, r, http.MethodPost, "/chat/"+id+"/end", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, r, http.MethodGet, "/chat/"+id, nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.False(t, status.Active)
	assert.Zero(t, fx.Store.Writes())

	resp = do(t, r, http.MethodPost, "/chat/missing/end", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
