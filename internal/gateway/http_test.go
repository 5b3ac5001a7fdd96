package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/flowtest/internal/orchestrator"
	"github.com/arjun/flowtest/internal/store"
)

type fakeRuns struct {
	lastReq orchestrator.RunRequest
	snaps   map[string]store.RunSnapshot
}

func (f *fakeRuns) StartRun(req orchestrator.RunRequest) string {
	f.lastReq = req
	return "run-123"
}

func (f *fakeRuns) GetRun(runID string) store.RunSnapshot {
	if snap, ok := f.snaps[runID]; ok {
		return snap
	}
	return store.RunSnapshot{Run: map[string]string{}}
}

func newTestServer() (*fakeRuns, http.Handler) {
	runs := &fakeRuns{snaps: map[string]store.RunSnapshot{
		"run-123": {
			Run:   map[string]string{"status": store.StatusRunning, "query": "log in"},
			Steps: []store.StepRecord{{Step: 1, Action: "goto", Target: "/login", Status: store.StatusPassed}},
		},
	}}
	return runs, NewHTTPServer(":0", runs).Handler()
}

func TestStartRunAccepted(t *testing.T) {
	runs, handler := newTestServer()

	body := `{"query": "log in with valid credentials", "tags": ["smoke"], "doc_filename": "Login.docx", "test_data": {"email": "a@b.c"}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tests/run", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-123", resp["run_id"])

	assert.Equal(t, "log in with valid credentials", runs.lastReq.Query)
	assert.Equal(t, []string{"smoke"}, runs.lastReq.Tags)
	assert.Equal(t, "Login.docx", runs.lastReq.DocFilename)
	assert.Equal(t, "a@b.c", runs.lastReq.Overrides["email"])
}

func TestStartRunRejectsBadInput(t *testing.T) {
	_, handler := newTestServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tests/run", strings.NewReader(`{"tags": []}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tests/run", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunSnapshot(t *testing.T) {
	_, handler := newTestServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tests/run-123", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap store.RunSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, store.StatusRunning, snap.Run["status"])
	assert.Len(t, snap.Steps, 1)
}

func TestGetRunNotFound(t *testing.T) {
	_, handler := newTestServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tests/no-such-run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	_, handler := newTestServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseRunCommand(t *testing.T) {
	req := parseRunCommand("log in with valid credentials doc=Login.docx tag=smoke email=a@b.c")

	assert.Equal(t, "log in with valid credentials", req.Query)
	assert.Equal(t, "Login.docx", req.DocFilename)
	assert.Equal(t, []string{"smoke"}, req.Tags)
	assert.Equal(t, "a@b.c", req.Overrides["email"])
}

func TestFormatSnapshot(t *testing.T) {
	text := FormatSnapshot("run-9", store.RunSnapshot{
		Run: map[string]string{"status": store.StatusFailed, "error": "Generated DSL is empty"},
	})
	assert.Contains(t, text, "run-9")
	assert.Contains(t, text, "failed")
	assert.Contains(t, text, "Generated DSL is empty")

	assert.Contains(t, FormatSnapshot("gone", store.RunSnapshot{}), "not found")
}
