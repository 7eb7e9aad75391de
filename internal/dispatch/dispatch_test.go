package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/NREL/torc-sub005/internal/artifact"
	"github.com/NREL/torc-sub005/internal/auth"
	"github.com/NREL/torc-sub005/internal/claimcoord"
	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/engine"
	"github.com/NREL/torc-sub005/internal/exportimport"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "torc.db")
	s, err := store.Open(dbPath, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	coord := claimcoord.New(s, 50*time.Millisecond)
	eng := engine.New(s, coord, nil)
	resolver := artifact.New(s)
	exporter := exportimport.New(s)
	authN, err := auth.Load("")
	require.NoError(t, err)

	return NewServer(Deps{
		Store:     s,
		Engine:    eng,
		Claims:    coord,
		Artifacts: resolver,
		Exporter:  exporter,
		Auth:      authN,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetWorkflow(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/workflows", map[string]string{"name": "nightly"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var wf domain.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	require.Equal(t, "nightly", wf.Name)
	require.Equal(t, auth.AnonymousUser, wf.User)

	rec = doJSON(t, h, http.MethodGet, "/workflows/"+itoa(wf.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetWorkflow_NotFoundMapsTo404(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/workflows/999999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/workflows", map[string]string{"name": "wf"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var wf domain.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))

	rec = doJSON(t, h, http.MethodPost, "/workflows/"+itoa(wf.ID)+"/jobs", map[string]any{
		"name": "step1", "command": "true",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var job domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	rec = doJSON(t, h, http.MethodPost, "/workflows/"+itoa(wf.ID)+"/initialize", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/workflows/"+itoa(wf.ID)+"/jobs/"+itoa(job.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, domain.StatusReady, got.Status)

	rec = doJSON(t, h, http.MethodPost, "/workflows/"+itoa(wf.ID)+"/claim_by_resources", map[string]any{
		"compute_node_id": 1,
		"resources":       domain.AvailableResources{NumCPUs: 4, MemoryGB: 8, NumNodes: 1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var claimed []domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	require.Len(t, claimed, 1)

	rec = doJSON(t, h, http.MethodPost, "/workflows/"+itoa(wf.ID)+"/jobs/"+itoa(job.ID)+"/complete", domain.Result{
		Status: domain.StatusCompleted, ReturnCode: 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateWorkflow_InvalidBodyMapsTo409(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
