package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/flatjson/internal/artifact"
	"github.com/dgallion1/flatjson/internal/config"
	"github.com/dgallion1/flatjson/internal/fetch"
	"github.com/dgallion1/flatjson/internal/pipeline"
	"github.com/dgallion1/flatjson/internal/store"
)

const storeDoc = `{"store": {"name": "S", "city": "C", "items": [{"a": 1, "b": 2}, {"a": 3, "b": 4}]}}`

type testEnv struct {
	srv  *Server
	orch *pipeline.Orchestrator
	dir  string
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		OutputDir:            dir,
		WorkerCount:          1,
		MaxQueueSize:         10,
		MaxConcurrentUploads: 2,
		MaxBodyBytes:         1 << 20,
		JobTTL:               time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ds := &artifact.DirStore{Root: dir, BaseURL: "/artifacts"}
	orch := pipeline.NewOrchestrator(cfg, ds, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return &testEnv{
		srv:  NewServer(orch, fetch.NewFetcher(time.Second, 1<<20), ds, nil, log, cfg),
		orch: orch,
		dir:  dir,
	}
}

func (e *testEnv) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) waitJob(t *testing.T, id string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		job := e.orch.GetJob(id)
		require.NotNil(t, job)
		snap := job.Snapshot()
		if snap.Status != pipeline.StatusQueued && snap.Status != pipeline.StatusUploading {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s still %s", id, snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	rec := newTestEnv(t, nil).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFlatten_JSONResponseAndUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/flatten", storeDoc, "Content-Type", "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp flattenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "store.json", resp.Files[0].Name)
	assert.Equal(t, "/artifacts/"+resp.JobID+"/store_item.json", resp.Files[1].URL)
	assert.Equal(t, artifact.ArchiveName, resp.Archive.Name)
	assert.Equal(t, artifact.ReportName, resp.Report.Name)
	assert.Equal(t, 2, resp.Collections.Collections)
	assert.Equal(t, 3, resp.Collections.Records)

	snap := env.waitJob(t, resp.JobID)
	assert.Equal(t, pipeline.StatusCompleted, snap.Status)
	assert.Equal(t, 4, snap.Progress.FilesUploaded)
	assert.FileExists(t, filepath.Join(env.dir, resp.JobID, artifact.ArchiveName))

	got := env.do(http.MethodGet, resp.Files[1].URL, "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.JSONEq(t, `[{"__index":"0","a":1,"b":2},{"__index":"1","a":3,"b":4}]`, got.Body.String())

	status := env.do(http.MethodGet, resp.StatusURL, "")
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), `"status":"completed"`)
}

func TestFlatten_HTMLSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/flatten", storeDoc, "Accept", "text/html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Summary</title>")
	assert.Contains(t, body, `target="_blank"`)
	assert.Contains(t, body, "store_item.json")
	assert.Contains(t, body, artifact.ArchiveName)
}

func TestFlatten_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, body := range []string{"", "{", `{"a": }`, "not json"} {
		rec := env.do(http.MethodPost, "/api/flatten", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, msgInvalidJSON, decodeError(t, rec))
	}
}

func TestFlatten_FromURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.json":
			io.WriteString(w, storeDoc)
		case "/bad.json":
			io.WriteString(w, "{nope")
		default:
			http.NotFound(w, r)
		}
	}))
	defer remote.Close()
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/flatten", `{"json_url": "`+remote.URL+`/doc.json"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp flattenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 2)
	assert.Equal(t, "url", env.waitJob(t, resp.JobID).Source)

	rec = env.do(http.MethodPost, "/api/flatten", `{"json_url": "`+remote.URL+`/missing.json"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgFetchFailed, decodeError(t, rec))

	rec = env.do(http.MethodPost, "/api/flatten", `{"json_url": "`+remote.URL+`/bad.json"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidJSON, decodeError(t, rec))

	// A json_url next to other fields is an ordinary document.
	rec = env.do(http.MethodPost, "/api/flatten", `{"json_url": "x", "other": 1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFlatten_NotPost(t *testing.T) {
	rec := newTestEnv(t, nil).do(http.MethodGet, "/api/flatten", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Equal(t, msgNotPost, decodeError(t, rec))
}

func TestFlatten_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.MaxBodyBytes = 16 })
	rec := env.do(http.MethodPost, "/api/flatten", storeDoc)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFlatten_StrictCollisions(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.StrictCollisions = true })
	doc := `{"items": [{"a": 1, "b": 2}], "item": {"c": 3, "d": 4}}`
	rec := env.do(http.MethodPost, "/api/flatten", doc)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec), "collision")
}

func TestFlatten_RejectsPathLikeKeys(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/flatten", `{"../../escaped": {"p": 1, "q": 2}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec), "unsafe artifact name")
	assert.Equal(t, 0, env.orch.QueueDepth())
}

func TestReconstruct(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{
		"store": [{"name": "S", "city": "C"}],
		"store_item": [{"__index": "0", "a": 1}, {"__index": "1", "a": 2}]
	}`
	rec := env.do(http.MethodPost, "/api/reconstruct", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"stores":[{"name":"S","city":"C","items":[{"a":1},{"a":2}]}]}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	rec = env.do(http.MethodPost, "/api/reconstruct?download=1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="stores_reconstructed.json"`, rec.Header().Get("Content-Disposition"))
}

func TestReconstruct_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	cases := []struct {
		body string
		code int
	}{
		{"{", http.StatusBadRequest},
		{`[]`, http.StatusBadRequest},
		{`{"a": {"x": 1}}`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
		{`{"a_b": [{"x": 1, "y": 2}], "c_d": [{"x": 1, "y": 2}]}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rec := env.do(http.MethodPost, "/api/reconstruct", tc.body)
		assert.Equal(t, tc.code, rec.Code, tc.body)
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	rec := newTestEnv(t, nil).do(http.MethodGet, "/api/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadStats(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/flatten", storeDoc)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp flattenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	env.waitJob(t, resp.JobID)

	rec = env.do(http.MethodGet, "/api/stats/uploads", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		QueueDepth int                    `json:"queue_depth"`
		Stats      pipeline.StatsSnapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 4, out.Stats.Count)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.APIKey = "k3y" })

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)

	rec := env.do(http.MethodPost, "/api/flatten", storeDoc)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization", decodeError(t, rec))

	rec = env.do(http.MethodPost, "/api/flatten", storeDoc, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/flatten", storeDoc, "Authorization", "Bearer k3y")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.APIKey = "k3y" })
	rec := env.do(http.MethodOptions, "/api/flatten", "", "Origin", "https://app.example.com", "Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestArtifacts_RequireStore(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotImplemented, env.do(http.MethodGet, "/api/jobs/x/artifacts", "").Code)
	assert.Equal(t, http.StatusNotImplemented, env.do(http.MethodDelete, "/api/jobs/x/artifacts", "").Code)
}

// memObjects is an in-memory ObjectStore and Linker.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) PutObject(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key], nil
}

func (m *memObjects) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) ListObjects(_ context.Context, prefix string, _ int) ([]store.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Object
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, store.Object{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memObjects) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestArtifacts_RemoteStore(t *testing.T) {
	cfg := config.Config{
		StoreURL:             "https://store.example.com",
		WorkerCount:          1,
		MaxQueueSize:         10,
		MaxConcurrentUploads: 2,
		MaxBodyBytes:         1 << 20,
		JobTTL:               time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	objs := &memObjects{objects: map[string][]byte{}}
	orch := pipeline.NewOrchestrator(cfg, objs, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	env := &testEnv{srv: NewServer(orch, fetch.NewFetcher(time.Second, 1<<20), objs, objs, log, cfg), orch: orch}

	rec := env.do(http.MethodPost, "/api/flatten", storeDoc)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp flattenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.example.com/"+resp.JobID+"/store.json", resp.Files[0].URL)
	env.waitJob(t, resp.JobID)

	rec = env.do(http.MethodGet, "/api/jobs/"+resp.JobID+"/artifacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Artifacts []struct {
			Key string `json:"key"`
			URL string `json:"url"`
		} `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Artifacts, 4)

	rec = env.do(http.MethodGet, "/api/jobs/"+resp.JobID+"/artifacts/"+artifact.ArchiveName, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, artifact.ContentTypeZip, rec.Header().Get("Content-Type"))

	rec = env.do(http.MethodGet, "/api/jobs/"+resp.JobID+"/artifacts/none.json", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/jobs/"+resp.JobID+"/artifacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"job_id":"`+resp.JobID+`","deleted":4,"failed":0}`, rec.Body.String())
	assert.Empty(t, objs.objects)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"a.json":           "a.json",
		"../../etc/passwd": "passwd",
		"":                 "unnamed",
		`x"y.json`:         "x_y.json",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
