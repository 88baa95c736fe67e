package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/config"
	"github.com/trackerhq/tracker/internal/resilience"
	"github.com/trackerhq/tracker/internal/settings"
	"github.com/trackerhq/tracker/internal/web/models"
)

// fakeTracker is an in-memory stand-in for the Tracker REST API.
type fakeTracker struct {
	mu       sync.Mutex
	statuses map[string]int
	failPuts bool
	puts     int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{statuses: map[string]int{"i1": 1, "i2": 0}}
}

func (f *fakeTracker) setFailPuts(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPuts = v
}

func (f *fakeTracker) status(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func (f *fakeTracker) issueJSON(id string) map[string]any {
	return map[string]any{"id": id, "name": "Issue " + id, "createdAt": int64(1700000000000), "status": f.statuses[id]}
}

func (f *fakeTracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-123", "username": "ana"})
	case r.URL.Path == "/api/issues/" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode([]any{f.issueJSON("i1"), f.issueJSON("i2")})
	case strings.HasPrefix(r.URL.Path, "/api/issues/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(r.URL.Path, "/api/issues/")
		if _, ok := f.statuses[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(f.issueJSON(id))
	case strings.HasPrefix(r.URL.Path, "/api/issues/") && r.Method == http.MethodPut:
		f.puts++
		if f.failPuts {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream down"}`))
			return
		}
		var body struct {
			Status int `json:"status"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.statuses[strings.TrimPrefix(r.URL.Path, "/api/issues/")] = body.Status
		_, _ = w.Write([]byte(`{"message":"updated"}`))
	case r.URL.Path == "/api/playbooks/" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`[{"id":"pb1","name":"Database outage","steps":[{"content":"Page DBA"},{"content":"Fail over"}]}]`))
	case r.URL.Path == "/api/playbooks/pb1":
		_, _ = w.Write([]byte(`{"id":"pb1","name":"Database outage","steps":[{"content":"Page DBA"},{"content":"Fail over"}]}`))
	case r.URL.Path == "/api/health/status":
		_, _ = w.Write([]byte(`[{"id":"h1","name":"api","url":"https://api.example.com","status":1,"threshold":3,"failCount":0,"interval":30}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}
}

type fixture struct {
	app     *App
	tracker *fakeTracker
	handler http.Handler
	repo    *settings.InMemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tracker := newFakeTracker()
	srv := httptest.NewServer(tracker)
	t.Cleanup(srv.Close)

	httpCfg := resilience.DefaultClientConfig("test-backend")
	httpCfg.MaxRetries = 0
	repo := settings.NewInMemoryRepository(settings.Settings{})

	a, err := New(context.Background(), Options{
		Config:       config.Config{APIURL: srv.URL},
		Logger:       zerolog.Nop(),
		Version:      "test",
		SettingsRepo: repo,
		Opener:       collab.NewMemoryOpener(),
		HTTPClient:   resilience.NewClient(httpCfg),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return &fixture{app: a, tracker: tracker, handler: a.Router(nil, true), repo: repo}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "http://localhost"+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/login", models.LoginRequest{Username: "ana", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestApp_GatedUntilLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/issues", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.login(t)
	assert.Equal(t, "tok-123", f.app.Settings.Token())

	rec = f.do(t, http.MethodGet, "/issues", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	board := decode[models.Board](t, rec)
	require.Len(t, board.Open, 1)
	require.Len(t, board.Closed, 1)
	assert.Equal(t, "i1", board.Open[0].ID)
	assert.Equal(t, "i2", board.Closed[0].ID)

	rec = f.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/issues", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_TimelineRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/issues/i1/events", models.AppendEventRequest{Author: "ana", Text: "DB **down**"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/issues/i1/events", models.AppendEventRequest{Text: "Failover started"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/issues/i1/events", models.AppendEventRequest{Author: "ana", Text: "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.AppendEventResponse](t, rec).Added)

	rec = f.do(t, http.MethodGet, "/issues/i1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[models.IssueDetail](t, rec)
	assert.Equal(t, "Issue i1", detail.Name)
	assert.Equal(t, "ongoing", detail.Status)
	assert.Equal(t, "ana", detail.Author)
	require.Len(t, detail.Events, 2)
	assert.Equal(t, "Failover started", detail.Events[0].Text)
	assert.Equal(t, "ana", detail.Events[0].Author)
	assert.Contains(t, detail.Events[1].HTML, "<strong>down</strong>")
	require.Len(t, detail.Playbooks, 1)

	rec = f.do(t, http.MethodPut, "/issues/i1/events/"+detail.Events[1].ID, models.EditEventRequest{Text: "DB degraded"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/issues/i1", nil)
	detail = decode[models.IssueDetail](t, rec)
	assert.Equal(t, "DB degraded", detail.Events[1].Text)
}

func TestApp_ResolvedEventOverridesBackendStatus(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/issues/i1/events", models.AppendEventRequest{Author: "ana", Text: "Incident Resolved"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/issues/i1", nil)
	assert.Equal(t, "resolved", decode[models.IssueDetail](t, rec).Status)
}

func TestApp_UnknownIssueOpensNoTimeline(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/issues/ghost/events", models.AppendEventRequest{Author: "ana", Text: "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/issues/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, f.app.Feeds.Len())
}

func TestApp_StatusChangeWritesBackend(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPut, "/issues/i1/status", models.StatusRequest{Status: "resolved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, f.tracker.status("i1"))

	rec = f.do(t, http.MethodPut, "/issues/i1/status", models.StatusRequest{Status: "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApp_StatusChangeQueuedAndReplayed(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.tracker.setFailPuts(true)

	rec := f.do(t, http.MethodPut, "/issues/i1/status", models.StatusRequest{Status: "resolved"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp := decode[models.StatusResponse](t, rec)
	assert.True(t, resp.Queued)
	assert.Equal(t, 1, f.tracker.status("i1"))

	pending, err := f.app.Outbox.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// The document already says resolved even though the backend lags.
	rec = f.do(t, http.MethodGet, "/issues/i1", nil)
	assert.Equal(t, "resolved", decode[models.IssueDetail](t, rec).Status)

	f.tracker.setFailPuts(false)
	result, err := f.app.Reconciler.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempted)
	assert.Equal(t, 0, f.tracker.status("i1"))

	pending, err = f.app.Outbox.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApp_ChecklistToggle(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPut, "/issues/i1/checklists/pb1/1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[models.ChecklistState](t, rec)
	assert.Equal(t, map[int]bool{1: true}, state.Checked)

	rec = f.do(t, http.MethodGet, "/issues/i1?playbook=pb1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[models.IssueDetail](t, rec)
	require.NotNil(t, detail.Checklist)
	require.Len(t, detail.Checklist.Items, 2)
	assert.False(t, detail.Checklist.Items[0].Checked)
	assert.True(t, detail.Checklist.Items[1].Checked)

	saved, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true}, saved.Checklists[settings.ChecklistKey("i1", "pb1")])
}

func TestApp_HealthFromPoller(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[models.EndpointList](t, rec)
	require.Len(t, list.Endpoints, 1)
	assert.Equal(t, "api", list.Endpoints[0].Name)
	assert.Equal(t, 30, list.NextPollSeconds)

	_, ok := f.app.Poller.Latest()
	assert.True(t, ok)
}

func TestApp_RejectsRemoteHosts(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "http://tracker.example.com/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNew_DefaultsToFileStores(t *testing.T) {
	dir := t.TempDir()
	tracker := newFakeTracker()
	srv := httptest.NewServer(tracker)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		APIURL:         srv.URL,
		SettingsPath:   filepath.Join(dir, "settings.yaml"),
		ReplicaDir:     filepath.Join(dir, "timelines"),
		HTTPTimeout:    5 * time.Second,
		HTTPMaxRetries: 0,
	}

	a, err := New(context.Background(), Options{Config: cfg, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = a.Gate.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)

	feed, err := a.Feeds.Feed(context.Background(), "i1")
	require.NoError(t, err)
	added, err := feed.Append(context.Background(), "ana", "first")
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, a.Close())

	reopened, err := New(context.Background(), Options{Config: cfg, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	assert.Equal(t, "tok-123", reopened.Settings.Token())
	assert.Equal(t, "ana", reopened.Settings.Snapshot().Author)

	feed, err = reopened.Feeds.Feed(context.Background(), "i1")
	require.NoError(t, err)
	events := feed.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].Text)
}
