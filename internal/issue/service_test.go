package issue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/issue"
	"github.com/trackerhq/tracker/internal/resilience"
)

func newService(t *testing.T, handler http.HandlerFunc) *issue.Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := resilience.DefaultClientConfig("issue-test")
	cfg.MaxRetries = 0
	client := backend.NewClient(backend.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(cfg),
		Logger:     zerolog.Nop(),
	})
	return issue.NewService(client, zerolog.Nop())
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, issue.StatusOngoing, issue.StatusFromCode(1))
	assert.Equal(t, issue.StatusResolved, issue.StatusFromCode(0))
	assert.Equal(t, issue.StatusResolved, issue.StatusFromCode(7))
	assert.Equal(t, 1, issue.StatusOngoing.Code())
	assert.Equal(t, 0, issue.StatusResolved.Code())

	s, err := issue.ParseStatus("Resolved")
	require.NoError(t, err)
	assert.Equal(t, issue.StatusResolved, s)

	_, err = issue.ParseStatus("closed")
	assert.Error(t, err)
}

func TestService_List(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues/", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"a","name":"DB down","createdAt":1700000000000,"status":1},
			{"id":"b","name":"Disk full","createdAt":1700000500000,"status":0}
		]`))
	})

	issues, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "DB down", issues[0].Name)
	assert.Equal(t, issue.StatusOngoing, issues[0].Status)
	assert.Equal(t, time.UnixMilli(1700000000000), issues[0].CreatedAt)
	assert.Equal(t, issue.StatusResolved, issues[1].Status)
}

func TestService_ListRejectsMissingFields(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a","name":"no status","createdAt":1}]`))
	})

	_, err := svc.List(context.Background())
	var de *backend.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "status", de.Field)
}

func TestService_GetNotFound(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Issue not found"}`))
	})

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestService_CreateRequiresName(t *testing.T) {
	called := false
	svc := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	err := svc.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, issue.ErrNameRequired)
	assert.False(t, called)
}

func TestService_CreateAndRefresh(t *testing.T) {
	var created string
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			created = body["name"]
			_, _ = w.Write([]byte(`{"id":"000000000000000000000000","name":"x","createdAt":1,"status":1}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"id":"real","name":"` + created + `","createdAt":5,"status":1}]`))
		}
	})

	board, err := svc.CreateAndRefresh(context.Background(), "  Latency spike ")
	require.NoError(t, err)
	assert.Equal(t, "Latency spike", created)
	require.Len(t, board.Open, 1)
	assert.Equal(t, "real", board.Open[0].ID)
}

func TestService_SetStatusSendsCode(t *testing.T) {
	var body map[string]any
	var path string
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPut, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"message":"Issue updated"}`))
	})

	require.NoError(t, svc.SetStatus(context.Background(), "abc", issue.StatusResolved))
	assert.Equal(t, "/api/issues/abc", path)
	assert.Equal(t, map[string]any{"status": float64(0)}, body)
}

func TestService_UpdateSendsFullShape(t *testing.T) {
	var body map[string]any
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"message":"Issue updated"}`))
	})

	err := svc.Update(context.Background(), issue.Issue{ID: "abc", Name: "Renamed", Status: issue.StatusOngoing})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Renamed", "status": float64(1)}, body)
}

func TestNewBoard(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	board := issue.NewBoard([]issue.Issue{
		{ID: "old-open", CreatedAt: base, Status: issue.StatusOngoing},
		{ID: "closed", CreatedAt: base.Add(time.Hour), Status: issue.StatusResolved},
		{ID: "new-open", CreatedAt: base.Add(2 * time.Hour), Status: issue.StatusOngoing},
	})

	require.Len(t, board.Open, 2)
	assert.Equal(t, "new-open", board.Open[0].ID)
	assert.Equal(t, "old-open", board.Open[1].ID)
	require.Len(t, board.Closed, 1)
	assert.Equal(t, "closed", board.Closed[0].ID)
}
