package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/session"
	"github.com/trackerhq/tracker/internal/settings"
	"github.com/trackerhq/tracker/internal/web/handler"
)

func newTestRouter(t *testing.T, token string) http.Handler {
	t.Helper()
	store, err := settings.Open(context.Background(), settings.NewInMemoryRepository(settings.Settings{Token: token}), zerolog.Nop())
	require.NoError(t, err)
	gate := session.NewGate(session.GateConfig{Store: store, Logger: zerolog.Nop()})

	return NewRouter(RouterConfig{
		Version:   "test",
		APIURL:    "http://backend.invalid",
		Logger:    zerolog.Nop(),
		LocalOnly: true,
		Gate:      gate,
		Sessions:  handler.NewSessionHandler(gate, store),
		Issues:    handler.NewIssueHandler(handler.IssueHandlerConfig{Logger: zerolog.Nop()}),
		Playbooks: handler.NewPlaybookHandler(nil),
		Health:    handler.NewHealthHandler(nil, nil),
		Reports:   handler.NewReportHandler(nil, zerolog.Nop()),
	})
}

func serve(h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "http://localhost"+target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := newTestRouter(t, "")

	rec := serve(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(r, http.MethodGet, "/session", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

func TestRouter_GatedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/issues"},
		{http.MethodGet, "/issues/i1"},
		{http.MethodPut, "/issues/i1/status"},
		{http.MethodGet, "/playbooks"},
		{http.MethodGet, "/health"},
		{http.MethodGet, "/reports"},
		{http.MethodPost, "/images"},
		{http.MethodGet, "/prefs"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := serve(r, tc.method, tc.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestRouter_LoginValidation(t *testing.T) {
	r := newTestRouter(t, "")

	rec := serve(r, http.MethodPost, "/login", "text/plain", "username=ana")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = serve(r, http.MethodPost, "/login", "application/json", `{"username":"ana"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodPost, "/login", "application/json", `{"username":"ana","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SignedInPrefs(t *testing.T) {
	r := newTestRouter(t, "opaque-token")

	rec := serve(r, http.MethodPut, "/prefs", "application/json", `{"author":"ana","theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"author":"ana","theme":"dark"}`, rec.Body.String())

	rec = serve(r, http.MethodPut, "/prefs", "application/json", `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodGet, "/prefs", "", "")
	assert.JSONEq(t, `{"author":"ana","theme":"dark"}`, rec.Body.String())
}

func TestRouter_RejectsRemoteHost(t *testing.T) {
	r := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "http://203.0.113.7/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
