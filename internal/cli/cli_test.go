package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/app"
	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/config"
	"github.com/trackerhq/tracker/internal/resilience"
	"github.com/trackerhq/tracker/internal/settings"
)

// backendFake answers the subset of the Tracker API the commands touch and
// records the last playbook and report writes.
type backendFake struct {
	mu           sync.Mutex
	failIssuePut bool
	playbookPut  map[string]any
	reportPost   map[string]any
	deleted      []string
}

func (b *backendFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/api/auth/login":
		_, _ = w.Write([]byte(`{"token":"tok","username":"ana"}`))
	case r.URL.Path == "/api/issues/" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`[{"id":"i1","name":"Checkout down","createdAt":1700000000000,"status":1},{"id":"i2","name":"Slow search","createdAt":1700000000000,"status":0}]`))
	case r.URL.Path == "/api/issues/i1" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"id":"i1","name":"Checkout down","createdAt":1700000000000,"status":1}`))
	case r.URL.Path == "/api/issues/i1" && r.Method == http.MethodPut:
		if b.failIssuePut {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	case r.URL.Path == "/api/playbooks/pb1" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"id":"pb1","name":"Outage","steps":[{"content":"Page on-call"},{"content":"Post status"}]}`))
	case r.URL.Path == "/api/playbooks/pb1" && r.Method == http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&b.playbookPut)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	case r.URL.Path == "/api/reports/" && r.Method == http.MethodPost:
		_ = json.NewDecoder(r.Body).Decode(&b.reportPost)
		_, _ = w.Write([]byte(`{"id":"r1","title":"Postmortem","content":"## Timeline\n\n- 10:00 alert","createdBy":"ana","createdAt":"2026-10-01T10:00:00Z","updatedAt":"2026-10-01T10:00:00Z"}`))
	case r.URL.Path == "/api/reports/" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`[]`))
	case r.Method == http.MethodDelete:
		b.deleted = append(b.deleted, r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"deleted"}`))
	case r.URL.Path == "/api/health/status":
		_, _ = w.Write([]byte(`[{"id":"h1","name":"checkout","url":"https://shop.example.com/health","status":0,"threshold":3,"failCount":3,"interval":60,"reason":"timeout"}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}
}

type harness struct {
	app     *app.App
	backend *backendFake
	out     *bytes.Buffer
	in      *bytes.Buffer
	shell   *Shell
}

func newHarness(t *testing.T, initial settings.Settings) *harness {
	t.Helper()
	fake := &backendFake{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	httpCfg := resilience.DefaultClientConfig("cli-test")
	httpCfg.MaxRetries = 0
	a, err := app.New(context.Background(), app.Options{
		Config:       config.Config{APIURL: srv.URL, ListenAddr: "127.0.0.1:0"},
		Logger:       zerolog.Nop(),
		SettingsRepo: settings.NewInMemoryRepository(initial),
		Opener:       collab.NewMemoryOpener(),
		HTTPClient:   resilience.NewClient(httpCfg),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	h := &harness{app: a, backend: fake, out: &bytes.Buffer{}, in: &bytes.Buffer{}}
	profile := termenv.Ascii
	h.shell = NewShell(ShellConfig{App: a, Out: h.out, In: h.in, Profile: &profile, Width: 60})
	return h
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	return Root(h.shell).Execute(context.Background(), io.Discard, args)
}

func signedIn() settings.Settings {
	return settings.Settings{Token: "tok", Username: "ana", Author: "ana"}
}

func TestExecute_Dispatch(t *testing.T) {
	h := newHarness(t, settings.Settings{})

	assert.ErrorIs(t, h.run("nope"), ErrUsage)
	assert.ErrorIs(t, h.run("issues"), ErrUsage)
	assert.ErrorIs(t, h.run("issues", "show"), ErrUsage)
	assert.ErrorIs(t, h.run("issues", "list", "--bogus"), ErrUsage)
	assert.NoError(t, h.run("--help"))
	assert.NoError(t, h.run("issues", "--help"))
}

func TestPrintHelp_ListsSubcommandsAndFlags(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	var buf bytes.Buffer

	root := Root(h.shell)
	root.PrintHelp(&buf)
	assert.Contains(t, buf.String(), "issues")
	assert.Contains(t, buf.String(), "serve")

	buf.Reset()
	require.NoError(t, root.Execute(context.Background(), &buf, []string{"login", "--help"}))
	assert.Contains(t, buf.String(), "--password-file")
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	h.in.WriteString("secret\n")

	require.NoError(t, h.run("login", "-u", "ana", "--password-file", "-"))
	assert.Contains(t, h.out.String(), "Signed in as ana")
	assert.Equal(t, "tok", h.app.Settings.Token())

	require.NoError(t, h.run("whoami"))
	assert.Contains(t, h.out.String(), "ana")

	require.NoError(t, h.run("logout"))
	require.NoError(t, h.run("whoami"))
	assert.Contains(t, h.out.String(), "Not signed in")
}

func TestLogin_RequiresUsername(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	assert.ErrorIs(t, h.run("login", "--password-file", "-"), ErrUsage)
}

func TestPrefs(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("prefs", "--theme", "light", "--author", " bo "))
	assert.Contains(t, h.out.String(), "light")
	snap := h.app.Settings.Snapshot()
	assert.Equal(t, "bo", snap.Author)
	assert.Equal(t, settings.ThemeLight, snap.Theme)

	assert.ErrorIs(t, h.run("prefs", "--theme", "sepia"), ErrUsage)
}

func TestIssuesList(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("issues", "list"))
	out := h.out.String()
	assert.Contains(t, out, "Open (1)")
	assert.Contains(t, out, "Closed (1)")
	assert.Less(t, strings.Index(out, "Checkout down"), strings.Index(out, "Slow search"))
}

func TestIssueEventsAndShow(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("issues", "event", "add", "i1", "Payments", "failing"))
	require.NoError(t, h.run("issues", "event", "add", "--author", "bo", "i1", "Rolled", "back"))
	assert.ErrorIs(t, h.run("issues", "event", "add", "i1", "   "), ErrUsage)

	require.NoError(t, h.run("issues", "show", "i1"))
	out := h.out.String()
	assert.Contains(t, out, "Checkout down")
	assert.Contains(t, out, "ONGOING")
	assert.Less(t, strings.Index(out, "Rolled back"), strings.Index(out, "Payments failing"))

	feed, err := h.app.Feeds.Feed(context.Background(), "i1")
	require.NoError(t, err)
	events := feed.Events()
	require.Len(t, events, 2)

	require.NoError(t, h.run("issues", "event", "edit", "i1", events[1].ID))
	assert.Equal(t, "Payments failing\n", h.out.String())

	require.NoError(t, h.run("issues", "event", "edit", "i1", events[1].ID, "Payments", "recovered"))
	assert.Equal(t, "Payments recovered", feed.Events()[1].Text)
	_, _, editing := feed.Editing()
	assert.False(t, editing)
}

func TestIssueStatus(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("issues", "status", "i1", "resolved"))
	assert.Contains(t, h.out.String(), "RESOLVED")

	h.backend.mu.Lock()
	h.backend.failIssuePut = true
	h.backend.mu.Unlock()

	require.NoError(t, h.run("issues", "status", "i1", "ongoing"))
	assert.Contains(t, h.out.String(), "write queued")

	require.NoError(t, h.run("outbox", "list"))
	assert.Contains(t, h.out.String(), "i1")

	assert.ErrorIs(t, h.run("issues", "status", "i1", "paused"), ErrUsage)
}

func TestPlaybookUpdate(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("playbooks", "update", "pb1", "--remove-step", "0", "--add-step", "Write postmortem"))
	assert.Contains(t, h.out.String(), "Write postmortem")

	h.backend.mu.Lock()
	put := h.backend.playbookPut
	h.backend.mu.Unlock()
	assert.Equal(t, "Outage", put["name"])
	assert.Equal(t, []any{
		map[string]any{"content": "Post status"},
		map[string]any{"content": "Write postmortem"},
	}, put["steps"])

	require.NoError(t, h.run("playbooks", "update", "pb1", "-s", "Only step"))
	h.backend.mu.Lock()
	put = h.backend.playbookPut
	h.backend.mu.Unlock()
	assert.Equal(t, []any{map[string]any{"content": "Only step"}}, put["steps"])
}

func TestChecklistToggleAndShow(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("checklist", "toggle", "i1", "pb1", "1"))
	assert.Equal(t, "step 1 checked\n", h.out.String())

	require.NoError(t, h.run("issues", "show", "i1", "--playbook", "pb1"))
	out := h.out.String()
	assert.Contains(t, out, "[ ] 0. Page on-call")
	assert.Contains(t, out, "[x] 1. Post status")

	assert.ErrorIs(t, h.run("checklist", "toggle", "i1", "pb1", "-1"), ErrUsage)
}

func TestHealthList(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("health", "list"))
	out := h.out.String()
	assert.Contains(t, out, "DOWN")
	assert.Contains(t, out, "checkout")
	assert.Contains(t, out, "timeout")
	assert.Contains(t, out, "next check in 1m0s")
}

func TestReportCreateFromStdin(t *testing.T) {
	h := newHarness(t, signedIn())
	h.in.WriteString("## Timeline\n\n- 10:00 alert")

	require.NoError(t, h.run("reports", "create", "--title", "Postmortem"))
	assert.Contains(t, h.out.String(), "Postmortem")
	assert.Contains(t, h.out.String(), "Timeline")

	h.backend.mu.Lock()
	post := h.backend.reportPost
	h.backend.mu.Unlock()
	assert.Equal(t, "Postmortem", post["title"])
	assert.Equal(t, "## Timeline\n\n- 10:00 alert", post["content"])

	h.in.WriteString("body")
	assert.ErrorIs(t, h.run("reports", "create"), ErrUsage)
}

func (b *backendFake) deletes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func TestReportDelete_AsksFirst(t *testing.T) {
	h := newHarness(t, signedIn())

	h.in.WriteString("n\n")
	require.NoError(t, h.run("reports", "delete", "r1"))
	assert.Contains(t, h.out.String(), "Delete report r1? [y/N]")
	assert.Contains(t, h.out.String(), "report r1 kept")
	assert.Empty(t, h.backend.deletes())

	h.in.WriteString("y\n")
	require.NoError(t, h.run("reports", "delete", "r1"))
	assert.Equal(t, []string{"/api/reports/r1"}, h.backend.deletes())
	assert.Contains(t, h.out.String(), "report r1 deleted")
	assert.Contains(t, h.out.String(), "No reports.")
}

func TestHealthDelete_YesSkipsPrompt(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("health", "delete", "--yes", "h1"))
	assert.NotContains(t, h.out.String(), "[y/N]")
	assert.Equal(t, []string{"/api/health/endpoints/h1"}, h.backend.deletes())
	assert.Contains(t, h.out.String(), "endpoint h1 deleted")
	assert.Contains(t, h.out.String(), "checkout")
}

func TestDelete_EmptyAnswerKeeps(t *testing.T) {
	h := newHarness(t, signedIn())

	require.NoError(t, h.run("health", "delete", "h1"))
	assert.Contains(t, h.out.String(), "endpoint h1 kept")
	assert.Empty(t, h.backend.deletes())
}
