package middleware

import (
	"net/http"

	"github.com/trackerhq/tracker/internal/session"
	"github.com/trackerhq/tracker/internal/web/models"
)

// RequireSession lets requests through only while a session is signed in.
// Everything else gets a 401 problem pointing at /login.
func RequireSession(gate *session.Gate) func(http.Handler) http.Handler {
	return gate.Middleware(func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewUnauthorized(GetRequestID(r.Context()), "sign in with POST /login first")
		problem.Instance = r.URL.Path
		w.Header().Set("WWW-Authenticate", `Bearer realm="tracker"`)
		problem.Write(w)
	})
}
