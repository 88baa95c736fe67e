package middleware

import "net/http"

// SecurityHeaders adds the standard hardening headers to every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// LocalOnly rejects requests whose Host is not a loopback name, guarding the
// shell against DNS rebinding. It is a no-op when enabled is false.
func LocalOnly(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isLoopbackHost(r.Host) {
				writeProblem(w, r, http.StatusForbidden, "Forbidden", "the web shell only answers on loopback addresses")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
