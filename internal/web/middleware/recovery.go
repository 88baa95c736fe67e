package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/web/models"
)

// Recovery turns a handler panic into a 500 problem response. If the handler
// had already started its response, the panic is only logged. Aborts raised
// with http.ErrAbortHandler propagate to the server untouched.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bool("response_started", rec.started).
					Interface("panic", v).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				if rec.started {
					return
				}
				problem := models.NewInternalError(requestID, "an unexpected error occurred")
				problem.Instance = r.URL.Path
				problem.Write(w)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
