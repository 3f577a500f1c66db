package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/seedotp/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into the generic 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:errorlint // sentinel panic value, compared by identity
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			if frames := stacktrace.InternalPaths(stack); len(frames) > 0 {
				slog.ErrorContext(r.Context(), "panic recovered", "panic", rvr, "stack", frames)
			} else {
				slog.ErrorContext(r.Context(), "panic recovered", "panic", rvr, "stack", string(stack))
			}

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
