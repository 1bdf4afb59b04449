package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"mapleerp/internal/transport/http/api"
)

func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			zerolog.Ctx(r.Context()).Error().
				Interface("panic", rvr).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			api.Fail(w, http.StatusInternalServerError, "internal_error", "internal error", GetRequestID(r.Context()))
		}()
		next.ServeHTTP(w, r)
	})
}
