package middleware

import (
	"net/http"
	"strings"

	"mapleerp/internal/transport/http/api"
)

// BodyLimit caps request bodies of mutating methods. A declared
// Content-Length above the cap is refused before the handler runs; streamed
// bodies are cut off by http.MaxBytesReader.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
				if r.ContentLength > maxBytes {
					code := "payload_too_large"
					if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
						code = "file_too_large"
					}
					api.Fail(w, http.StatusBadRequest, code, "request body too large", GetRequestID(r.Context()))
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
