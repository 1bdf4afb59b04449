package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Recorder receives the outcome of every request.
type Recorder interface {
	Record(status int, duration time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Logger writes one access log line per request and reports it to rec when
// rec is not nil.
func Logger(rec Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)

			if rec != nil {
				rec.Record(recorder.status, duration)
			}

			event := zerolog.Ctx(r.Context()).Info()
			if recorder.status >= http.StatusInternalServerError {
				event = zerolog.Ctx(r.Context()).Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", recorder.status).
				Int("bytes", recorder.bytes).
				Int64("durationMs", duration.Milliseconds()).
				Msg("request")
		})
	}
}
