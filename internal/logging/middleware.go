package logging

import (
	"net/http"
	"time"
)

// CorrelationIDHeader carries the request correlation ID in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

// HTTPMiddleware reuses or assigns a correlation ID, echoes it in the response
// and logs the request outcome. 4xx responses log at WARN, 5xx at ERROR.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = NewCorrelationID()
		}
		ctx := WithCorrelationID(r.Context(), id)
		w.Header().Set(CorrelationIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		level := LevelInfo
		switch {
		case rec.status >= 500:
			level = LevelError
		case rec.status >= 400:
			level = LevelWarn
		}
		Timed(ctx, level, ComponentHTTP, ActionResponse, "HTTP request completed", start, Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote_ip":  r.RemoteAddr,
			"status":     rec.status,
			"bytes_sent": rec.bytes,
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
