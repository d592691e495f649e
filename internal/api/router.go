package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/investor-coach/internal/api/handlers"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/metrics"
)

// RequestIDHeader carries the per-request id (echoed if the client sent one)
const RequestIDHeader = "X-Request-ID"

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(compareHandler *handlers.CompareHandler, cacheHandler *handlers.CacheHandler, rec *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	if rec != nil {
		r.Handle("/metrics", rec.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// 비교/순위
	api.HandleFunc("/compare", compareHandler.Compare).Methods(http.MethodGet)

	// 가격 캐시
	api.HandleFunc("/cache", cacheHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/cache", cacheHandler.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/cache/{key}", cacheHandler.Remove).Methods(http.MethodDelete)

	// recovery가 가장 안쪽: 패닉도 500으로 기록됨
	r.Use(requestMiddleware(log, rec))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "investor-coach-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// statusWriter remembers the status code written by the handler
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// routeTemplate returns the matched path template so /api/cache/{key}
// is one label, not one per key
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// requestMiddleware tags each request with an id, logs it and records metrics
func requestMiddleware(log *logger.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			route := routeTemplate(r)
			elapsed := time.Since(start)
			rec.HTTPRequest(route, r.Method, sw.status, elapsed)

			entry := log.WithFields(map[string]interface{}{
				"request_id": id,
				"method":     r.Method,
				"route":      route,
				"query":      r.URL.RawQuery,
				"status":     sw.status,
				"duration":   elapsed,
			})
			if sw.status >= http.StatusInternalServerError {
				entry.Warn("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
		})
	}
}

func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error":      err,
						"path":       r.URL.Path,
						"request_id": w.Header().Get(RequestIDHeader),
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
