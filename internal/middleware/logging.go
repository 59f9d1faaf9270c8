package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogging logs every request with a generated request ID, records
// request metrics, and converts panics into a 500 envelope so a handler
// bug never escapes as an unhandled crash.
func RequestLogging(logger *logrus.Logger, metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if err := recover(); err != nil {
					logger.WithFields(logrus.Fields{
						"request_id": requestID,
						"panic":      err,
					}).Error("Handler panicked")

					rec.Header().Set("Content-Type", "application/json")
					rec.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(rec).Encode(map[string]interface{}{
						"error":   "Internal server error",
						"details": "Something went wrong with our AI. It's probably disrupting itself.",
						"code":    http.StatusInternalServerError,
					})
				}

				duration := time.Since(start)
				if metrics != nil {
					metrics.RecordRequest(r.URL.Path, strconv.Itoa(rec.status), duration)
				}

				logger.WithFields(logrus.Fields{
					"request_id": requestID,
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     rec.status,
					"duration":   duration,
					"remote":     r.RemoteAddr,
				}).Info("Request handled")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
