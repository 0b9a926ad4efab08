package handlers

import (
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"tours_backend/domain"
	"tours_backend/errors"
)

func MiddlewareContentTypeSet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		rw.Header().Add("Content-Type", "application/json")
		rw.Header().Set("X-Content-Type-Options", "nosniff")
		rw.Header().Set("X-Frame-Options", "DENY")

		rw.Header().Set("Content-Security-Policy", "script-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'; style-src 'self' https://fonts.googleapis.com 'unsafe-inline'; font-src 'self' https://fonts.googleapis.com https://fonts.gstatic.com; img-src 'self' data:;")

		next.ServeHTTP(rw, h)
	})
}

// MiddlewareBodyLimit caps JSON request bodies. Multipart uploads carry
// photos and are left to multipart's own in-memory limit.
func MiddlewareBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
			if !strings.HasPrefix(h.Header.Get("Content-Type"), "multipart/") {
				h.Body = http.MaxBytesReader(rw, h.Body, maxBytes)
			}
			next.ServeHTTP(rw, h)
		})
	}
}

// MiddlewareRateLimit counts requests per client IP in fixed windows and
// rejects with 429 once the window's budget is spent. A failing counter
// backend does not take the API down with it.
func MiddlewareRateLimit(counter domain.CounterStore, max int64, window time.Duration, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
			count, err := counter.Incr(h.Context(), "ratelimit:"+clientIP(h), window)
			if err != nil {
				logger.Errorf("Rate limit counter unavailable: %v", err)
				next.ServeHTTP(rw, h)
				return
			}
			if count > max {
				WriteError(rw, errors.New(errors.TooManyRequestsError, 429))
				return
			}
			next.ServeHTTP(rw, h)
		})
	}
}

// MiddlewareRequestLog records method, path, status and duration for
// every API request.
func MiddlewareRequestLog(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
			next.ServeHTTP(recorder, h)
			logger.WithFields(log.Fields{
				"method":   h.Method,
				"path":     h.URL.Path,
				"status":   recorder.status,
				"duration": time.Since(start).String(),
				"ip":       clientIP(h),
			}).Info("request handled")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(status int) {
	recorder.status = status
	recorder.ResponseWriter.WriteHeader(status)
}

func clientIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
