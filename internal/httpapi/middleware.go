package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/caredraft/internal/audit"
	"github.com/caredraft/internal/supabase"
	"go.uber.org/zap"
)

// clientIP returns the caller's address, honouring the first proxy hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so websocket upgrades work behind the logger.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// requestLogger logs one line per request with method, path, status and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// recoverPanics turns a handler panic into a 500 instead of dropping the
// connection.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, errorBody{
					Error: "Internal server error",
					Type:  "INTERNAL",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// throttle applies the per-client token bucket. Authenticated requests are
// keyed by user id so a shared office IP is not penalised; anonymous ones
// fall back to the client address.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := supabase.UserID(r.Context())
		if key == "" {
			key = clientIP(r)
		}

		ok, wait := s.limiter.Allow(key)
		if !ok {
			s.trail.Record(audit.Event{
				EventType: audit.EventRateLimit,
				UserID:    supabase.UserID(r.Context()),
				Operation: r.URL.Path,
				Outcome:   "denied",
				IPAddress: clientIP(r),
			})
			writeRateLimited(w, wait)
			return
		}
		next.ServeHTTP(w, r)
	})
}
