package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"caffeine/internal/auth"
	"caffeine/internal/core"
	applog "caffeine/internal/log"
)

type profileKey struct{}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	} else {
		checks["backend"] = "in_process"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_errors_total Total number of 5xx responses\n")
	fmt.Fprintf(w, "# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total %d\n\n", traceMetrics.TotalErrors)

	fmt.Fprintf(w, "# HELP entries_created_total Total number of caffeine entries created\n")
	fmt.Fprintf(w, "# TYPE entries_created_total counter\n")
	fmt.Fprintf(w, "entries_created_total %d\n\n", s.appMetrics.entriesCreated.Load())

	fmt.Fprintf(w, "# HELP entries_deleted_total Total number of caffeine entries deleted\n")
	fmt.Fprintf(w, "# TYPE entries_deleted_total counter\n")
	fmt.Fprintf(w, "entries_deleted_total %d\n\n", s.appMetrics.entriesDeleted.Load())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

// withProfile sends callers without a stored profile to /setup and makes the
// profile available to the wrapped handler.
func (s *Server) withProfile(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.PrincipalFromContext(r.Context())
		state, err := s.data.GetCallerUserProfile(r.Context(), caller)
		if err != nil {
			s.events.LogError(r.Context(), "Failed to load profile", err, applog.ComponentHTTP, applog.OpRead,
				applog.NewFields().WithPrincipal(caller.String()))
			InternalServerError("Failed to load your profile").Write(w)
			return
		}
		profile, ok := state.Profile()
		if !ok {
			redirect(w, r, "/setup")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, profile)))
	}
}

func profileFromContext(ctx context.Context) core.UserProfile {
	p, _ := ctx.Value(profileKey{}).(core.UserProfile)
	return p
}
