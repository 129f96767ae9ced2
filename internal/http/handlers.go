package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tesoreria/internal/cache"
	"tesoreria/internal/core"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteData(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]any{}
	if s.ready == nil {
		checks["database"] = "not_configured"
	} else if err := s.ready.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		NewResponse().
			Fail(http.StatusServiceUnavailable, core.KindTransport, "database unreachable").
			Header("Retry-After", strconv.Itoa(retryAfterSeconds)).
			Data(map[string]any{"status": "not_ready", "checks": checks}).
			Write(w)
		return
	} else {
		checks["database"] = "ok"
	}

	if s.svc.Projects != nil && s.svc.Projects.Cache() != nil {
		st := s.svc.Projects.Cache().Stats()
		checks["project_cache"] = map[string]any{"entries": st.Size, "hits": st.Hits, "misses": st.Misses}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	WriteData(w, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	var cacheStats cache.Stats
	if s.svc.Projects != nil && s.svc.Projects.Cache() != nil {
		cacheStats = s.svc.Projects.Cache().Stats()
	}

	fmt.Fprintf(w, "# HELP tesoreria_http_requests_total Total HTTP requests served\n")
	fmt.Fprintf(w, "tesoreria_http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "# HELP tesoreria_http_response_time_microseconds Average response time\n")
	fmt.Fprintf(w, "tesoreria_http_response_time_microseconds %d\n", traceMetrics.AverageResponseTime)
	fmt.Fprintf(w, "# HELP tesoreria_rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "tesoreria_rate_limit_hits_total %d\n", rateLimitMetrics.TotalHits)
	fmt.Fprintf(w, "tesoreria_rate_limit_clients %d\n", rateLimitMetrics.ClientCount)
	fmt.Fprintf(w, "# HELP tesoreria_suspicious_requests_total Requests matching attack patterns\n")
	fmt.Fprintf(w, "tesoreria_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	fmt.Fprintf(w, "tesoreria_invalid_ip_attempts_total %d\n", securityMetrics.InvalidIPAttempts)
	fmt.Fprintf(w, "# HELP tesoreria_project_cache_entries Projects held in the read cache\n")
	fmt.Fprintf(w, "tesoreria_project_cache_entries %d\n", cacheStats.Size)
	fmt.Fprintf(w, "tesoreria_project_cache_hits_total %d\n", cacheStats.Hits)
	fmt.Fprintf(w, "tesoreria_project_cache_misses_total %d\n", cacheStats.Misses)
	fmt.Fprintf(w, "tesoreria_project_cache_evictions_total %d\n", cacheStats.Evictions)
	fmt.Fprintf(w, "tesoreria_uptime_seconds %d\n", int64(time.Since(s.startedAt).Seconds()))
}
