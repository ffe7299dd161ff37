package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.appMetrics.uptime).Round(time.Second).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady reports whether the server can render pages and reach its
// session store. The API is not probed: a slow API degrades pages but does
// not make this instance unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.renderer == nil || len(s.renderer.pages) != len(pageTemplates) {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, probe := range s.probes {
		if err := probe(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	if s.cache != nil {
		st := s.cache.Stats()
		checks["cache"] = map[string]any{
			"entries": st.Entries,
			"status":  "ok",
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	uptime := s.now().Sub(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_requests_in_flight Requests currently being served\n")
	fmt.Fprintf(w, "# TYPE http_requests_in_flight gauge\n")
	fmt.Fprintf(w, "http_requests_in_flight %d\n\n", traceMetrics.InFlight)

	fmt.Fprintf(w, "# HELP http_errors_total Responses by error class\n")
	fmt.Fprintf(w, "# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total{class=\"4xx\"} %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "http_errors_total{class=\"5xx\"} %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP expense_mutations_total Successful expense creates, updates and deletes\n")
	fmt.Fprintf(w, "# TYPE expense_mutations_total counter\n")
	fmt.Fprintf(w, "expense_mutations_total %d\n\n", s.appMetrics.mutations.Load())

	fmt.Fprintf(w, "# HELP api_errors_total API calls that failed while serving a page\n")
	fmt.Fprintf(w, "# TYPE api_errors_total counter\n")
	fmt.Fprintf(w, "api_errors_total %d\n\n", s.appMetrics.apiErrors.Load())

	if s.cache != nil {
		st := s.cache.Stats()
		fmt.Fprintf(w, "# HELP api_cache_hits_total Queries answered from the response cache\n")
		fmt.Fprintf(w, "# TYPE api_cache_hits_total counter\n")
		fmt.Fprintf(w, "api_cache_hits_total %d\n\n", st.Hits)

		fmt.Fprintf(w, "# HELP api_cache_misses_total Queries sent to the API\n")
		fmt.Fprintf(w, "# TYPE api_cache_misses_total counter\n")
		fmt.Fprintf(w, "api_cache_misses_total %d\n\n", st.Misses)

		fmt.Fprintf(w, "# HELP api_cache_evictions_total Responses dropped to make room in the cache\n")
		fmt.Fprintf(w, "# TYPE api_cache_evictions_total counter\n")
		fmt.Fprintf(w, "api_cache_evictions_total %d\n\n", st.Evictions)

		fmt.Fprintf(w, "# HELP api_cache_entries Current response cache entries\n")
		fmt.Fprintf(w, "# TYPE api_cache_entries gauge\n")
		fmt.Fprintf(w, "api_cache_entries %d\n\n", st.Entries)
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
