package server

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Session counters
	SessionsCreated atomic.Int64 // sessions created during this run
	SessionsEnded   atomic.Int64 // sessions explicitly ended by the teacher
	StudentsJoined  atomic.Int64 // lifetime student WS joins

	// Connection counters
	ActiveConnections atomic.Int64 // current open WS connections
	FailedAuths       atomic.Int64 // teacher connects with a bad token

	// Proxy counters
	ProxyRequests  atomic.Int64 // forwarded upstream requests (TTS, LLM, STT)
	UpstreamErrors atomic.Int64 // non-2xx answers from a provider
	CacheHits      atomic.Int64 // TTS and translation requests served from cache

	// Relay counters
	RelayMessages atomic.Int64 // control messages fanned out to students
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.Metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP lese_uptime_seconds Server uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE lese_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "lese_uptime_seconds %f\n", uptime)

	write("lese_sessions_active", "Current live sessions.", "gauge",
		int64(s.Sessions.Count()))
	write("lese_sessions_created_total", "Sessions created.", "counter",
		m.SessionsCreated.Load())
	write("lese_sessions_ended_total", "Sessions ended by the teacher.", "counter",
		m.SessionsEnded.Load())

	write("lese_ws_connections_active", "Current open WebSocket connections.", "gauge",
		m.ActiveConnections.Load())
	write("lese_students_joined_total", "Lifetime student joins.", "counter",
		m.StudentsJoined.Load())
	write("lese_auth_failed_total", "Rejected teacher tokens.", "counter",
		m.FailedAuths.Load())

	write("lese_proxy_requests_total", "Requests forwarded to a provider.", "counter",
		m.ProxyRequests.Load())
	write("lese_upstream_errors_total", "Provider error responses.", "counter",
		m.UpstreamErrors.Load())
	write("lese_cache_hits_total", "Proxy requests served from cache.", "counter",
		m.CacheHits.Load())

	write("lese_relay_messages_total", "Control messages relayed to students.", "counter",
		m.RelayMessages.Load())
}
