package metrics

import (
	"errors"
	"strconv"
	"time"
)

// Script error kinds used as the kind label of ScriptErrors.
const (
	KindLex     = "lex"
	KindParse   = "parse"
	KindRuntime = "runtime"
	KindIO      = "io"
	KindWorker  = "worker"
)

// Server is the metric set of one scriptd server. Each server owns its own
// registry, so tests can run servers side by side.
type Server struct {
	Registry *Registry

	// RequestsTotal is labelled by route and status.
	RequestsTotal *Counter
	// RequestDuration is labelled by route.
	RequestDuration   *Histogram
	ActiveConnections *Gauge
	SessionsActive    *Gauge
	// ScriptErrors is labelled by kind such as parse or runtime.
	ScriptErrors *Counter
	Uptime       *Gauge

	runtime *RuntimeCollector
}

// NewServer registers the scriptd metrics in a fresh registry.
func NewServer() (*Server, error) {
	r := NewRegistry()
	m := &Server{Registry: r}

	var errs []error
	collect := func(err error) { errs = append(errs, err) }

	var err error
	m.RequestsTotal, err = r.NewCounter("scriptd_requests_total", "Requests answered, by route and status", "route", "status")
	collect(err)
	m.RequestDuration, err = r.NewHistogram("scriptd_request_duration_seconds", "Time from request line to last byte written", DefaultBuckets, "route")
	collect(err)
	m.ActiveConnections, err = r.NewGauge("scriptd_active_connections", "Connections currently being handled")
	collect(err)
	m.SessionsActive, err = r.NewGauge("scriptd_sessions_active", "Sessions currently stored")
	collect(err)
	m.ScriptErrors, err = r.NewCounter("scriptd_script_errors_total", "Script executions that failed, by kind", "kind")
	collect(err)
	m.Uptime, err = r.NewGauge("scriptd_uptime_seconds", "Seconds since the server started")
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if m.runtime, err = NewRuntimeCollector(r, m.Uptime); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveRequest records one answered request. route must come from a
// bounded set such as configured routes or files under the document root.
func (m *Server) ObserveRequest(route string, status int, elapsed time.Duration) {
	if s, err := m.RequestsTotal.With(route, strconv.Itoa(status)); err == nil {
		s.Inc()
	}
	if s, err := m.RequestDuration.With(route); err == nil {
		s.Observe(elapsed.Seconds())
	}
}

// ObserveScriptError counts a failed script execution.
func (m *Server) ObserveScriptError(kind string) {
	if s, err := m.ScriptErrors.With(kind); err == nil {
		s.Inc()
	}
}

// Refresh updates the runtime and uptime gauges. Call it before exposing
// the registry.
func (m *Server) Refresh() {
	m.runtime.Collect()
}
