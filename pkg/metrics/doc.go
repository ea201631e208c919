// Package metrics implements counters, gauges and histograms rendered in
// the Prometheus text exposition format.
//
// Every metric is safe for concurrent use. Labelled metrics hand out a
// series per label-value tuple:
//
//	r := metrics.NewRegistry()
//	reqs, _ := r.NewCounter("scriptd_requests_total", "Requests", "route", "status")
//	s, _ := reqs.With("/index.html", "200")
//	s.Inc()
//	_ = r.WriteText(os.Stdout)
//
// NewServer builds the metric set used by the scriptd server:
//
//   - scriptd_requests_total{route,status}
//   - scriptd_request_duration_seconds{route}
//   - scriptd_active_connections
//   - scriptd_sessions_active
//   - scriptd_script_errors_total{kind}
//   - scriptd_uptime_seconds
//
// plus a handful of go_* runtime gauges refreshed by Server.Refresh.
package metrics
