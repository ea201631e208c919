package metrics

import (
	"runtime"
	"time"
)

// RuntimeCollector samples Go runtime statistics on demand.
type RuntimeCollector struct {
	goroutines *Gauge
	heapAlloc  *Gauge
	heapInuse  *Gauge
	numGC      *Gauge
	gcPause    *Gauge
	uptime     *Gauge

	started time.Time
}

// NewRuntimeCollector registers the runtime gauges. uptime is updated on
// every Collect.
func NewRuntimeCollector(r *Registry, uptime *Gauge) (*RuntimeCollector, error) {
	rc := &RuntimeCollector{started: time.Now(), uptime: uptime}

	gauges := []struct {
		dst        **Gauge
		name, help string
	}{
		{&rc.goroutines, "go_goroutines", "Number of goroutines that currently exist"},
		{&rc.heapAlloc, "go_memstats_heap_alloc_bytes", "Heap bytes allocated and still in use"},
		{&rc.heapInuse, "go_memstats_heap_inuse_bytes", "Heap bytes in in-use spans"},
		{&rc.numGC, "go_gc_cycles_total", "Completed GC cycles"},
		{&rc.gcPause, "go_gc_pause_seconds_total", "Total GC stop-the-world pause time"},
	}
	for _, g := range gauges {
		gauge, err := r.NewGauge(g.name, g.help)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}
	return rc, nil
}

// Collect reads runtime statistics into the gauges.
func (rc *RuntimeCollector) Collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	if rc.uptime != nil {
		_ = rc.uptime.Set(time.Since(rc.started).Seconds())
	}
	_ = rc.goroutines.Set(float64(runtime.NumGoroutine()))
	_ = rc.heapAlloc.Set(float64(mem.HeapAlloc))
	_ = rc.heapInuse.Set(float64(mem.HeapInuse))
	_ = rc.numGC.Set(float64(mem.NumGC))
	_ = rc.gcPause.Set(float64(mem.PauseTotalNs) / 1e9)
}
