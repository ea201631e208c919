package metrics

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry and metric errors.
var (
	ErrLabelCountMismatch   = errors.New("label count mismatch")
	ErrNegativeCounterValue = errors.New("counter cannot be decreased")
	ErrDuplicateMetric      = errors.New("duplicate metric name")
)

// atomicFloat64 stores a float64 as bits for lock-free updates.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 { return math.Float64frombits(a.bits.Load()) }

func (a *atomicFloat64) Store(v float64) { a.bits.Store(math.Float64bits(v)) }

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		if a.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// MetricType is the Prometheus TYPE of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is implemented by Counter, Gauge and Histogram.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Collect returns the current samples ordered by label values.
	Collect() []Sample
}

// Sample is one exposition line.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// family holds one series per distinct label-value tuple.
type family[S any] struct {
	name       string
	help       string
	labelNames []string
	newSeries  func() *S

	mu     sync.RWMutex
	series map[string]*S
	labels map[string]map[string]string
}

func (f *family[S]) init(name, help string, labelNames []string, newSeries func() *S) {
	f.name = name
	f.help = help
	f.labelNames = labelNames
	f.newSeries = newSeries
	f.series = make(map[string]*S)
	f.labels = make(map[string]map[string]string)
}

func (f *family[S]) with(values []string) (*S, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s expects %d labels, got %d", ErrLabelCountMismatch, f.name, len(f.labelNames), len(values))
	}
	key := strings.Join(values, "\x00")

	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok = f.series[key]; ok {
		return s, nil
	}
	labels := make(map[string]string, len(values))
	for i, n := range f.labelNames {
		labels[n] = values[i]
	}
	s = f.newSeries()
	f.series[key] = s
	f.labels[key] = labels
	return s, nil
}

// each visits series in label-key order.
func (f *family[S]) each(fn func(labels map[string]string, s *S)) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, key := range slices.Sorted(maps.Keys(f.series)) {
		fn(f.labels[key], f.series[key])
	}
}

// Counter only goes up.
type Counter struct {
	family[atomicFloat64]
}

func (c *Counter) Name() string     { return c.name }
func (c *Counter) Help() string     { return c.help }
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// With returns the series for the given label values.
func (c *Counter) With(values ...string) (*CounterSeries, error) {
	v, err := c.with(values)
	if err != nil {
		return nil, err
	}
	return &CounterSeries{v: v}, nil
}

// Inc adds one to an unlabelled counter.
func (c *Counter) Inc() error { return c.Add(1) }

// Add adds delta to an unlabelled counter.
func (c *Counter) Add(delta float64) error {
	s, err := c.With()
	if err != nil {
		return err
	}
	return s.Add(delta)
}

func (c *Counter) Collect() []Sample {
	var out []Sample
	c.each(func(labels map[string]string, v *atomicFloat64) {
		out = append(out, Sample{Name: c.name, Labels: labels, Value: v.Load()})
	})
	return out
}

// CounterSeries is one labelled counter.
type CounterSeries struct{ v *atomicFloat64 }

func (s *CounterSeries) Inc() { s.v.Add(1) }

// Add fails on negative deltas.
func (s *CounterSeries) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeCounterValue
	}
	s.v.Add(delta)
	return nil
}

// Gauge goes up and down.
type Gauge struct {
	family[atomicFloat64]
}

func (g *Gauge) Name() string     { return g.name }
func (g *Gauge) Help() string     { return g.help }
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// With returns the series for the given label values.
func (g *Gauge) With(values ...string) (*GaugeSeries, error) {
	v, err := g.with(values)
	if err != nil {
		return nil, err
	}
	return &GaugeSeries{v: v}, nil
}

// Set sets an unlabelled gauge.
func (g *Gauge) Set(v float64) error {
	s, err := g.With()
	if err != nil {
		return err
	}
	s.Set(v)
	return nil
}

// Add adds delta to an unlabelled gauge.
func (g *Gauge) Add(delta float64) error {
	s, err := g.With()
	if err != nil {
		return err
	}
	s.Add(delta)
	return nil
}

func (g *Gauge) Collect() []Sample {
	var out []Sample
	g.each(func(labels map[string]string, v *atomicFloat64) {
		out = append(out, Sample{Name: g.name, Labels: labels, Value: v.Load()})
	})
	return out
}

// GaugeSeries is one labelled gauge.
type GaugeSeries struct{ v *atomicFloat64 }

func (s *GaugeSeries) Set(v float64)     { s.v.Store(v) }
func (s *GaugeSeries) Add(delta float64) { s.v.Add(delta) }
func (s *GaugeSeries) Inc()              { s.v.Add(1) }
func (s *GaugeSeries) Dec()              { s.v.Add(-1) }

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	family[histogramSeries]
	bounds []float64
}

type histogramSeries struct {
	counts []atomic.Uint64
	sum    atomicFloat64
	count  atomic.Uint64
}

func (h *Histogram) Name() string     { return h.name }
func (h *Histogram) Help() string     { return h.help }
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// With returns the series for the given label values.
func (h *Histogram) With(values ...string) (*HistogramSeries, error) {
	s, err := h.with(values)
	if err != nil {
		return nil, err
	}
	return &HistogramSeries{bounds: h.bounds, s: s}, nil
}

// Observe records v in an unlabelled histogram.
func (h *Histogram) Observe(v float64) error {
	s, err := h.With()
	if err != nil {
		return err
	}
	s.Observe(v)
	return nil
}

func (h *Histogram) Collect() []Sample {
	var out []Sample
	h.each(func(labels map[string]string, s *histogramSeries) {
		var cumulative uint64
		for i, bound := range h.bounds {
			cumulative += s.counts[i].Load()
			bl := maps.Clone(labels)
			bl["le"] = formatFloat(bound)
			out = append(out, Sample{Name: h.name + "_bucket", Labels: bl, Value: float64(cumulative)})
		}
		out = append(out,
			Sample{Name: h.name + "_sum", Labels: labels, Value: s.sum.Load()},
			Sample{Name: h.name + "_count", Labels: labels, Value: float64(s.count.Load())},
		)
	})
	return out
}

// HistogramSeries is one labelled histogram.
type HistogramSeries struct {
	bounds []float64
	s      *histogramSeries
}

// Observe records v.
func (hs *HistogramSeries) Observe(v float64) {
	i, _ := slices.BinarySearch(hs.bounds, v)
	if i < len(hs.bounds) {
		hs.s.counts[i].Add(1)
	}
	hs.s.sum.Add(v)
	hs.s.count.Add(1)
}

// DefaultBuckets are request-duration buckets in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Registry owns a set of uniquely named metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics []Metric
	names   map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter registers a counter.
func (r *Registry) NewCounter(name, help string, labels ...string) (*Counter, error) {
	c := &Counter{}
	c.init(name, help, labels, func() *atomicFloat64 { return new(atomicFloat64) })
	return c, r.Register(c)
}

// NewGauge registers a gauge.
func (r *Registry) NewGauge(name, help string, labels ...string) (*Gauge, error) {
	g := &Gauge{}
	g.init(name, help, labels, func() *atomicFloat64 { return new(atomicFloat64) })
	return g, r.Register(g)
}

// NewHistogram registers a histogram. A +Inf bucket is always present.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) (*Histogram, error) {
	bounds := slices.Sorted(slices.Values(buckets))
	if len(bounds) == 0 || !math.IsInf(bounds[len(bounds)-1], 1) {
		bounds = append(bounds, math.Inf(1))
	}
	h := &Histogram{bounds: bounds}
	h.init(name, help, labels, func() *histogramSeries {
		return &histogramSeries{counts: make([]atomic.Uint64, len(bounds))}
	})
	return h, r.Register(h)
}

// Register adds m. Names must be unique.
func (r *Registry) Register(m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[m.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, m.Name())
	}
	r.names[m.Name()] = struct{}{}
	r.metrics = append(r.metrics, m)
	return nil
}

// Metrics returns the registered metrics in registration order.
func (r *Registry) Metrics() []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.metrics)
}
