package workers

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/getmockd/scriptd/pkg/metrics"
	"github.com/getmockd/scriptd/pkg/response"
)

// Worker handles a request by writing to its response context.
type Worker interface {
	ProcessRequest(ctx *response.Context) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx *response.Context) error

// ProcessRequest calls f.
func (f WorkerFunc) ProcessRequest(ctx *response.Context) error { return f(ctx) }

// Factory builds a fresh worker for each dispatch.
type Factory func() Worker

// ErrDuplicateWorker is returned when a name is registered twice.
var ErrDuplicateWorker = errors.New("worker already registered")

// Registry maps worker names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateWorker, name)
	}
	r.factories[name] = f
	return nil
}

// Set adds or replaces a factory.
func (r *Registry) Set(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds a fresh worker by name.
func (r *Registry) New(name string) (Worker, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Stock worker names.
const (
	NameHello      = "HelloWorker"
	NameEchoParams = "EchoParams"
	NameCircle     = "CircleWorker"
	NameSum        = "SumWorker"
	NameBgColor    = "BgColorWorker"
	NameHome       = "Home"
	NameParamsJSON = "ParamsJSON"
	NameMetrics    = "Metrics"
)

// Defaults returns a registry with the stock workers. The Metrics worker is
// only present when m is not nil.
func Defaults(m *metrics.Server) *Registry {
	r := NewRegistry()
	r.Set(NameHello, func() Worker { return &Hello{} })
	r.Set(NameEchoParams, func() Worker { return &EchoParams{} })
	r.Set(NameCircle, func() Worker { return &Circle{} })
	r.Set(NameSum, func() Worker { return &Sum{} })
	r.Set(NameBgColor, func() Worker { return &BgColor{} })
	r.Set(NameHome, func() Worker { return &Home{} })
	r.Set(NameParamsJSON, func() Worker { return &ParamsJSON{} })
	if m != nil {
		r.Set(NameMetrics, func() Worker { return &Metrics{metrics: m} })
	}
	return r
}

// DefaultRoutes maps URL paths to stock worker names.
func DefaultRoutes() map[string]string {
	return map[string]string{
		"/hello":       NameHello,
		"/echo":        NameEchoParams,
		"/cw":          NameCircle,
		"/calc":        NameSum,
		"/setbgcolor":  NameBgColor,
		"/index2.html": NameHome,
		"/params.json": NameParamsJSON,
		"/metrics":     NameMetrics,
	}
}
