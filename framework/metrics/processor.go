// Package metrics exports component lifecycle metrics to Prometheus through
// a container processor.
package metrics

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/km-arc/go-trooper/framework/container"
)

// Processor counts injected and initialized components per concrete type
// and observes how long Initialize takes. A nil *Processor is a no-op.
type Processor struct {
	injected     *prometheus.CounterVec
	initialized  *prometheus.CounterVec
	initDuration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[any]time.Time
	now     func() time.Time
}

var _ container.Processor = (*Processor)(nil)

// NewProcessor registers the collectors on reg. It returns nil when reg is
// nil (metrics disabled).
func NewProcessor(reg prometheus.Registerer) *Processor {
	if reg == nil {
		return nil
	}
	return &Processor{
		injected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "trooper_component_injections_total",
				Help: "Total number of components that completed injection, by type",
			},
			[]string{"type"},
		),
		initialized: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "trooper_component_initializations_total",
				Help: "Total number of components that completed initialization, by type",
			},
			[]string{"type"},
		),
		initDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trooper_component_initialization_seconds",
				Help:    "Time spent in component initialization, by type",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8), // 0.5ms .. ~8s
			},
			[]string{"type"},
		),
		started: make(map[any]time.Time),
		now:     time.Now,
	}
}

func (p *Processor) AfterInjection(c any) error {
	if p == nil {
		return nil
	}
	p.injected.WithLabelValues(label(c)).Inc()
	return nil
}

func (p *Processor) BeforeInitialization(c any) error {
	if p == nil || !hashable(c) {
		return nil
	}
	p.mu.Lock()
	p.started[c] = p.now()
	p.mu.Unlock()
	return nil
}

func (p *Processor) AfterInitialization(c any) error {
	if p == nil {
		return nil
	}
	typ := label(c)
	p.initialized.WithLabelValues(typ).Inc()
	if !hashable(c) {
		return nil
	}
	p.mu.Lock()
	start, ok := p.started[c]
	delete(p.started, c)
	p.mu.Unlock()
	if ok {
		p.initDuration.WithLabelValues(typ).Observe(p.now().Sub(start).Seconds())
	}
	return nil
}

// Namespace wraps p in a namespace so it can be scanned like any processor.
func Namespace(p *Processor) *container.Namespace {
	return container.NewNamespace("metrics").Processor(container.Descriptor{
		Type:      container.TypeOf[*Processor](),
		Singleton: true,
		Factory: func(container.Resolver) (any, error) {
			if p == nil {
				return nil, fmt.Errorf("metrics: processor is disabled")
			}
			return p, nil
		},
	})
}

func label(c any) string { return fmt.Sprintf("%T", c) }

func hashable(c any) bool {
	t := reflect.TypeOf(c)
	return t != nil && t.Comparable()
}
