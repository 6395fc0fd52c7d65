// Package observability assembles the concrete logger, tracer and metric
// instruments behind the observability.Observability port.
package observability

import (
	"github.com/Zhima-Mochi/foodorder/internal/observability"
)

// Config lists the concrete backends; any nil member falls back to a no-op.
type Config struct {
	Tracer     observability.Tracer
	Logger     observability.Logger
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

// New assembles an Observability provider from cfg.
func New(cfg Config) observability.Observability {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	var metrics observability.Metrics = observability.NopMetrics()
	if len(cfg.Counters) > 0 || len(cfg.Histograms) > 0 {
		m := &registeredMetrics{
			counters:   make(map[observability.MetricKey]observability.Counter, len(cfg.Counters)),
			histograms: make(map[observability.MetricKey]observability.Histogram, len(cfg.Histograms)),
		}
		for k, v := range cfg.Counters {
			if v != nil {
				m.counters[k] = v
			}
		}
		for k, v := range cfg.Histograms {
			if v != nil {
				m.histograms[k] = v
			}
		}
		metrics = m
	}

	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }
