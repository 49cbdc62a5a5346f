package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
)

type PromObs struct {
	log      *logrus.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the gateway collectors on the default registerer and
// routes log lines through logger (logrus.StandardLogger when nil).
func NewPromObs(logger *logrus.Logger) *PromObs {
	return NewPromObsWith(prometheus.DefaultRegisterer, logger)
}

// NewPromObsWith registers on reg. Collectors already registered there by an
// earlier PromObs are shared rather than rejected.
func NewPromObsWith(reg prometheus.Registerer, logger *logrus.Logger) *PromObs {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	counter := func(name, help string) prometheus.Counter {
		return register(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help}))
	}
	recorded := counter(ports.MetricReadingsRecorded, "Readings committed to the persistence target.")
	readFailures := counter(ports.MetricReadFailures, "Node reads that failed.")
	resolveFailures := counter(ports.MetricResolveFailures, "Node addresses that could not be resolved.")
	writeFailures := counter(ports.MetricWriteFailures, "Readings dropped because the row could not be written.")
	connectFailures := counter(ports.MetricSourceConnectFailures, "Controller connections that failed.")
	reconnects := counter(ports.MetricSinkReconnects, "Persistence reconnect attempts.")
	cycles := counter(ports.MetricCycles, "Completed scan cycles.")

	sourcesUp := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricSourcesUp,
		Help: "Sources reachable during the last cycle.",
	}))
	cadence := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricCadenceSeconds,
		Help: "Effective cycle period.",
	}))
	cycleDuration := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricCycleDuration,
		Help:    "Wall time of one pass over all sources.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}))

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricReadingsRecorded:      recorded,
			ports.MetricReadFailures:          readFailures,
			ports.MetricResolveFailures:       resolveFailures,
			ports.MetricWriteFailures:         writeFailures,
			ports.MetricSourceConnectFailures: connectFailures,
			ports.MetricSinkReconnects:        reconnects,
			ports.MetricCycles:                cycles,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricSourcesUp:      sourcesUp,
			ports.MetricCadenceSeconds: cadence,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricCycleDuration: cycleDuration,
		},
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.entry(fields).Info(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.entry(fields).WithError(err).Error(msg)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.entry(fields).WithError(err).WithField("critical", true).Error(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDropped(r domain.Reading, err error) {
	p.IncCounter(ports.MetricWriteFailures, 1)
	p.log.WithFields(logrus.Fields{
		"source": r.Source,
		"node":   r.Node,
		"value":  r.Value,
	}).WithError(err).Warn("reading dropped")
}

func (p *PromObs) entry(fields []ports.Field) *logrus.Entry {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return p.log.WithFields(lf)
}

var _ ports.Observability = (*PromObs)(nil)
