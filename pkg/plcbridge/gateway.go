package plcbridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/plcbridge/internal/adapters/observability"
	"github.com/ghalamif/plcbridge/internal/adapters/opcua"
	"github.com/ghalamif/plcbridge/internal/adapters/sink"
	"github.com/ghalamif/plcbridge/internal/app/engine"
	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// GatewayOption customizes the dependencies used by Gateway.
type GatewayOption func(*gatewayOverrides)

type gatewayOverrides struct {
	dialer        Dialer
	opener        SinkOpener
	sink          Sink
	observability Observability
	retry         *RetryPolicy
	onReport      func(CycleReport)
}

// WithDialer injects a custom controller client (simulators, other protocols).
func WithDialer(d Dialer) GatewayOption {
	return func(o *gatewayOverrides) {
		o.dialer = d
	}
}

// WithSinkOpener replaces the SQL persistence adapter.
func WithSinkOpener(op SinkOpener) GatewayOption {
	return func(o *gatewayOverrides) {
		o.opener = op
	}
}

// WithSink persists into an already constructed Sink instead of the database.
func WithSink(s Sink) GatewayOption {
	return func(o *gatewayOverrides) {
		o.sink = s
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) GatewayOption {
	return func(o *gatewayOverrides) {
		o.observability = obs
	}
}

// WithRetryPolicy overrides the persistence reconnect policy from the config.
func WithRetryPolicy(p RetryPolicy) GatewayOption {
	return func(o *gatewayOverrides) {
		o.retry = &p
	}
}

// WithReportHook receives the report of every completed cycle.
func WithReportHook(fn func(CycleReport)) GatewayOption {
	return func(o *gatewayOverrides) {
		o.onReport = fn
	}
}

// Gateway polls the configured controllers and records every reading into the
// persistence target, exposing Prometheus metrics while it runs.
type Gateway struct {
	cfg        *Config
	obs        ports.Observability
	scheduler  *engine.Scheduler
	metricsMu  sync.Mutex
	metricsSrv *http.Server
}

// NewGateway bootstraps the default adapters (OPC UA dialer, SQL sink,
// Prometheus observability). GatewayOption values override any of them.
func NewGateway(cfg *Config, opts ...GatewayOption) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides gatewayOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		logger, err := observability.NewLogger(cfg.Log, nil)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		obs = observability.NewPromObs(logger)
	}
	logWarnings(obs, cfg)

	dialer := overrides.dialer
	if dialer == nil {
		dialer = opcua.NewDialer(cfg.OPCUA)
	}

	opener := overrides.opener
	switch {
	case overrides.sink != nil:
		opener = staticOpener{sink: overrides.sink}
	case opener == nil:
		opener = sink.NewSQLOpener()
	}

	policy := cfg.RetryPolicy()
	if overrides.retry != nil {
		policy = *overrides.retry
	}

	sched, err := engine.NewScheduler(cfg.Snapshot(), dialer, opener, obs,
		engine.WithPersistenceRetry(policy),
		engine.WithReportHook(overrides.onReport),
	)
	if err != nil {
		return nil, err
	}

	return &Gateway{cfg: cfg, obs: obs, scheduler: sched}, nil
}

// Run starts the metrics server and cycles until ctx is cancelled, then shuts
// down. A cancelled context is a clean exit.
func (g *Gateway) Run(ctx context.Context) error {
	if g == nil {
		return fmt.Errorf("gateway is nil")
	}
	period, mode, _ := g.scheduler.Snapshot().Cadence()
	g.obs.LogInfo("gateway_starting",
		ports.Field{Key: "sources", Value: len(g.cfg.Sources)},
		ports.Field{Key: "cadence", Value: period.String()},
		ports.Field{Key: "mode", Value: mode.String()})
	if mode == engine.CadenceMinimum {
		g.obs.LogInfo("cadence_minimum_applied",
			ports.Field{Key: "note", Value: "every source is scanned at the shortest interval"})
	}

	g.startMetrics()

	runErr := g.scheduler.Run(ctx)
	if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, g.Shutdown(shutdownCtx))
}

// RunOnce connects, performs a single cycle and releases the persistence
// connection.
func (g *Gateway) RunOnce(ctx context.Context) (CycleReport, error) {
	if err := g.scheduler.ConnectPersistence(ctx); err != nil {
		return CycleReport{}, err
	}
	report, err := g.scheduler.RunCycle(ctx)
	return report, errors.Join(err, g.scheduler.Close())
}

// Reload validates cfg and applies its sources and cadence from the next
// cycle on. Persistence settings require a restart.
func (g *Gateway) Reload(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logWarnings(g.obs, cfg)
	return g.scheduler.Reload(cfg.Snapshot())
}

func logWarnings(obs ports.Observability, cfg *Config) {
	for _, w := range cfg.Warnings() {
		obs.LogInfo("config_warning", ports.Field{Key: "warning", Value: w})
	}
}

// Shutdown stops the metrics server and closes the persistence connection.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error

	g.metricsMu.Lock()
	srv := g.metricsSrv
	g.metricsSrv = nil
	g.metricsMu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := g.scheduler.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (g *Gateway) startMetrics() {
	if g.cfg.Metrics.Disabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              g.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.metricsMu.Lock()
	g.metricsSrv = srv
	g.metricsMu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.obs.LogError("metrics_server_exited", err, ports.Field{Key: "addr", Value: srv.Addr})
		}
	}()
}

// staticOpener hands out a caller-provided sink.
type staticOpener struct {
	sink Sink
}

func (o staticOpener) Open(ctx context.Context, _ domain.PersistenceTarget) (Sink, error) {
	if err := o.sink.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return o.sink, nil
}
