package plcbridge

import (
	base "github.com/ghalamif/plcbridge/pkg/plcbridge"
)

// Re-exported errors for convenience.
var (
	ErrInvalidConfig     = base.ErrInvalidConfig
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/plcbridge directly.
type (
	Config            = base.Config
	SourceConfig      = base.SourceConfig
	NodeConfig        = base.NodeConfig
	DBConfig          = base.DBConfig
	RetryConfig       = base.RetryConfig
	MetricsConfig     = base.MetricsConfig
	OPCUAConfig       = base.OPCUAConfig
	LogConfig         = base.LogConfig
	Interval          = base.Interval
	Flow              = base.Flow
	Gateway           = base.Gateway
	GatewayOption     = base.GatewayOption
	Reading           = base.Reading
	ReadingHandler    = base.ReadingHandler
	Dialer            = base.Dialer
	Connection        = base.Connection
	NodeHandle        = base.NodeHandle
	Sink              = base.Sink
	SinkOpener        = base.SinkOpener
	PersistenceTarget = base.PersistenceTarget
	Observability     = base.Observability
	Field             = base.Field
	CycleReport       = base.CycleReport
	SourceResult      = base.SourceResult
	NodeResult        = base.NodeResult
	RetryPolicy       = base.RetryPolicy
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

// Flow builder helpers.
func Conf(path string) (*Flow, error) {
	return base.Conf(path)
}

func ConfFromConfig(cfg *Config) (*Flow, error) {
	return base.ConfFromConfig(cfg)
}

// Gateway and options.
func NewGateway(cfg *Config, opts ...GatewayOption) (*Gateway, error) {
	return base.NewGateway(cfg, opts...)
}

func WithDialer(d Dialer) GatewayOption {
	return base.WithDialer(d)
}

func WithSinkOpener(op SinkOpener) GatewayOption {
	return base.WithSinkOpener(op)
}

func WithSink(s Sink) GatewayOption {
	return base.WithSink(s)
}

func WithObservability(obs Observability) GatewayOption {
	return base.WithObservability(obs)
}

func WithRetryPolicy(p RetryPolicy) GatewayOption {
	return base.WithRetryPolicy(p)
}

func WithReportHook(fn func(CycleReport)) GatewayOption {
	return base.WithReportHook(fn)
}

// Sink adapters.
func NewCallbackSink(name string, fn ReadingHandler) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan Reading, func()) {
	return base.NewChannelSink(name, buffer)
}
