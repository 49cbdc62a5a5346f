package plcbridge

import (
	"github.com/ghalamif/plcbridge/internal/adapters/observability"
	"github.com/ghalamif/plcbridge/internal/adapters/opcua"
	"github.com/ghalamif/plcbridge/internal/app/config"
)

// Config re-exports the configuration document so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SourceConfig is one controller and its nodes.
	SourceConfig = config.SourceConfig
	// NodeConfig describes a monitored variable.
	NodeConfig = config.NodeConfig
	// DBConfig configures the persistence target.
	DBConfig = config.DBConfig
	// RetryConfig controls persistence reconnects.
	RetryConfig = config.RetryConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// OPCUAConfig holds client settings shared by every source.
	OPCUAConfig = opcua.Config
	LogConfig   = observability.LogConfig
	// Interval is a duration given as seconds or a duration string.
	Interval = config.Interval
)

// LoadConfig loads and validates YAML (or JSON) from disk.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig validates an in-memory document.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}
