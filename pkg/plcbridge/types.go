package plcbridge

import (
	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
	"github.com/ghalamif/plcbridge/internal/retry"
)

// Reading is one persisted value: source, node, textual value and the
// second-resolution timestamp of its source pass.
type Reading = domain.Reading

// ReadingHandler is invoked once per reading by callback sinks.
type ReadingHandler func(Reading) error

// Dialer opens sessions with controllers (OPC UA by default, simulators in tests).
type Dialer = ports.Dialer

// Connection is a live controller session.
type Connection = ports.Connection

// NodeHandle is a node resolved by a Connection.
type NodeHandle = ports.NodeHandle

// Sink persists readings one committed row at a time.
type Sink = ports.Sink

// PersistenceTarget names the database and table a SinkOpener connects to.
type PersistenceTarget = domain.PersistenceTarget

// SinkOpener connects to a persistence target and returns a ready Sink.
type SinkOpener = ports.SinkOpener

// Observability emits metrics/logs about cycles, failures and dropped rows.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// CycleReport summarizes one pass over all sources.
type CycleReport = domain.CycleReport

type (
	SourceResult = domain.SourceResult
	NodeResult   = domain.NodeResult
)

// RetryPolicy controls how the persistence connection is re-acquired.
type RetryPolicy = retry.Policy

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = domain.ErrInvalidConfig
