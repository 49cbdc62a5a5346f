package plcbridge

import (
	"context"
	"errors"
	"fmt"
	"time"
)

func testConfig() *Config {
	return &Config{
		Sources: []SourceConfig{{
			Name:         "Line1",
			URL:          "opc.tcp://line1:4840",
			ScanInterval: Interval(time.Second),
			Nodes:        []NodeConfig{{Name: "Temp", NodeID: "ns=2;s=Temp", Type: "REAL"}},
		}},
		DB: DBConfig{
			Host:     "localhost",
			Database: "progetto",
			Table:    "dati_variabili",
		},
		Metrics: MetricsConfig{Disabled: true},
	}
}

type stubHandle string

func (h stubHandle) Address() string { return string(h) }

type stubConn struct {
	values map[string]any
}

func (c *stubConn) Resolve(_ context.Context, address string) (NodeHandle, error) {
	return stubHandle(address), nil
}

func (c *stubConn) ReadValue(_ context.Context, h NodeHandle) (any, error) {
	v, ok := c.values[h.Address()]
	if !ok {
		return nil, errors.New("BadNodeIdUnknown")
	}
	return v, nil
}

func (c *stubConn) Close(context.Context) error { return nil }

type stubDialer struct {
	values map[string]any
}

func (d *stubDialer) Dial(context.Context, string) (Connection, error) {
	return &stubConn{values: d.values}, nil
}

type stubSink struct {
	rows []Reading
}

func (s *stubSink) EnsureSchema(context.Context) error { return nil }

func (s *stubSink) Record(_ context.Context, r Reading) error {
	s.rows = append(s.rows, r)
	return nil
}

func (s *stubSink) Close() error { return nil }
func (s *stubSink) Name() string { return "stub" }

type stubObservability struct {
	infos []string
}

func (s *stubObservability) LogInfo(msg string, fields ...Field) {
	for _, f := range fields {
		msg += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	s.infos = append(s.infos, msg)
}

func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordDropped(Reading, error)        {}
