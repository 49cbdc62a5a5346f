package plcbridge

import (
	"context"
	"errors"
)

// Flow builds a Gateway in steps: Conf loads the document, From picks the
// controller client, Into picks where readings land.
//
//	flow, _ := plcbridge.Conf("data/config.yaml")
//	err := flow.IntoFunc("stdout", show).Run(ctx)
type Flow struct {
	cfg  *Config
	opts []GatewayOption
}

// Conf loads the configuration at path.
func Conf(path string) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg)
}

// ConfFromConfig starts a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config) (*Flow, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return &Flow{cfg: cfg}, nil
}

// Config is the document the gateway will be built from. Edits made before
// Build are honoured.
func (f *Flow) Config() *Config { return f.cfg }

// From reads controllers through d instead of OPC UA.
func (f *Flow) From(d Dialer) *Flow {
	return f.With(WithDialer(d))
}

// Into records readings into s instead of the configured database.
func (f *Flow) Into(s Sink) *Flow {
	return f.With(WithSink(s))
}

// IntoFunc hands every reading to fn.
func (f *Flow) IntoFunc(name string, fn ReadingHandler) *Flow {
	return f.Into(NewCallbackSink(name, fn))
}

// With appends any other GatewayOption (observability, retry, report hook).
func (f *Flow) With(opts ...GatewayOption) *Flow {
	f.opts = append(f.opts, opts...)
	return f
}

func (f *Flow) Build() (*Gateway, error) {
	return NewGateway(f.cfg, f.opts...)
}

// Run builds the gateway and runs it until ctx is cancelled.
func (f *Flow) Run(ctx context.Context) error {
	gw, err := f.Build()
	if err != nil {
		return err
	}
	return gw.Run(ctx)
}

// RunOnce builds the gateway and performs a single cycle.
func (f *Flow) RunOnce(ctx context.Context) (CycleReport, error) {
	gw, err := f.Build()
	if err != nil {
		return CycleReport{}, err
	}
	return gw.RunOnce(ctx)
}
