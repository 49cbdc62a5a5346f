package ports

import "context"

// NodeHandle is a resolved node owned by the Connection that produced it.
type NodeHandle interface {
	Address() string
}

// Dialer opens connections to controllers (OPC UA, simulators, etc.).
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Connection, error)
}

// Connection is a live session with one controller.
type Connection interface {
	Resolve(ctx context.Context, address string) (NodeHandle, error)
	ReadValue(ctx context.Context, h NodeHandle) (any, error)
	Close(ctx context.Context) error
}
