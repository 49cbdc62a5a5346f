package ports

import (
	"context"

	"github.com/ghalamif/plcbridge/internal/domain"
)

// Sink appends readings to the persistence target, one committed row per call.
// Record returns a *domain.ConnectionLostError when the sink must be replaced.
type Sink interface {
	EnsureSchema(ctx context.Context) error
	Record(ctx context.Context, r domain.Reading) error
	Close() error
	Name() string
}

// SinkOpener connects to a target and returns a Sink whose schema is ensured.
type SinkOpener interface {
	Open(ctx context.Context, target domain.PersistenceTarget) (Sink, error)
}
