package engine

import (
	"fmt"
	"time"

	"github.com/ghalamif/plcbridge/internal/domain"
)

// Snapshot is the immutable view of the configuration a Scheduler runs with.
type Snapshot struct {
	Sources []domain.Source
	Target  domain.PersistenceTarget
	// ScanInterval, when positive, selects single-cadence mode.
	ScanInterval time.Duration
	// SourceTimeout bounds one source pass; zero leaves it unbounded.
	SourceTimeout time.Duration
}

// Cadence returns the effective cycle period and how it was derived.
func (s Snapshot) Cadence() (time.Duration, CadenceMode, error) {
	return EffectiveCadence(s.ScanInterval, s.Sources)
}

func (s Snapshot) Validate() error {
	if len(s.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", domain.ErrInvalidConfig)
	}
	if _, _, err := s.Cadence(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if s.Target.Table == "" {
		return fmt.Errorf("%w: persistence table is required", domain.ErrInvalidConfig)
	}
	if !s.Target.WithSource() && len(s.Sources) > 1 {
		return fmt.Errorf("%w: single layout supports one source, got %d", domain.ErrInvalidConfig, len(s.Sources))
	}
	return nil
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Sources = make([]domain.Source, len(s.Sources))
	for i, src := range s.Sources {
		src.Nodes = append([]domain.Node(nil), src.Nodes...)
		out.Sources[i] = src
	}
	return out
}
