package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/plcbridge/internal/domain"
)

// CadenceMode tells how the cycle period was derived.
type CadenceMode int

const (
	// CadenceSingle: one interval governs the whole cycle.
	CadenceSingle CadenceMode = iota
	// CadenceMinimum: sources declare their own intervals and the cycle runs at
	// the smallest of them. Every source is scanned on every cycle, so sources
	// with a longer interval are polled more often than configured.
	CadenceMinimum
)

func (m CadenceMode) String() string {
	switch m {
	case CadenceSingle:
		return "single"
	case CadenceMinimum:
		return "minimum"
	default:
		return "unknown"
	}
}

// EffectiveCadence returns the global cycle period. A positive global interval
// wins; otherwise the minimum per-source interval is used.
func EffectiveCadence(global time.Duration, sources []domain.Source) (time.Duration, CadenceMode, error) {
	if global > 0 {
		return global, CadenceSingle, nil
	}
	if len(sources) == 0 {
		return 0, CadenceSingle, errors.New("no sources configured")
	}

	var (
		period   time.Duration
		distinct = make(map[time.Duration]struct{}, len(sources))
	)
	for _, src := range sources {
		if src.ScanInterval <= 0 {
			return 0, CadenceSingle, fmt.Errorf("source %q: scan interval must be positive", src.Name)
		}
		distinct[src.ScanInterval] = struct{}{}
		if period == 0 || src.ScanInterval < period {
			period = src.ScanInterval
		}
	}
	if len(distinct) == 1 {
		return period, CadenceSingle, nil
	}
	return period, CadenceMinimum, nil
}
