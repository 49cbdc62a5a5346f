package config

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Interval is a duration written either as a Go duration string ("1.5s",
// "250ms") or as a plain number of seconds.
type Interval time.Duration

func (i Interval) Duration() time.Duration { return time.Duration(i) }

func (i Interval) String() string { return time.Duration(i).String() }

func (i *Interval) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: interval must be a scalar", value.Line)
	}
	d, err := parseInterval(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*i = Interval(d)
	return nil
}

func (i Interval) MarshalYAML() (any, error) {
	return time.Duration(i).String(), nil
}

func parseInterval(s string) (time.Duration, error) {
	if s == "" || s == "~" || s == "null" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("invalid interval %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: want seconds or a duration like 1.5s", s)
	}
	return d, nil
}
