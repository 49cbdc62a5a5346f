package domain

import "time"

// NodeResult is the outcome of resolving or reading one node.
type NodeResult struct {
	Node  Node
	Value any
	Err   error
}

// OK reports whether the node produced a value.
func (r NodeResult) OK() bool { return r.Err == nil }

// SourceResult collects everything that happened to one source in a cycle.
type SourceResult struct {
	Source    string
	Timestamp time.Time
	// ConnectErr is set when the session could not be opened; Nodes is empty then.
	ConnectErr error
	Nodes      []NodeResult
	Recorded   int
	Dropped    int
}

// Failed counts nodes that did not yield a value.
func (r SourceResult) Failed() int {
	n := 0
	for _, res := range r.Nodes {
		if !res.OK() {
			n++
		}
	}
	return n
}

// CycleReport is the per-cycle summary handed to observers and tests.
type CycleReport struct {
	Started  time.Time
	Duration time.Duration
	Sources  []SourceResult
}

// Recorded sums recorded rows across all sources.
func (r CycleReport) Recorded() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Recorded
	}
	return n
}

// Source returns the result for the named source.
func (r CycleReport) Source(name string) (SourceResult, bool) {
	for _, s := range r.Sources {
		if s.Source == name {
			return s, true
		}
	}
	return SourceResult{}, false
}
