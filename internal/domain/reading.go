package domain

import "time"

// Reading is one (source, node, value, timestamp) observation. It is written
// straight into a row and discarded.
type Reading struct {
	Source    string    `json:"source_name"`
	Node      string    `json:"node_name"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
