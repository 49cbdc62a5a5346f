package domain

import (
	"strings"
	"time"
)

// NodeType is the declared type tag of a node. It is advisory: values read back
// are never validated against it.
type NodeType string

const (
	NodeTypeInt  NodeType = "INT"
	NodeTypeReal NodeType = "REAL"
	NodeTypeBool NodeType = "BOOL"
)

// ParseNodeType upper-cases the tag; unknown tags are kept as-is.
func ParseNodeType(s string) NodeType {
	return NodeType(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether t is one of INT, REAL or BOOL.
func (t NodeType) Known() bool {
	switch t {
	case NodeTypeInt, NodeTypeReal, NodeTypeBool:
		return true
	}
	return false
}

// Node is a single named variable exposed by a Source at a protocol address.
type Node struct {
	Name    string
	Address string
	Type    NodeType
}

// Source is a controller reachable at Endpoint with an ordered list of nodes.
type Source struct {
	Name         string
	Endpoint     string
	ScanInterval time.Duration
	Nodes        []Node
}

// HasNode reports whether a node with the given logical name is configured.
func (s Source) HasNode(name string) bool {
	for _, n := range s.Nodes {
		if n.Name == name {
			return true
		}
	}
	return false
}

// Table layouts. LayoutSingle omits the source column, as the single-PLC
// deployments did.
const (
	LayoutMulti  = "multi"
	LayoutSingle = "single"
)

// PersistenceTarget describes where readings are written.
type PersistenceTarget struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Table    string
	Layout   string
}

// WithSource reports whether rows carry the source name column.
func (t PersistenceTarget) WithSource() bool {
	return t.Layout != LayoutSingle
}
