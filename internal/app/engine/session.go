package engine

import (
	"context"
	"fmt"

	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
)

type resolvedNode struct {
	node   domain.Node
	handle ports.NodeHandle
}

// SourceSession owns one controller connection and the nodes it could resolve.
type SourceSession struct {
	source     domain.Source
	conn       ports.Connection
	nodes      []resolvedNode
	unresolved []domain.NodeResult
	obs        ports.Observability
}

// OpenSession connects to src and resolves its nodes. Nodes that fail to
// resolve are left out of the readable set; only a failed connection fails
// the open.
func OpenSession(ctx context.Context, dialer ports.Dialer, src domain.Source, obs ports.Observability) (*SourceSession, error) {
	conn, err := dialer.Dial(ctx, src.Endpoint)
	if err != nil {
		return nil, &domain.ConnectError{Target: fmt.Sprintf("%s (%s)", src.Name, src.Endpoint), Err: err}
	}

	s := &SourceSession{
		source: src,
		conn:   conn,
		nodes:  make([]resolvedNode, 0, len(src.Nodes)),
		obs:    obs,
	}
	for _, n := range src.Nodes {
		h, err := conn.Resolve(ctx, n.Address)
		if err != nil {
			rerr := &domain.ResolveError{Source: src.Name, Node: n.Name, Err: err}
			s.unresolved = append(s.unresolved, domain.NodeResult{Node: n, Err: rerr})
			obs.IncCounter(ports.MetricResolveFailures, 1)
			obs.LogError("node_resolve_failed", rerr,
				ports.Field{Key: "source", Value: src.Name},
				ports.Field{Key: "node", Value: n.Name},
				ports.Field{Key: "address", Value: n.Address})
			continue
		}
		s.nodes = append(s.nodes, resolvedNode{node: n, handle: h})
	}
	return s, nil
}

// ReadAll reads every resolved node in configuration order. A failing node is
// reported in its result and never stops the remaining reads.
func (s *SourceSession) ReadAll(ctx context.Context) []domain.NodeResult {
	out := make([]domain.NodeResult, 0, len(s.nodes))
	for _, rn := range s.nodes {
		v, err := s.conn.ReadValue(ctx, rn.handle)
		if err != nil {
			rerr := &domain.ReadError{Source: s.source.Name, Node: rn.node.Name, Err: err}
			out = append(out, domain.NodeResult{Node: rn.node, Err: rerr})
			s.obs.IncCounter(ports.MetricReadFailures, 1)
			s.obs.LogError("node_read_failed", rerr,
				ports.Field{Key: "source", Value: s.source.Name},
				ports.Field{Key: "node", Value: rn.node.Name})
			continue
		}
		out = append(out, domain.NodeResult{Node: rn.node, Value: v})
	}
	return out
}

// Unresolved lists the nodes dropped at open time.
func (s *SourceSession) Unresolved() []domain.NodeResult {
	if s == nil {
		return nil
	}
	return s.unresolved
}

// Readable is the number of nodes that resolved.
func (s *SourceSession) Readable() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// Close releases the connection. It is safe on a nil or already closed session.
func (s *SourceSession) Close(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	s.nodes = nil
	return conn.Close(ctx)
}
