package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/plcbridge/internal/ports"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// Config captures the client-side settings shared by every controller session.
type Config struct {
	ApplicationName string        `yaml:"application_name"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	// SkipNodeCheck resolves node ids locally without asking the server
	// whether they exist.
	SkipNodeCheck bool `yaml:"skip_node_check"`
}

func (c *Config) ApplyDefaults() {
	if c.ApplicationName == "" {
		c.ApplicationName = "plcbridge"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

// Dialer opens anonymous, unencrypted OPC UA sessions.
type Dialer struct {
	cfg Config
}

func NewDialer(cfg Config) *Dialer {
	cfg.ApplyDefaults()
	return &Dialer{cfg: cfg}
}

func (d *Dialer) Dial(ctx context.Context, endpoint string) (ports.Connection, error) {
	if endpoint == "" {
		return nil, errors.New("opcua: empty endpoint")
	}
	client, err := opcua.NewClient(endpoint, d.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, d.cfg.DialTimeout)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	return &Connection{client: client, checkNodes: !d.cfg.SkipNodeCheck}, nil
}

func (d *Dialer) clientOptions() []opcua.Option {
	return []opcua.Option{
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.SecurityPolicy(ua.SecurityPolicyURINone),
		opcua.AuthAnonymous(),
		opcua.ApplicationName(d.cfg.ApplicationName),
		opcua.DialTimeout(d.cfg.DialTimeout),
		opcua.RequestTimeout(d.cfg.RequestTimeout),
		// reconnects are the scheduler's business
		opcua.AutoReconnect(false),
	}
}

// Connection is a connected OPC UA client.
type Connection struct {
	client     *opcua.Client
	checkNodes bool
}

type nodeHandle struct {
	address string
	id      *ua.NodeID
}

func (h *nodeHandle) Address() string { return h.address }

// Resolve parses the address and, unless disabled, confirms the node exists by
// reading its NodeClass.
func (c *Connection) Resolve(ctx context.Context, address string) (ports.NodeHandle, error) {
	id, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	if c.checkNodes {
		if _, err := c.read(ctx, id, ua.AttributeIDNodeClass); err != nil {
			return nil, err
		}
	}
	return &nodeHandle{address: address, id: id}, nil
}

// addressPrefixes are the identifier forms a node address may start with.
var addressPrefixes = []string{"ns=", "i=", "s=", "g=", "b="}

// parseAddress accepts only explicit node ids like "ns=2;s=Temp" or "i=2258".
// A bare word would otherwise parse as a string identifier in namespace 0.
func parseAddress(address string) (*ua.NodeID, error) {
	if address == "" {
		return nil, errors.New("opcua: empty node id")
	}
	known := false
	for _, p := range addressPrefixes {
		if strings.HasPrefix(address, p) {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("opcua: node id %q must start with one of %s", address, strings.Join(addressPrefixes, ", "))
	}
	id, err := ua.ParseNodeID(address)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", address, err)
	}
	return id, nil
}

// ReadValue returns the decoded Go value held by the node's Value attribute.
func (c *Connection) ReadValue(ctx context.Context, h ports.NodeHandle) (any, error) {
	nh, ok := h.(*nodeHandle)
	if !ok {
		return nil, fmt.Errorf("opcua: foreign node handle %T", h)
	}
	v, err := c.read(ctx, nh.id, ua.AttributeIDValue)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.Value(), nil
}

func (c *Connection) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Close(ctx)
	c.client = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Connection) read(ctx context.Context, id *ua.NodeID, attr ua.AttributeID) (*ua.Variant, error) {
	if c.client == nil {
		return nil, errors.New("opcua: connection closed")
	}
	req := &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: id, AttributeID: attr},
		},
	}
	resp, err := c.client.Read(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("opcua read %s: %w", id, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("opcua read %s: empty result", id)
	}
	res := resp.Results[0]
	if res.Status != ua.StatusOK {
		return nil, fmt.Errorf("opcua read %s: %w", id, res.Status)
	}
	return res.Value, nil
}

var (
	_ ports.Dialer     = (*Dialer)(nil)
	_ ports.Connection = (*Connection)(nil)
)
