package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/ghalamif/plcbridge/internal/adapters/observability"
	"github.com/ghalamif/plcbridge/internal/adapters/opcua"
	"github.com/ghalamif/plcbridge/internal/adapters/sink"
	"github.com/ghalamif/plcbridge/internal/app/engine"
	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/retry"
)

// LegacySourceName names the source synthesized from a single-PLC document.
const LegacySourceName = "PLC"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

type Config struct {
	Autostart     bool                    `yaml:"autostart"`
	ScanInterval  Interval                `yaml:"scan_interval,omitempty"`
	SourceTimeout Interval                `yaml:"source_timeout,omitempty"`
	Sources       []SourceConfig          `yaml:"sources"`
	DB            DBConfig                `yaml:"db"`
	OPCUA         opcua.Config            `yaml:"opcua"`
	Retry         RetryConfig             `yaml:"retry"`
	Metrics       MetricsConfig           `yaml:"metrics"`
	Log           observability.LogConfig `yaml:"log"`

	// Single-PLC documents carry these instead of sources.
	PLCURL string       `yaml:"plc_url,omitempty"`
	Nodes  []NodeConfig `yaml:"nodes,omitempty"`
}

type SourceConfig struct {
	Name         string       `yaml:"name"`
	URL          string       `yaml:"url"`
	ScanInterval Interval     `yaml:"scan_interval"`
	Nodes        []NodeConfig `yaml:"nodes"`
}

type NodeConfig struct {
	Name   string `yaml:"name"`
	NodeID string `yaml:"nodeid"`
	Type   string `yaml:"type"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
	Layout   string `yaml:"layout"`
}

type RetryConfig struct {
	Delay Interval `yaml:"delay"`
	// MaxAttempts <= 0 retries forever.
	MaxAttempts int      `yaml:"max_attempts"`
	Multiplier  float64  `yaml:"multiplier"`
	MaxDelay    Interval `yaml:"max_delay"`
}

type MetricsConfig struct {
	Addr     string `yaml:"addr"`
	Disabled bool   `yaml:"disabled"`
}

// Default is the document used when no configuration file exists yet.
func Default() *Config {
	cfg := &Config{
		DB: DBConfig{
			Host:     "localhost",
			User:     "root",
			Password: "password",
			Database: "progetto",
			Table:    "dati_variabili",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, normalizes and validates the document at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// LoadOrDefault behaves like Load but returns Default when path does not exist.
// The result is not validated, so an empty document can be edited into shape.
func LoadOrDefault(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML (or JSON) document, converts the single-PLC form,
// applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	cfg, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	cfg.convertLegacy()
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save writes the document to path, replacing it atomically.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (c *Config) convertLegacy() {
	if c.PLCURL == "" && len(c.Nodes) == 0 {
		return
	}
	if len(c.Sources) == 0 {
		c.Sources = []SourceConfig{{
			Name:         LegacySourceName,
			URL:          c.PLCURL,
			ScanInterval: c.ScanInterval,
			Nodes:        c.Nodes,
		}}
		c.ScanInterval = 0
		if c.DB.Layout == "" {
			c.DB.Layout = domain.LayoutSingle
		}
	}
	c.PLCURL = ""
	c.Nodes = nil
}

func (c *Config) ApplyDefaults() {
	if c.DB.Driver == "" {
		c.DB.Driver = sink.DriverMySQL
	}
	if c.DB.Layout == "" {
		c.DB.Layout = domain.LayoutMulti
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = Interval(engine.DefaultReconnectDelay)
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = 1
	}
	if c.Retry.MaxDelay < c.Retry.Delay {
		c.Retry.MaxDelay = c.Retry.Delay
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	for i := range c.Sources {
		for j := range c.Sources[i].Nodes {
			n := &c.Sources[i].Nodes[j]
			n.Type = string(domain.ParseNodeType(n.Type))
		}
	}

	c.OPCUA.ApplyDefaults()
}

// Warnings lists problems that do not stop the gateway. Repeated source names
// are allowed, but their rows cannot be told apart in the table.
func (c *Config) Warnings() []string {
	var out []string
	seen := make(map[string]int, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" {
			continue
		}
		seen[src.Name]++
		if seen[src.Name] == 2 {
			out = append(out, fmt.Sprintf("source %q is defined more than once", src.Name))
		}
	}
	return out
}

// Validate reports every problem in the document at once. The returned error
// wraps domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var result *multierror.Error

	if len(c.Sources) == 0 {
		result = multierror.Append(result, errors.New("at least one source is required"))
	}
	for i, src := range c.Sources {
		where := fmt.Sprintf("sources[%d]", i)
		if src.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", where))
		} else {
			where = fmt.Sprintf("source %q", src.Name)
		}
		if src.URL == "" {
			result = multierror.Append(result, fmt.Errorf("%s: url is required", where))
		}
		if c.ScanInterval <= 0 && src.ScanInterval <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s: scan_interval must be positive", where))
		}
		nodes := make(map[string]struct{}, len(src.Nodes))
		for j, n := range src.Nodes {
			if n.Name == "" || n.NodeID == "" {
				result = multierror.Append(result, fmt.Errorf("%s: nodes[%d]: name and nodeid are required", where, j))
				continue
			}
			if _, dup := nodes[n.Name]; dup {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate node %q", where, n.Name))
			}
			nodes[n.Name] = struct{}{}
		}
	}

	switch c.DB.Driver {
	case sink.DriverMySQL, sink.DriverPostgres:
	default:
		result = multierror.Append(result, fmt.Errorf("db.driver %q is not supported", c.DB.Driver))
	}
	if c.DB.Host == "" {
		result = multierror.Append(result, errors.New("db.host is required"))
	}
	if c.DB.Database == "" {
		result = multierror.Append(result, errors.New("db.database is required"))
	}
	if !identRe.MatchString(c.DB.Table) {
		result = multierror.Append(result, fmt.Errorf("db.table %q is not a valid identifier", c.DB.Table))
	}
	switch c.DB.Layout {
	case domain.LayoutMulti:
	case domain.LayoutSingle:
		if len(c.Sources) > 1 {
			result = multierror.Append(result, errors.New("db.layout single supports exactly one source"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("db.layout %q is not supported", c.DB.Layout))
	}

	if c.ScanInterval < 0 || c.SourceTimeout < 0 {
		result = multierror.Append(result, errors.New("scan_interval and source_timeout must not be negative"))
	}
	if c.Retry.MaxAttempts < 0 {
		result = multierror.Append(result, errors.New("retry.max_attempts must not be negative"))
	}
	if !c.Metrics.Disabled && c.Metrics.Addr == "" {
		result = multierror.Append(result, errors.New("metrics.addr is required"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	return nil
}

// Snapshot converts the document into the engine's immutable view.
func (c *Config) Snapshot() engine.Snapshot {
	snap := engine.Snapshot{
		Sources:       make([]domain.Source, 0, len(c.Sources)),
		Target:        c.Target(),
		ScanInterval:  c.ScanInterval.Duration(),
		SourceTimeout: c.SourceTimeout.Duration(),
	}
	for _, sc := range c.Sources {
		src := domain.Source{
			Name:         sc.Name,
			Endpoint:     sc.URL,
			ScanInterval: sc.ScanInterval.Duration(),
			Nodes:        make([]domain.Node, 0, len(sc.Nodes)),
		}
		for _, n := range sc.Nodes {
			src.Nodes = append(src.Nodes, domain.Node{
				Name:    n.Name,
				Address: n.NodeID,
				Type:    domain.ParseNodeType(n.Type),
			})
		}
		snap.Sources = append(snap.Sources, src)
	}
	return snap
}

func (c *Config) Target() domain.PersistenceTarget {
	return domain.PersistenceTarget{
		Driver:   c.DB.Driver,
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		User:     c.DB.User,
		Password: c.DB.Password,
		Database: c.DB.Database,
		Table:    c.DB.Table,
		Layout:   c.DB.Layout,
	}
}

func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		Delay:       c.Retry.Delay.Duration(),
		Multiplier:  c.Retry.Multiplier,
		MaxDelay:    c.Retry.MaxDelay.Duration(),
	}
}

// Source returns the named source for in-place editing.
func (c *Config) Source(name string) (*SourceConfig, bool) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], true
		}
	}
	return nil, false
}

func (c *Config) AddSource(src SourceConfig) error {
	if src.Name == "" || src.URL == "" {
		return errors.New("source name and url are required")
	}
	if _, exists := c.Source(src.Name); exists {
		return fmt.Errorf("source %q already exists", src.Name)
	}
	if src.ScanInterval <= 0 {
		src.ScanInterval = Interval(time.Second)
	}
	c.Sources = append(c.Sources, src)
	return nil
}

func (c *Config) RemoveSource(name string) error {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			c.Sources = append(c.Sources[:i], c.Sources[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("source %q not found", name)
}

// AddNode appends a node to the source; the type tag is upper-cased.
func (s *SourceConfig) AddNode(n NodeConfig) error {
	if n.Name == "" || n.NodeID == "" {
		return errors.New("node name and nodeid are required")
	}
	if s.HasNode(n.Name) {
		return fmt.Errorf("node %q already exists in source %q", n.Name, s.Name)
	}
	n.Type = string(domain.ParseNodeType(n.Type))
	s.Nodes = append(s.Nodes, n)
	return nil
}

func (s *SourceConfig) RemoveNode(name string) error {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			s.Nodes = append(s.Nodes[:i], s.Nodes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("node %q not found in source %q", name, s.Name)
}

func (s *SourceConfig) HasNode(name string) bool {
	for _, n := range s.Nodes {
		if n.Name == name {
			return true
		}
	}
	return false
}
