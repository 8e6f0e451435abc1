// Package config loads a Cluster's on-disk configuration: the cluster's
// own options (driver, TTL, queue cap) plus the list of nodes to add to
// it. Format is dispatched by file extension (TOML or YAML/JSON), and
// node credential fields prefixed ENV$ are resolved from the environment
// instead of the file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gfx.cafe/gfx/dbfleet/lib/gat"
	"gfx.cafe/gfx/dbfleet/lib/pool"
)

// File is the on-disk shape of a cluster's configuration.
type File struct {
	Driver string `toml:"driver" yaml:"driver" json:"driver"`

	TTLSeconds              int `toml:"ttl_seconds" yaml:"ttl_seconds" json:"ttl_seconds"`
	TTLCheckIntervalSeconds int `toml:"ttl_check_interval_seconds" yaml:"ttl_check_interval_seconds" json:"ttl_check_interval_seconds"`
	MaxQueueLength          int `toml:"max_queue_length" yaml:"max_queue_length" json:"max_queue_length"`

	Metrics Metrics `toml:"metrics" yaml:"metrics" json:"metrics"`

	Nodes []*Node `toml:"nodes" yaml:"nodes" json:"nodes"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `toml:"addr" yaml:"addr" json:"addr"`
}

type Node struct {
	Host     string `toml:"host" yaml:"host" json:"host"`
	Port     uint16 `toml:"port" yaml:"port" json:"port"`
	Username string `toml:"username" yaml:"username" json:"username"`
	Password string `toml:"password" yaml:"password" json:"password"`
	Database string `toml:"database" yaml:"database" json:"database"`

	MaxConnections int      `toml:"max_connections" yaml:"max_connections" json:"max_connections"`
	Pools          []string `toml:"pools" yaml:"pools" json:"pools"`

	ReconnectInitialMillis int `toml:"reconnect_initial_ms" yaml:"reconnect_initial_ms" json:"reconnect_initial_ms"`
	ReconnectMaxMillis     int `toml:"reconnect_max_ms" yaml:"reconnect_max_ms" json:"reconnect_max_ms"`
}

// Load reads and parses path, dispatching on its extension (.toml vs
// everything else, defaulting to YAML), then resolves every ENV$-prefixed
// field against the process environment.
func Load(path string) (*File, error) {
	var f File

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "toml":
		if err := toml.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
	case "yml", "yaml", "json":
		fallthrough
	default:
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
	}

	for _, n := range f.Nodes {
		resolveEnv(&n.Host)
		resolveEnv(&n.Username)
		resolveEnv(&n.Password)
		resolveEnv(&n.Database)
	}

	return &f, nil
}

func resolveEnv(field *string) {
	if strings.HasPrefix(*field, "ENV$") {
		*field = os.Getenv(strings.TrimPrefix(*field, "ENV$"))
	}
}

// ClusterConfig converts the parsed file's cluster-wide options into a
// gat.Config. Registry and Logger are left nil for the caller to fill in,
// since neither has a sensible on-disk representation.
func (f *File) ClusterConfig() gat.Config {
	return gat.Config{
		Driver:           f.Driver,
		TTL:              time.Duration(f.TTLSeconds) * time.Second,
		TTLCheckInterval: time.Duration(f.TTLCheckIntervalSeconds) * time.Second,
		MaxQueueLength:   f.MaxQueueLength,
	}
}

// NodeConfigs converts every parsed node entry into a pool.Config, ready
// to pass to Cluster.AddNode. NewConnection is left nil; Cluster.AddNode
// fills it in from the resolved driver factory.
func (f *File) NodeConfigs() []pool.Config {
	out := make([]pool.Config, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		out = append(out, pool.Config{
			Host:                 n.Host,
			Port:                 n.Port,
			Username:             n.Username,
			Password:             n.Password,
			Database:             n.Database,
			MaxConnections:       n.MaxConnections,
			Pools:                n.Pools,
			ReconnectInitialTime: time.Duration(n.ReconnectInitialMillis) * time.Millisecond,
			ReconnectMaxTime:     time.Duration(n.ReconnectMaxMillis) * time.Millisecond,
		})
	}
	return out
}
