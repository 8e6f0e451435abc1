package pool

import (
	"time"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

// Config describes one node to add to the cluster. Defaults are applied
// by the caller (lib/gat.Cluster.AddNode): Host "localhost",
// MaxConnections 100, Pools ["read", "write"].
type Config struct {
	Host     string
	Port     uint16
	Username string
	Password string
	Database string

	// MaxConnections bounds the number of live physical connections this
	// node may open.
	MaxConnections int

	// Pools is this node's set of pool memberships. The caller is
	// responsible for sorting it before the node becomes observable;
	// NewNode sorts defensively regardless.
	Pools []string

	NewConnection driver.ConnectionConstructor

	ReconnectInitialTime time.Duration
	ReconnectMaxTime     time.Duration
}

func (c Config) credentials() driver.NodeCredentials {
	return driver.NodeCredentials{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Database: c.Database,
	}
}
