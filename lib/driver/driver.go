// Package driver defines the capability sets the cluster depends on but
// never implements itself: a physical connection, a query builder, a
// query compiler, and a schema analyzer. Drivers register a Factory
// under a name in a process-wide Registry, so the cluster can resolve a
// driver by name instead of importing vendor packages directly.
package driver

import (
	"fmt"
	"sync"
)

// Connection is the minimal capability a physical connection must expose
// to the cluster. Vendor drivers (postgres, mysql, ...) implement this
// over their own wire protocol; the cluster never looks past it.
type Connection interface {
	Query(ctx *QueryContext) error
	Close() error
}

// NodeCredentials carries the fields a ConnectionConstructor needs to dial
// a single physical connection.
type NodeCredentials struct {
	Host     string
	Port     uint16
	Username string
	Password string
	Database string
}

// ConnectionConstructor builds one physical Connection.
type ConnectionConstructor func(NodeCredentials) (Connection, error)

// QueryBuilder mutates a QueryContext whose SQL is not yet final (for
// example, SQL just compiled from its AST) into one ready for execution
// (e.g. binding parameters against a live connection's prepared-statement
// cache).
type QueryBuilder interface {
	Render(ctx *QueryContext) error
}

// QueryCompiler turns an AST-bearing QueryContext into SQL text.
type QueryCompiler interface {
	Compile(ctx *QueryContext) error
}

// Description is the result of Analyzer.Analyze: a schema introspection
// report for the requested object names.
type Description struct {
	Tables map[string]TableDescription
}

type TableDescription struct {
	Columns []string
}

// Analyzer introspects schema objects over a live connection.
type Analyzer interface {
	Analyze(names []string) (Description, error)
}

// Factory is the bundle of collaborators a driver name resolves to.
type Factory struct {
	NewConnection ConnectionConstructor
	NewQueryBuilder func(Connection) QueryBuilder
	NewQueryCompiler func() QueryCompiler
	NewAnalyzer func(Connection) Analyzer
}

// Registry is a process-wide map from driver name to Factory. Multiple
// Clusters may share one Registry; registration has init/register
// lifecycle semantics, the cluster instance itself is never a singleton.
type Registry struct {
	m map[string]Factory
	l sync.RWMutex
}

var global = NewRegistry()

// NewRegistry constructs an empty, independently-lockable registry.
func NewRegistry() *Registry {
	return &Registry{m: map[string]Factory{}}
}

// Register adds name to the registry. Re-registering the same name is an
// error.
func (r *Registry) Register(name string, factory Factory) error {
	r.l.Lock()
	defer r.l.Unlock()
	if _, ok := r.m[name]; ok {
		return fmt.Errorf("driver: %q already registered", name)
	}
	r.m[name] = factory
	return nil
}

// Lookup returns the Factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.l.RLock()
	defer r.l.RUnlock()
	f, ok := r.m[name]
	return f, ok
}

// Global returns the process-wide default Registry, used by drivers that
// register themselves from an init() func (the `mock` driver included).
func Global() *Registry {
	return global
}
