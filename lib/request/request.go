// Package request implements a single-shot pending demand for a pooled
// connection, carrying its creation time and completion callbacks.
package request

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is the minimal view of a pooled connection a Request needs
// to resolve with. The concrete type lives in package pool; this
// indirection keeps request free of a dependency on pool.
type Connection interface {
	ID() uuid.UUID
}

// Request is a pending demand for a connection from a named pool.
type Request struct {
	id        uuid.UUID
	pool      string
	createdAt time.Time

	resolve func(Connection)
	reject  func(error)

	mu        sync.Mutex
	fulfilled bool
}

// New constructs a Request for pool, to be completed by exactly one of
// resolve or reject.
func New(pool string, resolve func(Connection), reject func(error)) *Request {
	return &Request{
		id:        uuid.New(),
		pool:      pool,
		createdAt: time.Now(),
		resolve:   resolve,
		reject:    reject,
	}
}

func (r *Request) ID() uuid.UUID {
	return r.id
}

func (r *Request) Pool() string {
	return r.pool
}

func (r *Request) CreatedAt() time.Time {
	return r.createdAt
}

// Execute resolves the request with c. Calling Execute or Abort a second
// time on the same Request is a programmer error and panics.
func (r *Request) Execute(c Connection) {
	r.mu.Lock()
	if r.fulfilled {
		r.mu.Unlock()
		panic("request: Execute/Abort called more than once")
	}
	r.fulfilled = true
	r.mu.Unlock()

	r.resolve(c)
}

// Abort rejects the request with err. Calling Execute or Abort a second
// time on the same Request is a programmer error and panics.
func (r *Request) Abort(err error) {
	r.mu.Lock()
	if r.fulfilled {
		r.mu.Unlock()
		panic("request: Execute/Abort called more than once")
	}
	r.fulfilled = true
	r.mu.Unlock()

	r.reject(err)
}

// IsExpired reports whether the request has been pending longer than ttl.
func (r *Request) IsExpired(ttl time.Duration) bool {
	return time.Since(r.createdAt) > ttl
}
