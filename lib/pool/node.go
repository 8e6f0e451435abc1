package pool

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Node is one database host: it owns up to MaxConnections physical
// connections, advertises a set of pool memberships, and announces
// connections as they become live.
type Node struct {
	id     uuid.UUID
	config Config
	pools  []string // sorted, canonical
	logger *zap.Logger

	closed   chan struct{}
	closeMu  sync.Mutex
	isClosed bool

	wake chan struct{}

	mu   sync.Mutex
	live map[uuid.UUID]*Connection

	onConnection func(*Node, *Connection)
	onEnd        func(*Node)
}

// NewNode constructs a Node. It does not dial anything until Start is
// called.
func NewNode(config Config, logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}

	pools := make([]string, len(config.Pools))
	copy(pools, config.Pools)
	sort.Strings(pools)

	return &Node{
		id:     uuid.New(),
		config: config,
		pools:  pools,
		logger: logger,

		closed: make(chan struct{}),
		wake:   make(chan struct{}, 1),
		live:   make(map[uuid.UUID]*Connection),
	}
}

func (n *Node) ID() uuid.UUID {
	return n.id
}

// Pools returns the sorted, canonical pool memberships of this node.
func (n *Node) Pools() []string {
	out := make([]string, len(n.pools))
	copy(out, n.pools)
	return out
}

// Composite returns C(n): the sorted, slash-joined pool membership set
// used as the queue index key.
func (n *Node) Composite() string {
	return strings.Join(n.pools, "/")
}

func (n *Node) MaxConnections() int {
	return n.config.MaxConnections
}

// OnEvents registers the node's connection/end subscribers. Called once
// by the cluster before Start.
func (n *Node) OnEvents(onConnection func(*Node, *Connection), onEnd func(*Node)) {
	n.onConnection, n.onEnd = onConnection, onEnd
}

// Start dials an initial connection synchronously (so that the caller
// observes `load` only once the node has made its first dial attempt),
// then runs the remaining fill-up in the background. It never blocks past
// the first dial/backoff.
func (n *Node) Start() {
	if n.config.MaxConnections > 0 {
		if err := n.dialOne(); err != nil {
			n.logger.Warn("initial dial failed", zap.Error(err))
		}
	}

	go n.runLoop()
}

func (n *Node) dialOne() error {
	raw, err := n.config.NewConnection(n.config.credentials())
	if err != nil {
		return err
	}

	conn := newConnection(n, raw)

	n.mu.Lock()
	if n.liveCountLocked() >= n.config.MaxConnections {
		n.mu.Unlock()
		_ = raw.Close()
		return nil
	}
	n.live[conn.id] = conn
	n.mu.Unlock()

	if n.onConnection != nil {
		n.onConnection(n, conn)
	}
	conn.wrapOnEnd(n.wrapEnd)
	conn.Idle()
	return nil
}

// wrapEnd chains the node's own bookkeeping onto whatever end-subscriber
// the cluster already registered, so a connection leaving always frees
// its slot in Node.live and wakes runLoop to redial, regardless of who
// else is listening or why the connection ended.
func (n *Node) wrapEnd(existing func(*Connection)) func(*Connection) {
	return func(c *Connection) {
		n.mu.Lock()
		delete(n.live, c.id)
		n.mu.Unlock()

		select {
		case n.wake <- struct{}{}:
		default:
		}

		if existing != nil {
			existing(c)
		}
	}
}

func (n *Node) liveCountLocked() int {
	return len(n.live)
}

func (n *Node) LiveCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.liveCountLocked()
}

func (n *Node) runLoop() {
	var backoff time.Duration
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if n.LiveCount() >= n.config.MaxConnections {
			select {
			case <-n.closed:
				return
			case <-n.wake:
				continue
			}
		}

		if backoff > 0 {
			if timer == nil {
				timer = time.NewTimer(backoff)
			} else {
				timer.Reset(backoff)
			}
			select {
			case <-n.closed:
				return
			case <-timer.C:
			case <-n.wake:
			}
		} else {
			select {
			case <-n.closed:
				return
			default:
			}
		}

		if err := n.dialOne(); err != nil {
			n.logger.Warn("failed to dial node connection", zap.Error(err))
			if backoff == 0 {
				backoff = n.config.ReconnectInitialTime
			} else {
				backoff *= 2
			}
			if n.config.ReconnectMaxTime != 0 && backoff > n.config.ReconnectMaxTime {
				backoff = n.config.ReconnectMaxTime
			}
			continue
		}
		backoff = 0
	}
}

// End closes the node: every live connection is ended, then the node's
// end subscriber fires exactly once. Idempotent.
func (n *Node) End() {
	n.closeMu.Lock()
	if n.isClosed {
		n.closeMu.Unlock()
		return
	}
	n.isClosed = true
	n.closeMu.Unlock()

	close(n.closed)

	n.mu.Lock()
	conns := make([]*Connection, 0, len(n.live))
	for _, c := range n.live {
		conns = append(conns, c)
	}
	n.mu.Unlock()

	for _, c := range conns {
		c.End()
	}

	if n.onEnd != nil {
		n.onEnd(n)
	}
}
