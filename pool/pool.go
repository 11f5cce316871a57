// Package pool implements the bounded, thread-safe per-origin connection
// pool: borrow with deadline, return/discard, and idle eviction.
package pool

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the pool tunables for a single origin. All fields must be
// positive; use DefaultConfig for the documented defaults.
type Config struct {
	MaxPoolSize    int
	BorrowTimeout  time.Duration
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		MaxPoolSize:    8,
		BorrowTimeout:  100 * time.Millisecond,
		MaxIdleTime:    60 * time.Second,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    20 * time.Second,
		WriteTimeout:   20 * time.Second,
	}
}

// Conn is a pooled connection handle. The zero value is not valid; use
// the Dial function supplied to Registry.
type Conn struct {
	net.Conn
	origin string
}

type idleEntry struct {
	conn     *Conn
	lastUsed time.Time
}

// originPool is the per-origin pool state: config, mutex, condvar, idle
// deque, and outstanding count.
type originPool struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg              Config
	idle             []idleEntry
	totalOutstanding int

	outstandingGauge prometheus.Gauge
}

func newOriginPool(cfg Config, outstandingGauge prometheus.Gauge) *originPool {
	p := &originPool{cfg: cfg, outstandingGauge: outstandingGauge}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *originPool) setConfig(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// pruneIdleLocked removes idle entries older than MaxIdleTime. Caller
// must hold p.mu.
func (p *originPool) pruneIdleLocked(now time.Time) {
	kept := p.idle[:0]
	removed := 0
	for _, e := range p.idle {
		if now.Sub(e.lastUsed) > p.cfg.MaxIdleTime {
			e.conn.Close()
			removed++
			continue
		}
		kept = append(kept, e)
	}
	p.idle = kept
	if removed > 0 {
		p.totalOutstanding -= removed
		p.reportLocked()
	}
}

func (p *originPool) reportLocked() {
	if p.outstandingGauge != nil {
		p.outstandingGauge.Set(float64(p.totalOutstanding))
	}
}

// DialFunc establishes a fresh connection to origin, honoring
// ConnectTimeout via ctx.
type DialFunc func(ctx context.Context, origin string, cfg Config) (net.Conn, error)

// borrow runs the §4.8 algorithm against this origin's pool.
func (p *originPool) borrow(ctx context.Context, origin string, dial DialFunc) (*Conn, error) {
	p.mu.Lock()
	deadline := time.Now().Add(p.cfg.BorrowTimeout)

	for {
		now := time.Now()
		p.pruneIdleLocked(now)

		if len(p.idle) > 0 {
			e := p.idle[0]
			p.idle = p.idle[1:]
			p.mu.Unlock()
			return e.conn, nil
		}

		if p.totalOutstanding < p.cfg.MaxPoolSize {
			p.totalOutstanding++
			p.reportLocked()
			p.mu.Unlock()

			dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
			raw, err := dial(dialCtx, origin, p.cfg)
			cancel()

			p.mu.Lock()
			if err != nil {
				p.totalOutstanding--
				p.reportLocked()
				p.cond.Signal()
				p.mu.Unlock()
				return nil, err
			}
			p.mu.Unlock()
			return &Conn{Conn: raw, origin: origin}, nil
		}

		if time.Now().After(deadline) {
			p.mu.Unlock()
			return nil, nil
		}

		// sync.Cond has no timed wait; a timer broadcasting at the
		// deadline lets the loop re-check and time out promptly.
		timer := time.AfterFunc(time.Until(deadline), func() {
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		})
		p.cond.Wait()
		timer.Stop()
	}
}

// returnConn pushes conn back onto the idle deque and wakes one waiter.
func (p *originPool) returnConn(conn *Conn) {
	p.mu.Lock()
	p.idle = append(p.idle, idleEntry{conn: conn, lastUsed: time.Now()})
	p.mu.Unlock()
	p.cond.Signal()
}

// discardConn closes conn, decrements outstanding, and wakes one waiter.
func (p *originPool) discardConn(conn *Conn) {
	conn.Close()
	p.mu.Lock()
	p.totalOutstanding--
	p.reportLocked()
	p.mu.Unlock()
	p.cond.Signal()
}

// Registry maps origin -> originPool behind its own mutex, used only to
// insert/look up per-origin pool state.
type Registry struct {
	mu    sync.Mutex
	pools map[string]*originPool
	dial  DialFunc

	outstandingGauge *prometheus.GaugeVec
}

// NewRegistry builds a Registry that dials connections with dial. When
// metrics is non-nil it is used to export per-origin outstanding counts.
func NewRegistry(dial DialFunc, outstandingGauge *prometheus.GaugeVec) *Registry {
	return &Registry{
		pools:            make(map[string]*originPool),
		dial:             dial,
		outstandingGauge: outstandingGauge,
	}
}

func (r *Registry) poolFor(origin string) *originPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[origin]
	if !ok {
		var gauge prometheus.Gauge
		if r.outstandingGauge != nil {
			gauge = r.outstandingGauge.WithLabelValues(origin)
		}
		p = newOriginPool(DefaultConfig(), gauge)
		r.pools[origin] = p
	}
	return p
}

// SetConfig creates or updates the pool state for origin. Idempotent.
func (r *Registry) SetConfig(origin string, cfg Config) {
	r.poolFor(origin).setConfig(cfg)
}

// Borrow acquires a connection for origin, waiting up to the origin's
// BorrowTimeout. Returns (nil, nil) on timeout, matching the spec's
// `borrow(origin) -> connection?` contract.
func (r *Registry) Borrow(ctx context.Context, origin string) (*Conn, error) {
	return r.poolFor(origin).borrow(ctx, origin, r.dial)
}

// Return returns conn to its origin pool's idle set.
func (r *Registry) Return(conn *Conn) {
	r.poolFor(conn.origin).returnConn(conn)
}

// Discard destroys conn and frees its pool slot.
func (r *Registry) Discard(conn *Conn) {
	r.poolFor(conn.origin).discardConn(conn)
}
