// Package transport implements the pooled task client: a client bound to
// one origin, exposing synchronous Get/Post calls serialised through a
// fixed worker pool, with 401-triggered token invalidation and one-shot
// retry on both auth and transport failures. Every call to New builds a
// separate Client with its own workers; clients are not cached or shared
// per origin.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/pool"
)

const tokenSkew = 30 * time.Second

// TokenFetcher performs the authless token POST and returns the minted
// token, its type, and its absolute expiry.
type TokenFetcher func(ctx context.Context) (token, tokenType string, expiresAt time.Time, err error)

// Response is the result of a single Get/Post call.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

type task struct {
	ctx      context.Context
	method   string
	endpoint string
	body     []byte
	headers  http.Header
	done     chan taskResult
}

type taskResult struct {
	resp *Response
	err  error
}

type cachedToken struct {
	token     string
	tokenType string
	expiresAt time.Time
}

func (c cachedToken) validAt(now time.Time) bool {
	return c.token != "" && c.expiresAt.After(now.Add(tokenSkew))
}

// Client is a per-origin pooled task client.
type Client struct {
	origin  string
	pool    *pool.Registry
	fetch   TokenFetcher
	doHTTP  func(ctx context.Context, conn *pool.Conn, method, endpoint string, body []byte, headers http.Header) (*Response, error)

	queue chan *task

	tokenMu      sync.Mutex
	tokenCond    *sync.Cond
	token        cachedToken
	fetching     bool

	stopping chan struct{}
	group    *errgroup.Group
}

// New constructs a pooled task client for origin, backed by registry and
// authenticating via fetch. numWorkers <= 0 selects max(2, 2*NumCPU).
func New(origin string, registry *pool.Registry, fetch TokenFetcher,
	doHTTP func(ctx context.Context, conn *pool.Conn, method, endpoint string, body []byte, headers http.Header) (*Response, error),
	numWorkers int) *Client {

	if numWorkers <= 0 {
		numWorkers = maxInt(2, 2*runtime.NumCPU())
	}

	c := &Client{
		origin:   origin,
		pool:     registry,
		fetch:    fetch,
		doHTTP:   doHTTP,
		queue:    make(chan *task, 256),
		stopping: make(chan struct{}),
	}
	c.tokenCond = sync.NewCond(&c.tokenMu)

	g := &errgroup.Group{}
	for i := 0; i < numWorkers; i++ {
		g.Go(func() error {
			c.workerLoop()
			return nil
		})
	}
	c.group = g
	return c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Get issues a GET request, optionally requiring a bearer token.
func (c *Client) Get(ctx context.Context, endpoint string, authRequired bool) (*Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, authRequired)
}

// Post issues a POST request, optionally requiring a bearer token.
func (c *Client) Post(ctx context.Context, endpoint string, body []byte, authRequired bool) (*Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, authRequired)
}

func (c *Client) defaultHeaders(method string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", "dbps-client/1.0")
	if method == http.MethodPost {
		h.Set("Content-Type", "application/json")
	}
	return h
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, authRequired bool) (*Response, error) {
	headers := c.defaultHeaders(method)
	if authRequired {
		tok, tokType, err := c.ensureValidToken(ctx)
		if err != nil {
			return nil, err
		}
		headers.Set("Authorization", fmt.Sprintf("%s %s", tokType, tok))
	}

	resp, err := c.submit(ctx, method, endpoint, body, headers)
	if err != nil {
		return nil, err
	}

	if authRequired && resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
		tok, tokType, terr := c.ensureValidToken(ctx)
		if terr != nil {
			return nil, terr
		}
		headers.Set("Authorization", fmt.Sprintf("%s %s", tokType, tok))
		resp, err = c.submit(ctx, method, endpoint, body, headers)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

func (c *Client) submit(ctx context.Context, method, endpoint string, body []byte, headers http.Header) (*Response, error) {
	t := &task{ctx: ctx, method: method, endpoint: endpoint, body: body, headers: headers, done: make(chan taskResult, 1)}

	select {
	case <-c.stopping:
		return nil, dbpserr.NewShutdown("transport: client is shutting down")
	default:
	}

	select {
	case c.queue <- t:
	case <-c.stopping:
		return nil, dbpserr.NewShutdown("transport: client is shutting down")
	}

	select {
	case r := <-t.done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) workerLoop() {
	for {
		select {
		case <-c.stopping:
			c.drain()
			return
		case t := <-c.queue:
			c.runTask(t)
		}
	}
}

func (c *Client) drain() {
	for {
		select {
		case t := <-c.queue:
			t.done <- taskResult{err: dbpserr.NewShutdown("transport: client is shutting down")}
		default:
			return
		}
	}
}

func (c *Client) runTask(t *task) {
	conn, err := c.pool.Borrow(t.ctx, c.origin)
	if err != nil {
		t.done <- taskResult{err: dbpserr.NewTransport(err, "transport: failed to borrow connection")}
		return
	}
	if conn == nil {
		t.done <- taskResult{err: dbpserr.NewTransport(nil, "transport: pool borrow timeout")}
		return
	}

	resp, err := c.doHTTP(t.ctx, conn, t.method, t.endpoint, t.body, t.headers)
	if err != nil {
		c.pool.Discard(conn)
		conn, berr := c.pool.Borrow(t.ctx, c.origin)
		if berr != nil || conn == nil {
			t.done <- taskResult{err: dbpserr.NewTransport(err, "transport: request failed and retry could not borrow a connection")}
			return
		}
		resp, err = c.doHTTP(t.ctx, conn, t.method, t.endpoint, t.body, t.headers)
		if err != nil {
			c.pool.Discard(conn)
			t.done <- taskResult{err: dbpserr.NewTransport(err, "transport: request failed after one retry")}
			return
		}
	}
	c.pool.Return(conn)
	t.done <- taskResult{resp: resp}
}

// ensureValidToken implements §4.9.1: returns the cached token if valid,
// waits if another caller is already fetching, otherwise fetches.
func (c *Client) ensureValidToken(ctx context.Context) (token, tokenType string, err error) {
	c.tokenMu.Lock()
	for {
		now := time.Now()
		if c.token.validAt(now) {
			tok, typ := c.token.token, c.token.tokenType
			c.tokenMu.Unlock()
			return tok, typ, nil
		}
		if c.fetching {
			c.tokenCond.Wait()
			continue
		}
		break
	}
	c.fetching = true
	c.tokenMu.Unlock()

	tok, typ, expiresAt, ferr := c.fetch(ctx)

	c.tokenMu.Lock()
	c.fetching = false
	if ferr == nil {
		c.token = cachedToken{token: tok, tokenType: typ, expiresAt: expiresAt}
	}
	c.tokenCond.Broadcast()
	c.tokenMu.Unlock()

	if ferr != nil {
		return "", "", dbpserr.NewAuth("transport: token fetch failed: %v", ferr)
	}
	return tok, typ, nil
}

func (c *Client) invalidateToken() {
	c.tokenMu.Lock()
	c.token = cachedToken{}
	c.tokenMu.Unlock()
}

// Shutdown sets the stopping flag, which wakes workers; workers exit
// after draining their current task and completing any queued tasks with
// a shutdown error.
func (c *Client) Shutdown() {
	close(c.stopping)
	c.group.Wait()
}
