package rpc

import (
	"context"
	"sync"
)

// Caller issues one request and decodes its response.
type Caller interface {
	Call(ctx context.Context, method string, params, out any) error
}

// Reconnector dials lazily and redials once the connection is gone, for
// example after config.apply restarted the gateway.
type Reconnector struct {
	opts Options

	mu  sync.Mutex
	cur *Client
}

// NewReconnector returns a Reconnector that dials with opts.
func NewReconnector(opts Options) *Reconnector {
	return &Reconnector{opts: opts}
}

// Call implements Caller.
func (r *Reconnector) Call(ctx context.Context, method string, params, out any) error {
	c, err := r.client(ctx)
	if err != nil {
		return err
	}
	return c.Call(ctx, method, params, out)
}

func (r *Reconnector) client(ctx context.Context) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil && !r.cur.Closed() {
		return r.cur, nil
	}
	c, err := Dial(ctx, r.opts)
	if err != nil {
		return nil, err
	}
	r.cur = c
	return c, nil
}

// Connected reports whether a live connection is open.
func (r *Reconnector) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur != nil && !r.cur.Closed()
}

// Close closes the current connection, if any.
func (r *Reconnector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	return err
}
