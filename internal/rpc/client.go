package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultCallTimeout = 30 * time.Second
	readLimit          = 32 << 20
)

// ErrClosed is returned by calls on a closed client.
var ErrClosed = errors.New("rpc: connection closed")

// Call outcome labels reported to an Observer.
const (
	StatusOK             = "ok"
	StatusRemoteError    = "remote_error"
	StatusTransportError = "transport_error"
)

// Observer receives one notification per call.
type Observer interface {
	ObserveCall(method, status string, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	URL           string
	Token         string
	ClientName    string
	ClientVersion string
	DialTimeout   time.Duration
	CallTimeout   time.Duration
	HTTPClient    *http.Client
	HTTPHeader    http.Header
	Logger        *slog.Logger
	Tracer        trace.Tracer
	Observer      Observer
}

func (o *Options) defaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	if o.ClientName == "" {
		o.ClientName = "sclaw-console"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("")
	}
}

// Client is one websocket connection to the gateway. A single reader
// goroutine routes response frames to pending calls by id.
type Client struct {
	opts   Options
	logger *slog.Logger
	conn   *websocket.Conn
	done   chan struct{}

	mu       sync.Mutex
	pending  map[string]chan Frame
	closeErr error
}

// Dial connects to the gateway and performs the connect handshake. Every
// failure, including a handshake rejected by the gateway, is a
// *configsync.TransportError.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts.defaults()

	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	header := opts.HTTPHeader.Clone()
	if opts.Token != "" {
		if header == nil {
			header = http.Header{}
		}
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	conn, _, err := websocket.Dial(dialCtx, opts.URL, &websocket.DialOptions{
		HTTPClient: opts.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, &configsync.TransportError{Op: "dial", Err: err}
	}
	conn.SetReadLimit(readLimit)

	c := &Client{
		opts:    opts,
		logger:  opts.Logger.With("component", "rpc", "url", opts.URL),
		conn:    conn,
		done:    make(chan struct{}),
		pending: make(map[string]chan Frame),
	}
	go c.readLoop()

	hello := ConnectParams{
		Token:  opts.Token,
		Client: ClientInfo{Name: opts.ClientName, Version: opts.ClientVersion},
	}
	if err := c.Call(dialCtx, MethodConnect, hello, nil); err != nil {
		_ = c.Close()
		return nil, &configsync.TransportError{Op: MethodConnect, Err: err}
	}
	c.logger.Info("connected to gateway")
	return c, nil
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Closed reports whether the connection is gone.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close closes the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.fail(ErrClosed)
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return
	}
	c.closeErr = err
	close(c.done)
}

func (c *Client) readLoop() {
	for {
		var f Frame
		if err := wsjson.Read(context.Background(), c.conn, &f); err != nil {
			c.fail(err)
			return
		}
		switch f.Type {
		case FrameResponse:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			c.mu.Unlock()
			if !ok {
				c.logger.Debug("response for unknown request", "id", f.ID)
				continue
			}
			select {
			case ch <- f:
			default:
			}
		case FrameEvent:
			c.logger.Debug("gateway event", "event", f.Event)
		default:
			c.logger.Warn("unexpected frame type", "type", f.Type)
		}
	}
}

// Call sends method with params and decodes the response payload into out
// (when non-nil). Gateway rejections are returned as *RemoteError; every
// other failure is a *configsync.TransportError.
func (c *Client) Call(ctx context.Context, method string, params, out any) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	ctx, span := c.opts.Tracer.Start(ctx, "rpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	start := time.Now()
	defer func() {
		status := StatusOK
		var remote *RemoteError
		switch {
		case errors.As(err, &remote):
			status = StatusRemoteError
		case err != nil:
			status = StatusTransportError
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		span.End()
		if c.opts.Observer != nil {
			c.opts.Observer.ObserveCall(method, status, time.Since(start))
		}
	}()

	if c.Closed() {
		return &configsync.TransportError{Op: method, Err: c.closeError()}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpc: %s: encode params: %w", method, err)
	}
	id := uuid.NewString()
	ch := make(chan Frame, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := Frame{Type: FrameRequest, ID: id, Method: method, Params: raw}
	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		return &configsync.TransportError{Op: method, Err: err}
	}

	select {
	case f := <-ch:
		if !f.OK {
			if f.Error == nil {
				return &RemoteError{Message: "request failed"}
			}
			return f.Error
		}
		if out != nil && len(f.Payload) > 0 {
			if err := json.Unmarshal(f.Payload, out); err != nil {
				return &configsync.TransportError{Op: method, Err: fmt.Errorf("decode payload: %w", err)}
			}
		}
		return nil
	case <-ctx.Done():
		return &configsync.TransportError{Op: method, Err: ctx.Err()}
	case <-c.done:
		return &configsync.TransportError{Op: method, Err: c.closeError()}
	}
}

func (c *Client) closeError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}
