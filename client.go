// Package tradewire implements a client for a proprietary trading-platform
// message protocol carried over a persistent websocket, layered on an HTTP
// session handshake.
package tradewire

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/coachpo/tradewire/config"
	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/internal/dispatch"
	"github.com/coachpo/tradewire/internal/observability"
	"github.com/coachpo/tradewire/internal/pending"
	"github.com/coachpo/tradewire/internal/session"
	"github.com/coachpo/tradewire/internal/state"
	"github.com/coachpo/tradewire/internal/telemetry"
	"github.com/coachpo/tradewire/internal/transport"
	"github.com/coachpo/tradewire/protocol"
)

// State is the connection lifecycle stage. Transitions run strictly forward
// during bring-up; any failure drops straight back to StateDisconnected.
type State int32

const (
	StateDisconnected State = iota
	StateSocketConnecting
	StateSocketActive
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateSocketConnecting:
		return "socket-connecting"
	case StateSocketActive:
		return "socket-active"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Transport is the duplex connection the client drives. The production
// implementation is internal/transport.Socket; tests substitute scripted
// fakes through WithTransportFactory.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	// Ready is closed once the first inbound frame has been parsed; the
	// session-auth frame must not be sent before then.
	Ready() <-chan struct{}
	Done() <-chan struct{}
	Err() error
	Close() error
}

// TransportFactory dials a transport, delivering inbound frames to handler.
type TransportFactory func(ctx context.Context, url string, handler transport.FrameHandler) (Transport, error)

func dialSocket(ctx context.Context, url string, handler transport.FrameHandler) (Transport, error) {
	return transport.Dial(ctx, url, handler)
}

// Client owns one authenticated platform connection. It is not reusable: once
// the connection dies the client stays disconnected and the caller builds a
// fresh one (see the supervisor package).
type Client struct {
	cfg     config.Settings
	dial    TransportFactory
	metrics *telemetry.Metrics

	table  *pending.Table
	store  *state.Projections
	router *dispatch.Router

	limiter *rate.Limiter

	state atomic.Int32

	mu      sync.Mutex
	conn    Transport
	token   string
	balance *protocol.Balance
}

// Option configures a Client.
type Option func(*Client)

// WithSessionToken supplies a pre-acquired session token, skipping the HTTP
// login during Connect.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTransportFactory overrides how the websocket connection is dialed.
func WithTransportFactory(dial TransportFactory) Option {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// WithMetrics attaches a telemetry instrument set.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger installs the process-wide structured logger.
func WithLogger(logger observability.Logger) Option {
	return func(*Client) { observability.SetLogger(logger) }
}

// New builds a disconnected client from settings.
func New(cfg config.Settings, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.New("client/new", errs.CodeInvalid, errs.WithCause(err))
	}
	interval := cfg.Pacing.ControlInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	burst := cfg.Pacing.ControlBurst
	if burst <= 0 {
		burst = 1
	}
	c := &Client{
		cfg:     cfg,
		dial:    dialSocket,
		table:   pending.NewTable(),
		store:   state.NewProjections(),
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.router = dispatch.NewRouter(c.table, c.store, c.metrics)
	return c, nil
}

// State returns the current connection stage.
func (c *Client) State() State { return State(c.state.Load()) }

// Connect acquires a session (unless a token was supplied), dials the
// websocket, authenticates, and waits for the profile push that confirms the
// session. On any failure the client returns to StateDisconnected.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateSocketConnecting)) {
		return errs.New("client/connect", errs.CodeInvalid,
			errs.WithMessage("connect on a non-disconnected client"))
	}
	if err := c.connect(ctx); err != nil {
		c.teardown()
		return err
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	token := c.token
	if token == "" {
		auth, err := session.NewClient(c.cfg)
		if err != nil {
			return err
		}
		token, err = auth.Login(ctx, c.cfg.Credentials)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeouts.Handshake)
	defer cancel()
	conn, err := c.dial(dialCtx, c.cfg.Platform.WebsocketURL, c.onFrame)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	observability.Log().Info("socket connected",
		observability.F("url", c.cfg.Platform.WebsocketURL))

	// The platform signals handshake completion with its first push (a clock
	// sample); the session-auth frame is only valid after it.
	select {
	case <-conn.Ready():
	case <-conn.Done():
		return errs.New("client/connect", errs.CodeConnection,
			errs.WithMessage("connection died before first frame"), errs.WithCause(conn.Err()))
	case <-time.After(c.cfg.Timeouts.Handshake):
		return errs.New("client/connect", errs.CodeConnection,
			errs.WithMessage("no inbound frame within "+c.cfg.Timeouts.Handshake.String()))
	case <-ctx.Done():
		return errs.New("client/connect", errs.CodeCancelled, errs.WithCause(ctx.Err()))
	}

	// The profile push is the platform's acknowledgment of the session; the
	// ticket goes in before the ssid frame so a fast push cannot slip by.
	tk := c.table.Register(protocol.ByMessageName(protocol.NameProfile), c.cfg.Timeouts.Handshake)
	frame, err := protocol.Encode(protocol.EnvelopeSSID, token, "")
	if err != nil {
		c.table.Abandon(tk)
		return err
	}
	if err := conn.Send(ctx, frame); err != nil {
		c.table.Abandon(tk)
		return err
	}
	if _, err := c.table.Await(ctx, tk); err != nil {
		if errs.IsTimeout(err) {
			return errs.New("client/connect", errs.CodeAuth,
				errs.WithMessage("no profile push; session token rejected"), errs.WithCause(err))
		}
		return err
	}

	c.state.Store(int32(StateAuthenticated))
	observability.Log().Info("session authenticated")

	go func() {
		<-conn.Done()
		c.teardown()
		if err := conn.Err(); err != nil {
			observability.Log().Error("connection lost", observability.F("error", err))
		}
	}()
	return nil
}

func (c *Client) onFrame(frame []byte) error {
	if err := c.router.HandleFrame(frame); err != nil {
		return err
	}
	c.state.CompareAndSwap(int32(StateSocketConnecting), int32(StateSocketActive))
	return nil
}

func (c *Client) teardown() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.state.Store(int32(StateDisconnected))
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	c.teardown()
	return nil
}

// Done is closed when the underlying connection dies. Before Connect succeeds
// it returns a nil channel, which blocks forever.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Done()
}

// Call sends an envelope and blocks until an inbound envelope matches the
// correlation key, the timeout elapses, or ctx is cancelled. A timeout of
// zero uses the configured default. An acknowledgment carrying an
// application-error status maps to a CodeApplication error.
func (c *Client) Call(ctx context.Context, name string, payload any, key protocol.CorrelationKey, timeout time.Duration) (protocol.Envelope, error) {
	if c.State() != StateAuthenticated {
		return protocol.Envelope{}, errs.New("client/call", errs.CodeNotConnected,
			errs.WithMessage("connection state "+c.State().String()))
	}
	if timeout <= 0 {
		timeout = c.cfg.Timeouts.Call
	}
	// Outbound envelopes always carry an id; for name- and domain-correlated
	// exchanges the platform just never echoes it back.
	requestID := protocol.NewRequestID()
	if key.Kind == protocol.CorrelateRequestID {
		requestID = key.Name
	}
	frame, err := protocol.Encode(name, payload, requestID)
	if err != nil {
		return protocol.Envelope{}, err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return protocol.Envelope{}, errs.New("client/call", errs.CodeNotConnected)
	}

	tk := c.table.Register(key, timeout)
	c.metrics.Registered(ctx)
	started := time.Now()
	if err := conn.Send(ctx, frame); err != nil {
		c.table.Abandon(tk)
		return protocol.Envelope{}, err
	}
	env, err := c.table.Await(ctx, tk)
	if err != nil {
		if errs.IsTimeout(err) {
			c.metrics.TimedOut(ctx)
		}
		return protocol.Envelope{}, err
	}
	c.metrics.CallObserved(ctx, name, time.Since(started))

	if env.Status == protocol.ResetStatusError {
		var ack protocol.ResetAck
		_ = protocol.DecodeMsg(env, &ack)
		return env, errs.New("client/call", errs.CodeApplication,
			errs.WithStatus(env.Status), errs.WithRawMessage(ack.Message),
			errs.WithMessage("platform rejected "+name))
	}
	return env, nil
}

// Request wraps a logical message in a sendMessage envelope and awaits the
// next inbound envelope named responseName. Most platform replies carry no
// request id, so these exchanges correlate by message name; only the
// placement confirmation echoes the id and goes through Call with
// ByRequestID directly.
func (c *Client) Request(ctx context.Context, req protocol.Request, responseName string, timeout time.Duration) (protocol.Envelope, error) {
	return c.Call(ctx, protocol.EnvelopeSendMessage, req, protocol.ByMessageName(responseName), timeout)
}

// send paces and fires an uncorrelated control envelope.
func (c *Client) send(ctx context.Context, name string, payload any) error {
	if c.State() != StateAuthenticated {
		return errs.New("client/send", errs.CodeNotConnected,
			errs.WithMessage("connection state "+c.State().String()))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.New("client/send", errs.CodeConnection, errs.WithCause(err))
	}
	frame, err := protocol.Encode(name, payload, protocol.NewRequestID())
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errs.New("client/send", errs.CodeNotConnected)
	}
	return conn.Send(ctx, frame)
}

// ServerTime returns the latest platform clock sample in unix milliseconds,
// falling back to the local clock before the first timeSync push.
func (c *Client) ServerTime() int64 {
	if ms, ok := c.store.ServerTime(); ok {
		if offset, has := c.store.ClockOffset(); has {
			return time.Now().Add(offset).UnixMilli()
		}
		return ms
	}
	return time.Now().UnixMilli()
}

// Profile returns the account snapshot pushed during authentication.
func (c *Client) Profile() (protocol.Profile, bool) { return c.store.Profile() }
