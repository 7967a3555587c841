// Package transport maintains the single persistent websocket connection to
// the platform.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/internal/observability"
)

// FrameHandler consumes one raw inbound frame. A non-nil error is logged and
// the read loop keeps running; frame-level failures never tear the
// connection down.
type FrameHandler func(frame []byte) error

// Socket is one duplex connection. It performs no reconnection; when the
// read loop exits the socket is dead and the owner builds a fresh one.
type Socket struct {
	conn    *websocket.Conn
	handler FrameHandler

	ctx    context.Context
	cancel context.CancelFunc

	active    atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial connects to the websocket endpoint and starts the read loop. The
// context bounds the dial only; the socket's lifetime is governed by Close.
func Dial(ctx context.Context, url string, handler FrameHandler) (*Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, errs.New("transport/dial", errs.CodeConnection,
			errs.WithMessage("dial "+url), errs.WithCause(err))
	}
	// Platform frames (candle batches, catalogs) run well past the 32KiB default.
	conn.SetReadLimit(16 << 20)

	sockCtx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		conn:    conn,
		handler: handler,
		ctx:     sockCtx,
		cancel:  cancel,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Send writes one text frame.
func (s *Socket) Send(ctx context.Context, frame []byte) error {
	if err := s.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return errs.New("transport/send", errs.CodeConnection, errs.WithCause(err))
	}
	return nil
}

// Active reports whether at least one inbound frame has been handled
// successfully since dialing.
func (s *Socket) Active() bool { return s.active.Load() }

// Ready is closed once the first inbound frame has been handled successfully.
// The platform pushes a clock sample right after socket-open, so this doubles
// as the handshake-completion signal.
func (s *Socket) Ready() <-chan struct{} { return s.ready }

// Done is closed when the read loop exits, for any reason.
func (s *Socket) Done() <-chan struct{} { return s.done }

// Err returns the reason the read loop exited, nil while it is still
// running or after a deliberate Close.
func (s *Socket) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close shuts the connection down. Safe to call any number of times.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "shutdown")
	})
	return nil
}

func (s *Socket) readLoop() {
	defer close(s.done)
	for {
		msgType, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				s.errMu.Lock()
				s.err = errs.New("transport/read", errs.CodeConnection, errs.WithCause(err))
				s.errMu.Unlock()
				observability.Log().Error("socket read failed", observability.F("error", err))
			}
			_ = s.conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		if s.handler == nil {
			continue
		}
		if err := s.handler(data); err != nil {
			observability.Log().Error("dropped inbound frame",
				observability.F("error", err),
				observability.F("bytes", len(data)))
			continue
		}
		s.active.Store(true)
		s.readyOnce.Do(func() { close(s.ready) })
	}
}
