// Package supervisor restarts dead client connections. The client itself
// never reconnects; this layer builds a fresh one with exponential backoff
// between attempts.
package supervisor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/tradewire/internal/observability"
)

// Session is one connected client lifetime. Done is closed when the
// connection dies.
type Session interface {
	Done() <-chan struct{}
	Close() error
}

// Builder constructs and connects a fresh session. It is invoked once per
// connection attempt; state never carries over between sessions.
type Builder func(ctx context.Context) (Session, error)

// Supervisor keeps one session alive at a time.
type Supervisor struct {
	build       Builder
	maxInterval time.Duration
	onSession   func(Session)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithMaxInterval caps the backoff between connection attempts.
func WithMaxInterval(max time.Duration) Option {
	return func(s *Supervisor) {
		if max > 0 {
			s.maxInterval = max
		}
	}
}

// WithSessionHook runs after each successful connect, before the supervisor
// starts waiting on the session. Callers use it to re-apply account selection
// and subscriptions on the fresh session.
func WithSessionHook(hook func(Session)) Option {
	return func(s *Supervisor) { s.onSession = hook }
}

// New builds a supervisor around the session builder.
func New(build Builder, opts ...Option) *Supervisor {
	s := &Supervisor{build: build, maxInterval: time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run supervises sessions until ctx is cancelled. Failed connects retry with
// exponential backoff; a session that lived resets the backoff before the
// next attempt.
func (s *Supervisor) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = s.maxInterval

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess, err := s.build(ctx)
		if err != nil {
			sleep := policy.NextBackOff()
			observability.Log().Error("connect attempt failed",
				observability.F("error", err),
				observability.F("retry_in", sleep))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
				continue
			}
		}

		policy.Reset()
		if s.onSession != nil {
			s.onSession(sess)
		}
		observability.Log().Info("session supervised")

		select {
		case <-ctx.Done():
			_ = sess.Close()
			return ctx.Err()
		case <-sess.Done():
			_ = sess.Close()
			observability.Log().Info("session ended; rebuilding")
		}

		sleep := policy.NextBackOff()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}
