// Package pending implements the concurrency-safe table of outstanding
// correlated requests.
package pending

import (
	"context"
	"sync"
	"time"

	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/internal/observability"
	"github.com/coachpo/tradewire/protocol"
)

// Ticket is a single-slot result cell awaited by exactly one caller. It is
// fulfilled at most once; the first matching envelope wins.
type Ticket struct {
	key     protocol.CorrelationKey
	timeout time.Duration
	created time.Time
	result  chan protocol.Envelope
}

// Key returns the correlation key the ticket waits on.
func (t *Ticket) Key() protocol.CorrelationKey { return t.key }

// Table maps correlation keys to waiting tickets. Multiple callers may hold
// tickets under distinct keys concurrently; duplicate keys queue in FIFO
// order and fulfil oldest first.
type Table struct {
	mu      sync.Mutex
	waiters map[protocol.CorrelationKey][]*Ticket
}

// NewTable builds an empty pending-request table.
func NewTable() *Table {
	return &Table{waiters: make(map[protocol.CorrelationKey][]*Ticket)}
}

// Register creates a ticket for key, to be resolved within timeout.
func (tb *Table) Register(key protocol.CorrelationKey, timeout time.Duration) *Ticket {
	tk := &Ticket{
		key:     key,
		timeout: timeout,
		created: time.Now(),
		result:  make(chan protocol.Envelope, 1),
	}
	tb.mu.Lock()
	tb.waiters[key] = append(tb.waiters[key], tk)
	tb.mu.Unlock()
	return tk
}

// Fulfill resolves the oldest ticket registered under key and removes it from
// the table. Fulfilling an absent key is a no-op; the router calls this for
// every envelope, matched or not, and late duplicates land here after the
// waiter is gone.
func (tb *Table) Fulfill(key protocol.CorrelationKey, env protocol.Envelope) bool {
	tb.mu.Lock()
	queue := tb.waiters[key]
	if len(queue) == 0 {
		tb.mu.Unlock()
		return false
	}
	tk := queue[0]
	if len(queue) == 1 {
		delete(tb.waiters, key)
	} else {
		tb.waiters[key] = queue[1:]
	}
	tb.mu.Unlock()

	// Buffered; a ticket is only ever fulfilled once because it left the
	// table above.
	tk.result <- env
	return true
}

// Abandon removes a ticket whose waiter gave up. Safe to call after
// fulfilment; the entry is simply no longer present.
func (tb *Table) Abandon(tk *Ticket) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	queue := tb.waiters[tk.key]
	for i, candidate := range queue {
		if candidate == tk {
			queue = append(queue[:i], queue[i+1:]...)
			if len(queue) == 0 {
				delete(tb.waiters, tk.key)
			} else {
				tb.waiters[tk.key] = queue
			}
			return
		}
	}
}

// Depth reports the number of outstanding tickets.
func (tb *Table) Depth() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	n := 0
	for _, queue := range tb.waiters {
		n += len(queue)
	}
	return n
}

// Await blocks until the ticket is fulfilled, its timeout elapses, or ctx is
// cancelled. On timeout or cancellation the ticket is removed from the table;
// a fulfilment racing with the timer still wins.
func (tb *Table) Await(ctx context.Context, tk *Ticket) (protocol.Envelope, error) {
	timer := time.NewTimer(tk.timeout)
	defer timer.Stop()

	select {
	case env := <-tk.result:
		return env, nil
	case <-timer.C:
		tb.Abandon(tk)
		select {
		case env := <-tk.result:
			return env, nil
		default:
		}
		observability.Log().Debug("pending await timed out",
			observability.F("key", tk.key.String()),
			observability.F("timeout", tk.timeout))
		return protocol.Envelope{}, errs.New("pending/await", errs.CodeTimeout,
			errs.WithMessage("no response within "+tk.timeout.String()))
	case <-ctx.Done():
		tb.Abandon(tk)
		select {
		case env := <-tk.result:
			return env, nil
		default:
		}
		return protocol.Envelope{}, errs.New("pending/await", errs.CodeCancelled,
			errs.WithMessage("context cancelled"), errs.WithCause(ctx.Err()))
	}
}
