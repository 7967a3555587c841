// Package dispatch routes decoded envelopes to state projections and pending
// waiters.
package dispatch

import (
	"context"

	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/internal/observability"
	"github.com/coachpo/tradewire/internal/pending"
	"github.com/coachpo/tradewire/internal/state"
	"github.com/coachpo/tradewire/internal/telemetry"
	"github.com/coachpo/tradewire/protocol"
)

// Router consumes inbound frames one at a time. All Route calls happen on the
// transport's read goroutine, so envelopes are processed in strict arrival
// order and the projections see a single writer.
type Router struct {
	table   *pending.Table
	store   *state.Projections
	metrics *telemetry.Metrics
}

// NewRouter wires the router to its pending table and projection store.
// metrics may be nil.
func NewRouter(table *pending.Table, store *state.Projections, metrics *telemetry.Metrics) *Router {
	return &Router{table: table, store: store, metrics: metrics}
}

// HandleFrame decodes a raw frame and routes it. An undecodable frame is
// dropped and its error returned so the transport can account for it; frame
// failures never tear the connection down.
func (r *Router) HandleFrame(frame []byte) error {
	ctx := context.Background()
	r.metrics.FrameReceived(ctx)

	env, err := protocol.Decode(frame)
	if err != nil {
		r.metrics.FrameDropped(ctx)
		return err
	}
	r.Route(env)
	return nil
}

// Route applies an envelope to the projections and resolves any pending
// waiter it correlates with. Projection update and fulfilment are not
// mutually exclusive; both run for the same envelope.
func (r *Router) Route(env protocol.Envelope) {
	ctx := context.Background()
	r.metrics.EnvelopeRouted(ctx, env.Name)

	r.project(env)

	fulfilled := false
	if env.RequestID != "" {
		fulfilled = r.fulfill(protocol.ByRequestID(env.RequestID), env)
	}
	if r.fulfill(protocol.ByMessageName(env.Name), env) {
		fulfilled = true
	}
	if env.Name == protocol.NamePositionChanged {
		if id, ok := positionOrderID(env); ok {
			if r.fulfill(protocol.ByDomainID(protocol.DomainOrder, id), env) {
				fulfilled = true
			}
		}
	}

	if !fulfilled && env.RequestID != "" {
		// Either the waiter timed out and abandoned its ticket, or a duplicate
		// confirmation lost the first-wins race.
		observability.Log().Debug("no waiter for correlated envelope",
			observability.F("name", env.Name),
			observability.F("request_id", env.RequestID))
	}
}

func (r *Router) fulfill(key protocol.CorrelationKey, env protocol.Envelope) bool {
	if !r.table.Fulfill(key, env) {
		return false
	}
	r.metrics.Fulfilled(context.Background())
	return true
}

func (r *Router) project(env protocol.Envelope) {
	switch env.Name {
	case protocol.NameTimeSync:
		ms, err := protocol.DecodeServerTime(env)
		if err != nil {
			r.dropPayload(env, err)
			return
		}
		r.store.SetServerTime(ms)
	case protocol.NameProfile:
		var profile protocol.Profile
		if err := protocol.DecodeMsg(env, &profile); err != nil {
			r.dropPayload(env, err)
			return
		}
		r.store.SetProfile(profile)
	case protocol.NameBalances:
		var balances []protocol.Balance
		if err := protocol.DecodeMsg(env, &balances); err != nil {
			r.dropPayload(env, err)
			return
		}
		r.store.SetBalances(balances)
	case protocol.NameCandles:
		var batch protocol.CandleBatch
		if err := protocol.DecodeMsg(env, &batch); err != nil {
			r.dropPayload(env, err)
			return
		}
		r.store.SetCandles(batch.Candles)
	case protocol.NameUnderlyingList:
		assets, err := protocol.DecodeUnderlyingList(env)
		if err != nil {
			r.dropPayload(env, err)
			return
		}
		r.store.SetAssets(assets)
	case protocol.NameInitializationData:
		r.store.SetInitializationData(env.Msg)
	case protocol.NameHistoryPositions:
		var history protocol.HistoryPositions
		if err := protocol.DecodeMsg(env, &history); err != nil {
			r.dropPayload(env, err)
			return
		}
		r.store.SetHistoryPositions(history.Positions)
	case protocol.NameTrainingBalanceReset:
		r.projectResetAck(env)
	case protocol.NameOptionPlaced:
		r.projectOptionPlaced(env)
	case protocol.NamePositionChanged:
		r.projectPositionChanged(env)
	default:
		observability.Log().Debug("unhandled push", observability.F("name", env.Name))
	}
}

func (r *Router) projectResetAck(env protocol.Envelope) {
	switch env.Status {
	case protocol.ResetStatusOK:
		observability.Log().Info("training balance reset",
			observability.F("request_id", env.RequestID))
	case protocol.ResetStatusError:
		var ack protocol.ResetAck
		_ = protocol.DecodeMsg(env, &ack)
		observability.Log().Error("training balance reset rejected",
			observability.F("request_id", env.RequestID),
			observability.F("reason", ack.Message))
	default:
		observability.Log().Info("training balance reset acknowledged",
			observability.F("status", env.Status))
	}
}

func (r *Router) projectOptionPlaced(env protocol.Envelope) {
	if env.RequestID == "" {
		observability.Log().Debug("placement confirmation without request_id")
		return
	}
	var placed protocol.OptionPlaced
	if err := protocol.DecodeMsg(env, &placed); err != nil {
		r.dropPayload(env, err)
		return
	}
	if placed.ID != nil {
		r.store.SetOrderOutcome(env.RequestID, protocol.OutcomeOK(*placed.ID))
		return
	}
	r.store.SetOrderOutcome(env.RequestID, protocol.OutcomeErr(placed.Message))
}

func (r *Router) projectPositionChanged(env protocol.Envelope) {
	var event protocol.PositionEvent
	if err := protocol.DecodeMsg(env, &event); err != nil {
		r.dropPayload(env, err)
		return
	}
	id, ok := event.OrderID()
	if !ok {
		observability.Log().Debug("position event without order ids")
		return
	}
	r.store.UpsertPosition(id, state.PositionRecord{Event: event, Raw: env.Msg})
}

func (r *Router) dropPayload(env protocol.Envelope, err error) {
	r.metrics.FrameDropped(context.Background())
	observability.Log().Error("dropped malformed payload",
		observability.F("name", env.Name),
		observability.F("code", string(errs.CodeOf(err))),
		observability.F("error", err))
}

func positionOrderID(env protocol.Envelope) (int64, bool) {
	var event protocol.PositionEvent
	if err := protocol.DecodeMsg(env, &event); err != nil {
		return 0, false
	}
	return event.OrderID()
}
