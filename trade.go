package tradewire

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/protocol"
)

// PlaceDigitalOption places a digital option on the active balance. The
// expiry is rounded to the platform's minute schedule and the instrument
// identifier synthesised from the server clock. The returned outcome is
// either the order id or the platform's rejection reason; only transport and
// timeout failures surface as errors.
func (c *Client) PlaceDigitalOption(ctx context.Context, assetID int64, dir protocol.Direction, expiryMinutes int, amount decimal.Decimal) (protocol.OrderOutcome, error) {
	balance, ok := c.ActiveBalance()
	if !ok {
		return protocol.OrderOutcome{}, errs.New("client/place", errs.CodeInvalid,
			errs.WithMessage("no account selected"))
	}
	if amount.Sign() <= 0 {
		return protocol.OrderOutcome{}, errs.New("client/place", errs.CodeInvalid,
			errs.WithMessage("amount must be positive"))
	}

	instrumentID := protocol.DigitalInstrumentID(assetID, c.ServerTime(), expiryMinutes, dir)
	req := protocol.PlaceDigitalOptionRequest(balance.ID, instrumentID, assetID, amount)

	id := protocol.NewRequestID()
	env, err := c.Call(ctx, protocol.EnvelopeSendMessage, req, protocol.ByRequestID(id), 0)
	if err != nil {
		return protocol.OrderOutcome{}, err
	}

	var placed protocol.OptionPlaced
	if err := protocol.DecodeMsg(env, &placed); err != nil {
		return protocol.OrderOutcome{}, err
	}
	c.store.PruneOutcome(id)
	if placed.ID != nil {
		return protocol.OutcomeOK(*placed.ID), nil
	}
	return protocol.OutcomeErr(placed.Message), nil
}

// TradeOutcome blocks until the position behind orderID reports closed,
// returning its final lifecycle event. Intermediate open/updated events reset
// nothing; the wait spans them all within timeout.
func (c *Client) TradeOutcome(ctx context.Context, orderID int64, timeout time.Duration) (protocol.PositionEvent, error) {
	if timeout <= 0 {
		timeout = c.cfg.Timeouts.Call
	}
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return protocol.PositionEvent{}, errs.New("client/trade-outcome", errs.CodeTimeout,
				errs.WithMessage("position did not close within "+timeout.String()))
		}
		tk := c.table.Register(protocol.ByDomainID(protocol.DomainOrder, orderID), remaining)
		// The close may already have been pushed while the caller was busy;
		// the ticket goes in first so a push between the check and the wait
		// cannot slip by.
		if record, ok := c.store.Position(orderID); ok && record.Event.Closed() {
			c.table.Abandon(tk)
			c.store.PrunePosition(orderID)
			return record.Event, nil
		}
		env, err := c.table.Await(ctx, tk)
		if err != nil {
			return protocol.PositionEvent{}, err
		}
		var event protocol.PositionEvent
		if err := protocol.DecodeMsg(env, &event); err != nil {
			return protocol.PositionEvent{}, err
		}
		if event.Closed() {
			c.store.PrunePosition(orderID)
			return event, nil
		}
	}
}
