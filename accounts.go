package tradewire

import (
	"context"
	"time"

	"github.com/coachpo/tradewire/config"
	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/internal/observability"
	"github.com/coachpo/tradewire/protocol"
)

// Balances fetches every balance attached to the profile, including active
// and completed tournament balances.
func (c *Client) Balances(ctx context.Context) ([]protocol.Balance, error) {
	env, err := c.Request(ctx, protocol.GetBalancesRequest(), protocol.NameBalances, 0)
	if err != nil {
		return nil, err
	}
	var balances []protocol.Balance
	if err := protocol.DecodeMsg(env, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// TournamentBalances returns the tournament balances currently attached to
// the profile.
func (c *Client) TournamentBalances(ctx context.Context) ([]protocol.Balance, error) {
	balances, err := c.Balances(ctx)
	if err != nil {
		return nil, err
	}
	tournaments := balances[:0:0]
	for _, b := range balances {
		if b.Type == protocol.BalanceTypeTournament {
			tournaments = append(tournaments, b)
		}
	}
	return tournaments, nil
}

// ActiveBalance returns the balance trades are placed against.
func (c *Client) ActiveBalance() (protocol.Balance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balance == nil {
		return protocol.Balance{}, false
	}
	return *c.balance, true
}

// SelectAccount activates the demo or real balance and re-points the
// portfolio subscriptions at it, so position-changed pushes follow the
// account trades are placed on.
func (c *Client) SelectAccount(ctx context.Context, account config.AccountType) error {
	wantType := protocol.BalanceTypeDemo
	if account == config.AccountReal {
		wantType = protocol.BalanceTypeReal
	}

	balances, err := c.Balances(ctx)
	if err != nil {
		return err
	}
	var picked *protocol.Balance
	for i := range balances {
		if balances[i].Type == wantType {
			picked = &balances[i]
			break
		}
	}
	if picked == nil {
		return errs.New("client/select-account", errs.CodeInvalid,
			errs.WithMessage("no balance of type "+string(account)))
	}

	c.mu.Lock()
	previous := c.balance
	c.balance = picked
	c.mu.Unlock()

	if previous != nil && previous.ID != picked.ID {
		if err := c.unsubscribePortfolio(ctx, previous.ID); err != nil {
			observability.Log().Error("portfolio unsubscribe failed",
				observability.F("balance_id", previous.ID),
				observability.F("error", err))
		}
	}
	if previous == nil || previous.ID != picked.ID {
		if err := c.subscribePortfolio(ctx, picked.ID); err != nil {
			return err
		}
	}
	observability.Log().Info("account selected",
		observability.F("type", string(account)),
		observability.F("balance_id", picked.ID))
	return nil
}

func (c *Client) subscribePortfolio(ctx context.Context, balanceID int64) error {
	for _, instrumentType := range protocol.PortfolioInstrumentTypes {
		req := protocol.PortfolioSubscriptionRequest(instrumentType, balanceID)
		if err := c.send(ctx, protocol.EnvelopeSubscribe, req); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) unsubscribePortfolio(ctx context.Context, balanceID int64) error {
	for _, instrumentType := range protocol.PortfolioInstrumentTypes {
		req := protocol.PortfolioSubscriptionRequest(instrumentType, balanceID)
		if err := c.send(ctx, protocol.EnvelopeUnsubscribe, req); err != nil {
			return err
		}
	}
	return nil
}

// ResetTrainingBalance refills the practice balance to amount. A platform
// rejection surfaces as a CodeApplication error carrying the server reason.
func (c *Client) ResetTrainingBalance(ctx context.Context, amount int) error {
	balances, err := c.Balances(ctx)
	if err != nil {
		return err
	}
	var demo *protocol.Balance
	for i := range balances {
		if balances[i].Type == protocol.BalanceTypeDemo {
			demo = &balances[i]
			break
		}
	}
	if demo == nil {
		return errs.New("client/reset-training-balance", errs.CodeInvalid,
			errs.WithMessage("profile has no practice balance"))
	}
	_, err = c.Request(ctx, protocol.ResetTrainingBalanceRequest(demo.ID, amount),
		protocol.NameTrainingBalanceReset, 0)
	return err
}

// HistoryPositionsByPage queries closed positions for the active balance,
// newest first, limit rows starting at offset.
func (c *Client) HistoryPositionsByPage(ctx context.Context, limit, offset int) ([]protocol.Position, error) {
	balance, ok := c.ActiveBalance()
	if !ok {
		return nil, errs.New("client/history", errs.CodeInvalid,
			errs.WithMessage("no account selected"))
	}
	req := protocol.HistoryPositionsByPageRequest(protocol.PortfolioInstrumentTypes, limit, offset, balance.ID)
	return c.historyPositions(ctx, req)
}

// HistoryPositionsByTime queries closed positions for the active balance
// inside [start, end].
func (c *Client) HistoryPositionsByTime(ctx context.Context, start, end time.Time) ([]protocol.Position, error) {
	balance, ok := c.ActiveBalance()
	if !ok {
		return nil, errs.New("client/history", errs.CodeInvalid,
			errs.WithMessage("no account selected"))
	}
	req := protocol.HistoryPositionsByTimeRequest(protocol.PortfolioInstrumentTypes, start, end, balance.ID)
	return c.historyPositions(ctx, req)
}

func (c *Client) historyPositions(ctx context.Context, req protocol.Request) ([]protocol.Position, error) {
	env, err := c.Request(ctx, req, protocol.NameHistoryPositions, 0)
	if err != nil {
		return nil, err
	}
	var history protocol.HistoryPositions
	if err := protocol.DecodeMsg(env, &history); err != nil {
		return nil, err
	}
	return history.Positions, nil
}
