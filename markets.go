package tradewire

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/protocol"
)

// Candles fetches count closed candles of size seconds ending at the current
// server time. Each response replaces the previous candle projection
// wholesale.
func (c *Client) Candles(ctx context.Context, activeID int64, size, count int) ([]protocol.Candle, error) {
	to := c.ServerTime() / 1000
	env, err := c.Request(ctx, protocol.CandlesRequest(activeID, size, count, to), protocol.NameCandles, 0)
	if err != nil {
		return nil, err
	}
	var batch protocol.CandleBatch
	if err := protocol.DecodeMsg(env, &batch); err != nil {
		return nil, err
	}
	return batch.Candles, nil
}

// UnderlyingAssets fetches the tradable asset catalog for an instrument
// family. The binary-option family uses the bootstrap payload instead; see
// InitializationData.
func (c *Client) UnderlyingAssets(ctx context.Context, family protocol.InstrumentFamily) ([]protocol.Asset, error) {
	if family == protocol.FamilyBinaryOption {
		return nil, errs.New("client/underlying", errs.CodeInvalid,
			errs.WithMessage("binary-option catalog comes from InitializationData"))
	}
	env, err := c.Request(ctx, protocol.UnderlyingListRequest(family), protocol.NameUnderlyingList, 0)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeUnderlyingList(env)
}

// InitializationData fetches the binary-options bootstrap payload. The
// payload is large and version-churned, so it is returned raw.
func (c *Client) InitializationData(ctx context.Context) (json.RawMessage, error) {
	env, err := c.Request(ctx, protocol.UnderlyingListRequest(protocol.FamilyBinaryOption),
		protocol.NameInitializationData, 0)
	if err != nil {
		return nil, err
	}
	return env.Msg, nil
}
