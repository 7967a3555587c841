package protocol

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/coachpo/tradewire/errs"
)

// Balance is one account balance attached to the profile.
type Balance struct {
	ID             int64           `json:"id"`
	Type           int             `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	TournamentName string          `json:"tournament_name,omitempty"`
}

// Profile is the account snapshot pushed after session authentication.
type Profile struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	CountryID int64     `json:"country_id"`
	Balances  []Balance `json:"balances"`
}

// Candle is one OHLCV bar. The platform names the extremes min/max rather
// than low/high.
type Candle struct {
	From   int64           `json:"from"`
	To     int64           `json:"to"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	Volume decimal.Decimal `json:"volume"`
}

// CandleBatch is the payload of a candles push.
type CandleBatch struct {
	Candles []Candle `json:"candles"`
}

// Asset is one tradable underlying from a catalog response.
type Asset struct {
	ActiveID    int64  `json:"active_id"`
	Name        string `json:"name"`
	IsSuspended bool   `json:"is_suspended"`
}

// Position is one closed position from a history query.
type Position struct {
	ID             int64           `json:"id"`
	ActiveID       int64           `json:"active_id"`
	InstrumentType string          `json:"instrument_type"`
	Status         string          `json:"status"`
	Invest         decimal.Decimal `json:"invest"`
	PnLNet         decimal.Decimal `json:"pnl_net"`
	CloseProfit    decimal.Decimal `json:"close_profit"`
	CloseReason    string          `json:"close_reason"`
	OpenTime       int64           `json:"open_time"`
	CloseTime      int64           `json:"close_time"`
}

// HistoryPositions is the payload of a history-positions push.
type HistoryPositions struct {
	Positions []Position `json:"positions"`
}

// OptionPlaced acknowledges a digital option placement. Exactly one of ID and
// Message is populated: a numeric order id on success, a textual reason on
// rejection.
type OptionPlaced struct {
	ID      *int64 `json:"id"`
	Message string `json:"message"`
}

// PositionRawEvent is the nested raw event of a position-changed push. The
// order ids identify which orders the event belongs to; routing uses the
// first.
type PositionRawEvent struct {
	OrderIDs []int64 `json:"order_ids"`
}

// PositionEvent is the payload of an unsolicited position-changed push.
type PositionEvent struct {
	RawEvent       PositionRawEvent `json:"raw_event"`
	Status         string           `json:"status"`
	CloseReason    string           `json:"close_reason"`
	InstrumentType string           `json:"instrument_type"`
	Invest         decimal.Decimal  `json:"invest"`
	PnLNet         decimal.Decimal  `json:"pnl_net"`
	CloseProfit    decimal.Decimal  `json:"close_profit"`
}

// Closed reports whether the position has finished its lifecycle.
func (e PositionEvent) Closed() bool { return e.Status == "closed" }

// OrderID returns the routing order id of the event, or false when the raw
// event names none.
func (e PositionEvent) OrderID() (int64, bool) {
	if len(e.RawEvent.OrderIDs) == 0 {
		return 0, false
	}
	return e.RawEvent.OrderIDs[0], true
}

// ResetAck is the body of a training-balance-reset acknowledgment. The result
// is carried by the envelope status; the body holds the reason on failure.
type ResetAck struct {
	Message string `json:"message"`
}

// Training-balance-reset envelope statuses.
const (
	ResetStatusOK    = 2000
	ResetStatusError = 4001
)

// DecodeMsg unmarshals an envelope payload into the typed shape for its
// message kind.
func DecodeMsg(env Envelope, out any) error {
	if err := json.Unmarshal(env.Msg, out); err != nil {
		return errs.New("protocol/"+env.Name, errs.CodeMalformed, errs.WithCause(err))
	}
	return nil
}

// DecodeServerTime extracts the server clock value (unix milliseconds) from a
// timeSync payload.
func DecodeServerTime(env Envelope) (int64, error) {
	var ms int64
	if err := json.Unmarshal(env.Msg, &ms); err != nil {
		return 0, errs.New("protocol/timeSync", errs.CodeMalformed, errs.WithCause(err))
	}
	return ms, nil
}

// DecodeUnderlyingList extracts the asset catalog from an underlying-list
// payload. Digital option catalogs nest assets under "underlying"; the
// marginal families nest them under "items". The embedded type field
// discriminates.
func DecodeUnderlyingList(env Envelope) ([]Asset, error) {
	var shape struct {
		Type       string  `json:"type"`
		Underlying []Asset `json:"underlying"`
		Items      []Asset `json:"items"`
	}
	if err := json.Unmarshal(env.Msg, &shape); err != nil {
		return nil, errs.New("protocol/underlying-list", errs.CodeMalformed, errs.WithCause(err))
	}
	if shape.Type == string(FamilyDigitalOption) {
		return shape.Underlying, nil
	}
	return shape.Items, nil
}

// OrderOutcome is the two-variant result of an order placement: a numeric
// order id on success or the platform's rejection message on failure.
type OrderOutcome struct {
	orderID int64
	errMsg  string
	failed  bool
}

// OutcomeOK builds a successful placement outcome.
func OutcomeOK(orderID int64) OrderOutcome { return OrderOutcome{orderID: orderID} }

// OutcomeErr builds a rejected placement outcome.
func OutcomeErr(message string) OrderOutcome { return OrderOutcome{errMsg: message, failed: true} }

// OrderID returns the placed order id; ok is false for rejected placements.
func (o OrderOutcome) OrderID() (int64, bool) { return o.orderID, !o.failed }

// Err returns the rejection message, or "" for successful placements.
func (o OrderOutcome) Err() string { return o.errMsg }

func (o OrderOutcome) String() string {
	if o.failed {
		return fmt.Sprintf("rejected(%s)", o.errMsg)
	}
	return fmt.Sprintf("placed(%d)", o.orderID)
}
