package protocol

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is an outbound logical message: a fixed name+version pair plus a
// message-kind specific body. It travels as the msg of a sendMessage (or
// subscribe/unsubscribe) envelope and is transported verbatim.
type Request struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Body    any    `json:"body,omitempty"`
	Params  any    `json:"params,omitempty"`
}

// Balance type identifiers used by the billing service.
const (
	BalanceTypeReal       = 1
	BalanceTypeTournament = 2
	BalanceTypeDemo       = 4
	BalanceTypeCFD        = 6
)

// InstrumentFamily selects one of the platform's catalog request variants.
type InstrumentFamily string

const (
	FamilyDigitalOption InstrumentFamily = "digital-option"
	FamilyBinaryOption  InstrumentFamily = "binary-option"
	FamilyForex         InstrumentFamily = "forex"
	FamilyCFD           InstrumentFamily = "cfd"
	FamilyCrypto        InstrumentFamily = "crypto"
)

// PortfolioInstrumentTypes are the instrument types whose position changes the
// client subscribes to for an active account.
var PortfolioInstrumentTypes = []string{"cfd", "forex", "crypto", "digital-option", "binary-option"}

type getBalancesBody struct {
	TypesIDs               []int `json:"types_ids"`
	TournamentsStatusesIDs []int `json:"tournaments_statuses_ids"`
}

// GetBalancesRequest queries every balance attached to the profile, including
// active and completed tournament balances.
func GetBalancesRequest() Request {
	return Request{
		Name:    "internal-billing.get-balances",
		Version: "1.0",
		Body: getBalancesBody{
			TypesIDs:               []int{BalanceTypeReal, BalanceTypeDemo, BalanceTypeTournament, BalanceTypeCFD},
			TournamentsStatusesIDs: []int{3, 2},
		},
	}
}

type resetTrainingBalanceBody struct {
	Amount        int   `json:"amount"`
	UserBalanceID int64 `json:"user_balance_id"`
}

// ResetTrainingBalanceRequest refills the practice balance to amount.
func ResetTrainingBalanceRequest(balanceID int64, amount int) Request {
	return Request{
		Name:    "internal-billing.reset-training-balance",
		Version: "4.0",
		Body:    resetTrainingBalanceBody{Amount: amount, UserBalanceID: balanceID},
	}
}

type candlesBody struct {
	ActiveID           int64 `json:"active_id"`
	Size               int   `json:"size"`
	Count              int   `json:"count"`
	To                 int64 `json:"to"`
	OnlyClosed         bool  `json:"only_closed"`
	SplitNormalization bool  `json:"split_normalization"`
}

// CandlesRequest queries count closed candles of size seconds ending at the
// server timestamp to.
func CandlesRequest(activeID int64, size, count int, to int64) Request {
	return Request{
		Name:    "get-candles",
		Version: "2.0",
		Body: candlesBody{
			ActiveID:           activeID,
			Size:               size,
			Count:              count,
			To:                 to,
			OnlyClosed:         true,
			SplitNormalization: true,
		},
	}
}

type filterSuspendedBody struct {
	FilterSuspended bool `json:"filter_suspended"`
}

type emptyBody struct{}

// UnderlyingListRequest builds the catalog query for the instrument family.
// The three families use three distinct request names and versions.
func UnderlyingListRequest(family InstrumentFamily) Request {
	switch family {
	case FamilyDigitalOption:
		return Request{
			Name:    "digital-option-instruments.get-underlying-list",
			Version: "3.0",
			Body:    filterSuspendedBody{FilterSuspended: true},
		}
	case FamilyBinaryOption:
		return Request{Name: "get-initialization-data", Version: "4.0", Body: emptyBody{}}
	default:
		return Request{
			Name:    "marginal-" + string(family) + "-instruments.get-underlying-list",
			Version: "1.0",
			Body:    emptyBody{},
		}
	}
}

type placeDigitalOptionBody struct {
	UserBalanceID   int64  `json:"user_balance_id"`
	InstrumentID    string `json:"instrument_id"`
	Amount          string `json:"amount"`
	AssetID         int64  `json:"asset_id"`
	InstrumentIndex int    `json:"instrument_index"`
}

// PlaceDigitalOptionRequest places a digital option. The platform expects the
// amount as a decimal string.
func PlaceDigitalOptionRequest(balanceID int64, instrumentID string, assetID int64, amount decimal.Decimal) Request {
	return Request{
		Name:    "digital-options.place-digital-option",
		Version: "3.0",
		Body: placeDigitalOptionBody{
			UserBalanceID:   balanceID,
			InstrumentID:    instrumentID,
			Amount:          amount.String(),
			AssetID:         assetID,
			InstrumentIndex: 0,
		},
	}
}

type historyPositionsPageBody struct {
	InstrumentTypes []string `json:"instrument_types"`
	Limit           int      `json:"limit"`
	Offset          int      `json:"offset"`
	UserBalanceID   int64    `json:"user_balance_id"`
}

// HistoryPositionsByPageRequest queries closed positions page by page.
func HistoryPositionsByPageRequest(instrumentTypes []string, limit, offset int, balanceID int64) Request {
	return Request{
		Name:    "portfolio.get-history-positions",
		Version: "2.0",
		Body: historyPositionsPageBody{
			InstrumentTypes: instrumentTypes,
			Limit:           limit,
			Offset:          offset,
			UserBalanceID:   balanceID,
		},
	}
}

type historyPositionsTimeBody struct {
	Start           int64    `json:"start"`
	End             int64    `json:"end"`
	InstrumentTypes []string `json:"instrument_types"`
	UserBalanceID   int64    `json:"user_balance_id"`
}

// HistoryPositionsByTimeRequest queries closed positions inside [start, end].
func HistoryPositionsByTimeRequest(instrumentTypes []string, start, end time.Time, balanceID int64) Request {
	return Request{
		Name:    "portfolio.get-history-positions",
		Version: "2.0",
		Body: historyPositionsTimeBody{
			Start:           start.Unix(),
			End:             end.Unix(),
			InstrumentTypes: instrumentTypes,
			UserBalanceID:   balanceID,
		},
	}
}

type routingFilters struct {
	InstrumentType string `json:"instrument_type"`
	UserBalanceID  int64  `json:"user_balance_id"`
}

type portfolioParams struct {
	RoutingFilters routingFilters `json:"routingFilters"`
}

// PortfolioSubscriptionRequest targets position-changed pushes for one
// instrument type on one balance. Wrap it in a subscribeMessage or
// unsubscribeMessage envelope.
func PortfolioSubscriptionRequest(instrumentType string, balanceID int64) Request {
	return Request{
		Name:    "portfolio.position-changed",
		Version: "2.0",
		Params: portfolioParams{RoutingFilters: routingFilters{
			InstrumentType: instrumentType,
			UserBalanceID:  balanceID,
		}},
	}
}
