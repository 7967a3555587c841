// Package state holds the typed in-memory projections fed by push-stream
// routing. Every cell is written by the dispatch goroutine only and read by
// any caller; reads return copies so callers never observe torn values.
package state

import (
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradewire/protocol"
)

// PositionRecord is the stored form of a position-changed push: the decoded
// event plus the full raw payload the platform sent.
type PositionRecord struct {
	Event protocol.PositionEvent
	Raw   json.RawMessage
}

// Projections is the process-lifetime cache of platform state. Mapping
// projections grow for the connection's lifetime; pruning is the caller's
// responsibility.
type Projections struct {
	mu sync.RWMutex

	serverTimeMS int64
	serverSeenAt time.Time

	profile   *protocol.Profile
	balances  []protocol.Balance
	candles   []protocol.Candle
	assets    []protocol.Asset
	initData  json.RawMessage
	history   []protocol.Position
	hasHist   bool
	outcomes  map[string]protocol.OrderOutcome
	positions map[int64]PositionRecord
}

// NewProjections builds an empty projection set.
func NewProjections() *Projections {
	return &Projections{
		outcomes:  make(map[string]protocol.OrderOutcome),
		positions: make(map[int64]PositionRecord),
	}
}

// SetServerTime records the latest platform clock sample (unix milliseconds).
func (p *Projections) SetServerTime(ms int64) {
	p.mu.Lock()
	p.serverTimeMS = ms
	p.serverSeenAt = time.Now()
	p.mu.Unlock()
}

// ServerTime returns the most recent platform clock sample; ok is false
// before the first timeSync push.
func (p *Projections) ServerTime() (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.serverTimeMS, !p.serverSeenAt.IsZero()
}

// ClockOffset reports how far the platform clock leads the local clock, based
// on the latest sample.
func (p *Projections) ClockOffset() (time.Duration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.serverSeenAt.IsZero() {
		return 0, false
	}
	server := time.UnixMilli(p.serverTimeMS)
	return server.Sub(p.serverSeenAt), true
}

// SetProfile replaces the profile snapshot wholesale.
func (p *Projections) SetProfile(profile protocol.Profile) {
	p.mu.Lock()
	cloned := profile
	cloned.Balances = append([]protocol.Balance(nil), profile.Balances...)
	p.profile = &cloned
	p.mu.Unlock()
}

// Profile returns a copy of the current profile snapshot.
func (p *Projections) Profile() (protocol.Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return protocol.Profile{}, false
	}
	cloned := *p.profile
	cloned.Balances = append([]protocol.Balance(nil), p.profile.Balances...)
	return cloned, true
}

// SetBalances replaces the balances snapshot wholesale.
func (p *Projections) SetBalances(balances []protocol.Balance) {
	p.mu.Lock()
	p.balances = append([]protocol.Balance(nil), balances...)
	p.mu.Unlock()
}

// Balances returns a copy of the latest balances snapshot.
func (p *Projections) Balances() ([]protocol.Balance, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.balances == nil {
		return nil, false
	}
	return append([]protocol.Balance(nil), p.balances...), true
}

// SetCandles replaces the candle batch wholesale; batches are never merged.
func (p *Projections) SetCandles(candles []protocol.Candle) {
	p.mu.Lock()
	p.candles = append([]protocol.Candle(nil), candles...)
	p.mu.Unlock()
}

// Candles returns a copy of the latest candle batch.
func (p *Projections) Candles() ([]protocol.Candle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.candles == nil {
		return nil, false
	}
	return append([]protocol.Candle(nil), p.candles...), true
}

// SetAssets replaces the underlying asset catalog wholesale.
func (p *Projections) SetAssets(assets []protocol.Asset) {
	p.mu.Lock()
	p.assets = append([]protocol.Asset(nil), assets...)
	p.mu.Unlock()
}

// Assets returns a copy of the latest asset catalog.
func (p *Projections) Assets() ([]protocol.Asset, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.assets == nil {
		return nil, false
	}
	return append([]protocol.Asset(nil), p.assets...), true
}

// SetInitializationData stores the raw binary-options bootstrap payload.
func (p *Projections) SetInitializationData(raw json.RawMessage) {
	p.mu.Lock()
	p.initData = append(json.RawMessage(nil), raw...)
	p.mu.Unlock()
}

// InitializationData returns the raw binary-options bootstrap payload.
func (p *Projections) InitializationData() (json.RawMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.initData == nil {
		return nil, false
	}
	return append(json.RawMessage(nil), p.initData...), true
}

// SetHistoryPositions replaces the history query result wholesale.
func (p *Projections) SetHistoryPositions(positions []protocol.Position) {
	p.mu.Lock()
	p.history = append([]protocol.Position(nil), positions...)
	p.hasHist = true
	p.mu.Unlock()
}

// HistoryPositions returns a copy of the latest history query result.
func (p *Projections) HistoryPositions() ([]protocol.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasHist {
		return nil, false
	}
	return append([]protocol.Position(nil), p.history...), true
}

// SetOrderOutcome records the placement outcome for a request id.
func (p *Projections) SetOrderOutcome(requestID string, outcome protocol.OrderOutcome) {
	p.mu.Lock()
	p.outcomes[requestID] = outcome
	p.mu.Unlock()
}

// OrderOutcome returns the placement outcome recorded for a request id.
func (p *Projections) OrderOutcome(requestID string) (protocol.OrderOutcome, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	outcome, ok := p.outcomes[requestID]
	return outcome, ok
}

// UpsertPosition overwrites the lifecycle record for an order id.
func (p *Projections) UpsertPosition(orderID int64, record PositionRecord) {
	p.mu.Lock()
	record.Raw = append(json.RawMessage(nil), record.Raw...)
	p.positions[orderID] = record
	p.mu.Unlock()
}

// Position returns the latest lifecycle record for an order id.
func (p *Projections) Position(orderID int64) (PositionRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	record, ok := p.positions[orderID]
	return record, ok
}

// PruneOutcome drops a consumed placement outcome. Callers own pruning of the
// mapping projections.
func (p *Projections) PruneOutcome(requestID string) {
	p.mu.Lock()
	delete(p.outcomes, requestID)
	p.mu.Unlock()
}

// PrunePosition drops a consumed position record.
func (p *Projections) PrunePosition(orderID int64) {
	p.mu.Lock()
	delete(p.positions, orderID)
	p.mu.Unlock()
}
