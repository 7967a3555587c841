package state

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/protocol"
)

func TestProjectionsEmpty(t *testing.T) {
	p := NewProjections()

	_, ok := p.ServerTime()
	require.False(t, ok)
	_, ok = p.Profile()
	require.False(t, ok)
	_, ok = p.Balances()
	require.False(t, ok)
	_, ok = p.Candles()
	require.False(t, ok)
	_, ok = p.OrderOutcome("abc")
	require.False(t, ok)
	_, ok = p.Position(55)
	require.False(t, ok)
}

func TestServerTimeAndOffset(t *testing.T) {
	p := NewProjections()
	now := time.Now().Add(90 * time.Second)
	p.SetServerTime(now.UnixMilli())

	ms, ok := p.ServerTime()
	require.True(t, ok)
	require.Equal(t, now.UnixMilli(), ms)

	offset, ok := p.ClockOffset()
	require.True(t, ok)
	require.InDelta(t, float64(90*time.Second), float64(offset), float64(2*time.Second))
}

func TestCandlesReplaceWholesale(t *testing.T) {
	p := NewProjections()
	p.SetCandles([]protocol.Candle{{From: 1}, {From: 2}, {From: 3}})
	p.SetCandles([]protocol.Candle{{From: 9}})

	got, ok := p.Candles()
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, int64(9), got[0].From)
}

func TestBalancesSnapshotIsolation(t *testing.T) {
	p := NewProjections()
	src := []protocol.Balance{{ID: 1, Type: protocol.BalanceTypeDemo, Amount: decimal.NewFromInt(10000)}}
	p.SetBalances(src)
	src[0].ID = 999

	got, ok := p.Balances()
	require.True(t, ok)
	require.Equal(t, int64(1), got[0].ID)

	got[0].ID = 777
	again, _ := p.Balances()
	require.Equal(t, int64(1), again[0].ID)
}

func TestOrderOutcomeLifecycle(t *testing.T) {
	p := NewProjections()
	p.SetOrderOutcome("req-1", protocol.OutcomeOK(42))

	outcome, ok := p.OrderOutcome("req-1")
	require.True(t, ok)
	id, placed := outcome.OrderID()
	require.True(t, placed)
	require.Equal(t, int64(42), id)

	p.PruneOutcome("req-1")
	_, ok = p.OrderOutcome("req-1")
	require.False(t, ok)
}

func TestPositionOverwrite(t *testing.T) {
	p := NewProjections()
	open := protocol.PositionEvent{Status: "open", RawEvent: protocol.PositionRawEvent{OrderIDs: []int64{555}}}
	closed := protocol.PositionEvent{Status: "closed", RawEvent: protocol.PositionRawEvent{OrderIDs: []int64{555}}}

	p.UpsertPosition(555, PositionRecord{Event: open, Raw: json.RawMessage(`{"status":"open"}`)})
	p.UpsertPosition(555, PositionRecord{Event: closed, Raw: json.RawMessage(`{"status":"closed"}`)})

	rec, ok := p.Position(555)
	require.True(t, ok)
	require.True(t, rec.Event.Closed())
	require.JSONEq(t, `{"status":"closed"}`, string(rec.Raw))
}
