package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/internal/pending"
	"github.com/coachpo/tradewire/internal/state"
	"github.com/coachpo/tradewire/protocol"
)

func newRouter() (*Router, *pending.Table, *state.Projections) {
	table := pending.NewTable()
	store := state.NewProjections()
	return NewRouter(table, store, nil), table, store
}

func awaitEnv(t *testing.T, table *pending.Table, tk *pending.Ticket) protocol.Envelope {
	t.Helper()
	env, err := table.Await(context.Background(), tk)
	require.NoError(t, err)
	return env
}

func TestHandleFrameDropsMalformedAndKeepsGoing(t *testing.T) {
	router, _, store := newRouter()

	require.Error(t, router.HandleFrame([]byte("{not json")))
	require.Error(t, router.HandleFrame([]byte(`{"msg":{}}`)))
	require.NoError(t, router.HandleFrame([]byte(`{"name":"timeSync","msg":1700000000123}`)))

	ms, ok := store.ServerTime()
	require.True(t, ok)
	require.Equal(t, int64(1700000000123), ms)
}

func TestNumericRequestIDFulfillsStringWaiter(t *testing.T) {
	router, table, _ := newRouter()
	tk := table.Register(protocol.ByRequestID("999"), time.Second)

	require.NoError(t, router.HandleFrame([]byte(`{"name":"result","msg":{"ok":true},"request_id":999}`)))

	env := awaitEnv(t, table, tk)
	require.Equal(t, "result", env.Name)
	require.Equal(t, "999", env.RequestID)
}

func TestRouteFulfillsByMessageName(t *testing.T) {
	router, table, store := newRouter()
	tk := table.Register(protocol.ByMessageName(protocol.NameProfile), time.Second)

	router.Route(protocol.Envelope{
		Name: protocol.NameProfile,
		Msg:  json.RawMessage(`{"user_id":7,"email":"a@b.c","balances":[{"id":1,"type":4}]}`),
	})

	env := awaitEnv(t, table, tk)
	require.Equal(t, protocol.NameProfile, env.Name)

	profile, ok := store.Profile()
	require.True(t, ok)
	require.Equal(t, int64(7), profile.UserID)
	require.Len(t, profile.Balances, 1)
}

func TestOutOfOrderConfirmations(t *testing.T) {
	router, table, _ := newRouter()
	first := table.Register(protocol.ByRequestID("a"), time.Second)
	second := table.Register(protocol.ByRequestID("b"), time.Second)

	router.Route(protocol.Envelope{Name: "ack", RequestID: "b"})
	router.Route(protocol.Envelope{Name: "ack", RequestID: "a"})

	require.Equal(t, "b", awaitEnv(t, table, second).RequestID)
	require.Equal(t, "a", awaitEnv(t, table, first).RequestID)
	require.Zero(t, table.Depth())
}

func TestCandlesReplaceNotMerge(t *testing.T) {
	router, _, store := newRouter()

	router.Route(protocol.Envelope{
		Name: protocol.NameCandles,
		Msg:  json.RawMessage(`{"candles":[{"from":1},{"from":2}]}`),
	})
	router.Route(protocol.Envelope{
		Name: protocol.NameCandles,
		Msg:  json.RawMessage(`{"candles":[{"from":5}]}`),
	})

	candles, ok := store.Candles()
	require.True(t, ok)
	require.Len(t, candles, 1)
	require.Equal(t, int64(5), candles[0].From)
}

func TestOptionPlacedOutcomes(t *testing.T) {
	router, table, store := newRouter()
	tk := table.Register(protocol.ByRequestID("req-ok"), time.Second)

	router.Route(protocol.Envelope{
		Name:      protocol.NameOptionPlaced,
		RequestID: "req-ok",
		Msg:       json.RawMessage(`{"id":12345}`),
	})
	router.Route(protocol.Envelope{
		Name:      protocol.NameOptionPlaced,
		RequestID: "req-bad",
		Msg:       json.RawMessage(`{"message":"not enough money"}`),
	})

	awaitEnv(t, table, tk)

	outcome, ok := store.OrderOutcome("req-ok")
	require.True(t, ok)
	id, placed := outcome.OrderID()
	require.True(t, placed)
	require.Equal(t, int64(12345), id)

	outcome, ok = store.OrderOutcome("req-bad")
	require.True(t, ok)
	_, placed = outcome.OrderID()
	require.False(t, placed)
	require.Equal(t, "not enough money", outcome.Err())
}

func TestPositionChangedKeyedByFirstOrderID(t *testing.T) {
	router, table, store := newRouter()
	tk := table.Register(protocol.ByDomainID(protocol.DomainOrder, 555), time.Second)

	router.Route(protocol.Envelope{
		Name: protocol.NamePositionChanged,
		Msg:  json.RawMessage(`{"raw_event":{"order_ids":[555,556]},"status":"closed"}`),
	})

	env := awaitEnv(t, table, tk)
	require.Equal(t, protocol.NamePositionChanged, env.Name)

	_, ok := store.Position(555)
	require.True(t, ok)
	_, ok = store.Position(556)
	require.False(t, ok)
}

func TestLateFulfilmentIsNoOp(t *testing.T) {
	router, table, _ := newRouter()

	router.Route(protocol.Envelope{Name: "ack", RequestID: "gone"})
	require.Zero(t, table.Depth())
}

func TestPositionEventWithoutOrderIDs(t *testing.T) {
	router, _, store := newRouter()

	router.Route(protocol.Envelope{
		Name: protocol.NamePositionChanged,
		Msg:  json.RawMessage(`{"raw_event":{"order_ids":[]},"status":"open"}`),
	})

	_, ok := store.Position(0)
	require.False(t, ok)
}
