package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/protocol"
)

func TestExpiryRoundsToNextMinuteWithHeadroom(t *testing.T) {
	// 20s into the minute: 40s of headroom, next boundary is reachable.
	base := time.Date(2026, 3, 5, 12, 30, 20, 0, time.UTC)
	got := protocol.ExpiryTimestamp(base.UnixMilli(), 1)
	require.Equal(t, base.Truncate(time.Minute).Add(time.Minute).Unix(), got)
}

func TestExpirySkipsMinuteWithoutHeadroom(t *testing.T) {
	// 40s into the minute: only 20s left, must push one minute further.
	base := time.Date(2026, 3, 5, 12, 30, 40, 0, time.UTC)
	got := protocol.ExpiryTimestamp(base.UnixMilli(), 1)
	require.Equal(t, base.Truncate(time.Minute).Add(2*time.Minute).Unix(), got)
}

func TestExpiryHeadroomBoundary(t *testing.T) {
	// Exactly 31s of headroom still qualifies for the next boundary.
	base := time.Date(2026, 3, 5, 12, 30, 29, 0, time.UTC)
	got := protocol.ExpiryTimestamp(base.UnixMilli(), 1)
	require.Equal(t, base.Truncate(time.Minute).Add(time.Minute).Unix(), got)
}

func TestExpiryMultiMinute(t *testing.T) {
	base := time.Date(2026, 3, 5, 12, 30, 50, 0, time.UTC)
	got := protocol.ExpiryTimestamp(base.UnixMilli(), 5)
	require.Equal(t, base.Truncate(time.Minute).Add(6*time.Minute).Unix(), got)
}

func TestDigitalInstrumentIDFormat(t *testing.T) {
	base := time.Date(2026, 3, 5, 12, 30, 10, 0, time.UTC)
	id := protocol.DigitalInstrumentID(76, base.UnixMilli(), 1, protocol.DirectionCall)
	require.Equal(t, "do76A20260305D123100T1MCSPT", id)

	id = protocol.DigitalInstrumentID(76, base.UnixMilli(), 1, protocol.DirectionPut)
	require.Equal(t, "do76A20260305D123100T1MPSPT", id)
}
