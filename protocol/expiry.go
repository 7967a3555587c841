package protocol

import (
	"fmt"
	"time"
)

// Direction is the side of an option trade.
type Direction string

const (
	DirectionCall Direction = "call"
	DirectionPut  Direction = "put"
)

func (d Direction) letter() string {
	if d == DirectionPut {
		return "P"
	}
	return "C"
}

// minExpiryHeadroom is how much of the current minute must remain for a trade
// to still make the next minute boundary. Below it the platform rejects the
// expiry, so the window shifts one minute further out.
const minExpiryHeadroom = 31 * time.Second

// ExpiryTimestamp rounds an expiry of expiryMinutes from the server clock
// (unix milliseconds) to the platform's minute-boundary schedule, returning
// unix seconds.
func ExpiryTimestamp(serverTimeMS int64, expiryMinutes int) int64 {
	if expiryMinutes < 1 {
		expiryMinutes = 1
	}
	now := time.Duration(serverTimeMS) * time.Millisecond
	floorMinute := now.Truncate(time.Minute)
	headroom := floorMinute + time.Minute - now

	expiry := floorMinute + time.Duration(expiryMinutes)*time.Minute
	if headroom < minExpiryHeadroom {
		expiry += time.Minute
	}
	return int64(expiry / time.Second)
}

// DigitalInstrumentID synthesises the instrument identifier for a digital
// option: do{asset}A{yyyymmdd}D{hhmm}00T{expiry}M{C|P}SPT, with the date
// rendered in UTC at the rounded expiry.
func DigitalInstrumentID(assetID int64, serverTimeMS int64, expiryMinutes int, dir Direction) string {
	if expiryMinutes < 1 {
		expiryMinutes = 1
	}
	expiry := time.Unix(ExpiryTimestamp(serverTimeMS, expiryMinutes), 0).UTC()
	return fmt.Sprintf("do%dA%sD%s00T%dM%sSPT",
		assetID,
		expiry.Format("20060102"),
		expiry.Format("1504"),
		expiryMinutes,
		dir.letter(),
	)
}
