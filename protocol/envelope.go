// Package protocol defines the wire envelope and message catalog of the
// trading platform's persistent socket protocol.
package protocol

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/coachpo/tradewire/errs"
)

// Envelope is the unit exchanged over the persistent connection. Outbound and
// inbound envelopes share this shape.
type Envelope struct {
	Name      string          `json:"name"`
	Msg       json.RawMessage `json:"msg,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	// Status is carried on a few acknowledgment envelopes, notably the
	// training-balance reset (2000 success, 4001 application error).
	Status int `json:"status,omitempty"`
}

// Envelope names used when wrapping outbound payloads.
const (
	EnvelopeSendMessage = "sendMessage"
	EnvelopeSubscribe   = "subscribeMessage"
	EnvelopeUnsubscribe = "unsubscribeMessage"
	EnvelopeSSID        = "ssid"
)

// Inbound push and acknowledgment names.
const (
	NameTimeSync             = "timeSync"
	NameProfile              = "profile"
	NameBalances             = "balances"
	NameCandles              = "candles"
	NameUnderlyingList       = "underlying-list"
	NameInitializationData   = "initialization-data"
	NameTrainingBalanceReset = "training-balance-reset"
	NameHistoryPositions     = "history-positions"
	NameOptionPlaced         = "digital-option-placed"
	NamePositionChanged      = "position-changed"
)

// NewRequestID returns a collision-resistant request identifier. The protocol
// itself does not guarantee uniqueness, so the pending table must still treat
// a duplicate fulfilment as first-wins.
func NewRequestID() string { return uuid.NewString() }

// Encode serialises an outbound logical message into the wire envelope.
func Encode(name string, payload any, requestID string) ([]byte, error) {
	env := struct {
		Name      string `json:"name"`
		Msg       any    `json:"msg"`
		RequestID string `json:"request_id,omitempty"`
	}{Name: name, Msg: payload, RequestID: requestID}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errs.New("protocol/encode", errs.CodeInvalid, errs.WithCause(err))
	}
	return data, nil
}

// Decode parses an inbound frame into an Envelope. The platform emits
// request_id as either a JSON string or a bare number; both normalise to a
// string here.
func Decode(frame []byte) (Envelope, error) {
	var raw struct {
		Name      string          `json:"name"`
		Msg       json.RawMessage `json:"msg"`
		RequestID json.RawMessage `json:"request_id"`
		Status    int             `json:"status"`
	}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Envelope{}, errs.New("protocol/decode", errs.CodeMalformed, errs.WithCause(err))
	}
	if strings.TrimSpace(raw.Name) == "" {
		return Envelope{}, errs.New("protocol/decode", errs.CodeMalformed, errs.WithMessage("envelope missing name"))
	}
	return Envelope{
		Name:      raw.Name,
		Msg:       raw.Msg,
		RequestID: requestIDString(raw.RequestID),
		Status:    raw.Status,
	}, nil
}

func requestIDString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
		return ""
	}
	return string(trimmed)
}
