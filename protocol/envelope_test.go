package protocol_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/errs"
	"github.com/coachpo/tradewire/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := map[string]any{"active_id": 76, "size": 60}
	frame, err := protocol.Encode(protocol.EnvelopeSendMessage, payload, "req-1")
	require.NoError(t, err)

	env, err := protocol.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, protocol.EnvelopeSendMessage, env.Name)
	require.Equal(t, "req-1", env.RequestID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(env.Msg, &decoded))
	require.EqualValues(t, 76, decoded["active_id"])
}

func TestEncodeOmitsEmptyRequestID(t *testing.T) {
	frame, err := protocol.Encode(protocol.EnvelopeSSID, "token", "")
	require.NoError(t, err)
	require.NotContains(t, string(frame), "request_id")

	env, err := protocol.Decode(frame)
	require.NoError(t, err)
	require.Empty(t, env.RequestID)
}

func TestDecodeNumericRequestID(t *testing.T) {
	env, err := protocol.Decode([]byte(`{"name":"digital-option-placed","msg":{"id":999},"request_id":518251}`))
	require.NoError(t, err)
	require.Equal(t, "518251", env.RequestID)
}

func TestDecodeStatusEnvelope(t *testing.T) {
	env, err := protocol.Decode([]byte(`{"name":"training-balance-reset","status":4001,"msg":{"message":"too soon"}}`))
	require.NoError(t, err)
	require.Equal(t, protocol.ResetStatusError, env.Status)

	var ack protocol.ResetAck
	require.NoError(t, protocol.DecodeMsg(env, &ack))
	require.Equal(t, "too soon", ack.Message)
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := protocol.Decode([]byte("{not json"))
	require.Error(t, err)
	require.Equal(t, errs.CodeMalformed, errs.CodeOf(err))
}

func TestDecodeMissingName(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"msg":{}}`))
	require.Error(t, err)
	require.Equal(t, errs.CodeMalformed, errs.CodeOf(err))
}

func TestNewRequestIDsDiffer(t *testing.T) {
	require.NotEqual(t, protocol.NewRequestID(), protocol.NewRequestID())
}
