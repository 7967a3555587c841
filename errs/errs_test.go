package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/errs"
)

func TestErrorRendersStructuredFields(t *testing.T) {
	cause := errors.New("broken pipe")
	err := errs.New("transport/send", errs.CodeConnection,
		errs.WithMessage("send failed"),
		errs.WithCause(cause),
	)

	rendered := err.Error()
	require.Contains(t, rendered, "op=transport/send")
	require.Contains(t, rendered, "code=connection")
	require.Contains(t, rendered, `message="send failed"`)
	require.Contains(t, rendered, `cause="broken pipe"`)
	require.ErrorIs(t, err, cause)
}

func TestErrorStatusAndRawMessage(t *testing.T) {
	err := errs.New("client/refill", errs.CodeApplication,
		errs.WithStatus(4001),
		errs.WithRawMessage("not available in your country"),
	)
	require.Contains(t, err.Error(), "status=4001")
	require.Contains(t, err.Error(), `raw_msg="not available in your country"`)
}

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	inner := errs.New("pending/await", errs.CodeTimeout)
	wrapped := fmt.Errorf("call balances: %w", inner)

	require.Equal(t, errs.CodeTimeout, errs.CodeOf(wrapped))
	require.True(t, errs.IsTimeout(wrapped))
	require.False(t, errs.IsApplication(wrapped))
}

func TestCodeOfForeignError(t *testing.T) {
	require.Equal(t, errs.Code(""), errs.CodeOf(errors.New("plain")))
	require.False(t, errs.IsNotConnected(errors.New("plain")))
}

func TestNilErrorString(t *testing.T) {
	var e *errs.E
	require.Equal(t, "<nil>", e.Error())
}
