package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

type frameSink struct {
	mu     sync.Mutex
	frames []string
}

func (fs *frameSink) handle(frame []byte) error {
	fs.mu.Lock()
	fs.frames = append(fs.frames, string(frame))
	fs.mu.Unlock()
	return nil
}

func (fs *frameSink) snapshot() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.frames...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialReceiveAndEcho(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()

		ctx := r.Context()
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"name":"timeSync","msg":1}`)))

		_, data, err := conn.Read(ctx)
		if err == nil {
			received <- string(data)
		}
		<-ctx.Done()
	}))
	defer srv.Close()

	sink := &frameSink{}
	sock, err := Dial(context.Background(), wsURL(srv), sink.handle)
	require.NoError(t, err)
	defer sock.Close()

	require.False(t, sock.Active())
	select {
	case <-sock.Ready():
		t.Fatal("ready before any frame arrived")
	default:
	}

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, sock.Active())
	select {
	case <-sock.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready never signalled after first frame")
	}

	require.NoError(t, sock.Send(context.Background(), []byte(`{"name":"ssid","msg":"token"}`)))
	select {
	case got := <-received:
		require.Contains(t, got, "ssid")
	case <-time.After(time.Second):
		t.Fatal("server never received frame")
	}
}

func TestHandlerErrorDoesNotActivateOrKill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()

		ctx := r.Context()
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("bad")))
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("good")))
		<-ctx.Done()
	}))
	defer srv.Close()

	var mu sync.Mutex
	var seen []string
	handler := func(frame []byte) error {
		mu.Lock()
		seen = append(seen, string(frame))
		mu.Unlock()
		if string(frame) == "bad" {
			return context.DeadlineExceeded
		}
		return nil
	}

	sock, err := Dial(context.Background(), wsURL(srv), handler)
	require.NoError(t, err)
	defer sock.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)
	require.True(t, sock.Active())
	select {
	case <-sock.Ready():
	default:
		t.Fatal("ready not signalled after a good frame")
	}
}

func TestCloseIdempotentAndDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()
		<-r.Context().Done()
	}))
	defer srv.Close()

	sock, err := Dial(context.Background(), wsURL(srv), nil)
	require.NoError(t, err)

	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())

	select {
	case <-sock.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel never closed")
	}
	require.NoError(t, sock.Err())
}

func TestServerCloseSurfacesConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		conn.CloseNow()
	}))
	defer srv.Close()

	sock, err := Dial(context.Background(), wsURL(srv), nil)
	require.NoError(t, err)
	defer sock.Close()

	select {
	case <-sock.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel never closed")
	}
	require.Error(t, sock.Err())
}
