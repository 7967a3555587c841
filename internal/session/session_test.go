package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/config"
	"github.com/coachpo/tradewire/errs"
)

func testSettings(loginURL, logoutURL string) config.Settings {
	cfg := config.Default()
	cfg.Platform.LoginURL = loginURL
	cfg.Platform.LogoutURL = logoutURL
	return cfg
}

func TestLoginCapturesSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "trader@example.com", r.PostFormValue("identifier"))
		require.Equal(t, "hunter2", r.PostFormValue("password"))
		http.SetCookie(w, &http.Cookie{Name: "ssid", Value: "session-token-1"})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(testSettings(srv.URL, srv.URL))
	require.NoError(t, err)

	token, err := client.Login(context.Background(), config.Credentials{
		Identifier: "trader@example.com",
		Password:   "hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "session-token-1", token)
}

func TestLoginRejectedMapsToAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"invalid_credentials"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(testSettings(srv.URL, srv.URL))
	require.NoError(t, err)

	_, err = client.Login(context.Background(), config.Credentials{})
	require.Error(t, err)
	require.Equal(t, errs.CodeAuth, errs.CodeOf(err))

	var e *errs.E
	require.ErrorAs(t, err, &e)
	require.Equal(t, http.StatusForbidden, e.Status)
}

func TestLoginWithoutCookieFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(testSettings(srv.URL, srv.URL))
	require.NoError(t, err)

	_, err = client.Login(context.Background(), config.Credentials{})
	require.Error(t, err)
	require.Equal(t, errs.CodeAuth, errs.CodeOf(err))
}

func TestLogout(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(testSettings(srv.URL, srv.URL))
	require.NoError(t, err)
	require.NoError(t, client.Logout(context.Background()))
	require.Equal(t, http.MethodPost, method)
}
